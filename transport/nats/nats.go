// Package nats provides a NATS Core transport for beamline.
package nats

import (
	"context"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bridge"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "nats"

// flushTimeout bounds the round trip behind Ping.
const flushTimeout = 5 * time.Second

// Conn is the subset of *nats.Conn the transport uses. It exists so tests
// can substitute a fake through ConnectFactory.
type Conn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	FlushTimeout(timeout time.Duration) error
	Close()
}

// ConnectFactory allows overriding the connection creation for testing.
// Reconnects are disabled: a broken connection surfaces as a failed Ping or
// Publish and the caller decides what to do.
var ConnectFactory = func(url string) (Conn, error) {
	return nats.Connect(url, nats.NoReconnect())
}

// Register registers the NATS transport with the default registry. Call
// this from an init() in an importing package, or explicitly before use.
func Register() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.NATSCapabilities)
}

// Build creates a new NATS transport.
func Build(_ context.Context, _ transport.Config, log logging.ServiceLogger) (bridge.Client, error) {
	return &client{log: log}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.NATSCapabilities
}

type client struct {
	log logging.ServiceLogger
}

func (c *client) Connect(_ context.Context, url string, handler bridge.InboundHandler) (bridge.Conn, error) {
	nc, err := ConnectFactory(url)
	if err != nil {
		return nil, err
	}
	c.log.Debug("nats connection established", logging.LogFields{"url": url})
	return &conn{nc: nc, handler: handler}, nil
}

type conn struct {
	nc      Conn
	handler bridge.InboundHandler

	mu   sync.Mutex
	subs []*nats.Subscription
}

// AddBeam is a no-op: NATS subjects exist implicitly.
func (c *conn) AddBeam(string) error { return nil }

func (c *conn) Subscribe(beamName string) error {
	sub, err := c.nc.Subscribe(beamName, func(m *nats.Msg) {
		c.handler(beam.NewWavelet(m.Subject, m.Data))
	})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	return nil
}

func (c *conn) Publish(beamName string, payload []byte) error {
	return c.nc.Publish(beamName, payload)
}

func (c *conn) Ping() error {
	return c.nc.FlushTimeout(flushTimeout)
}

func (c *conn) Close() error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()
	for _, sub := range subs {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
	}
	c.nc.Close()
	return nil
}
