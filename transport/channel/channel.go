// Package channel provides an in-memory transport backed by watermill's
// gochannel pub/sub. Useful for tests and single-process runs; wavelets
// never leave the process.
package channel

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bridge"
	"github.com/luminet/beamline/internal/runtime/ids"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/transport"
)

// TransportName is the name used to register this transport.
const TransportName = "channel"

// Factory allows overriding the pub/sub creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) *gochannel.GoChannel {
	return gochannel.NewGoChannel(cfg, logger)
}

func init() {
	transport.RegisterWithCapabilities(TransportName, Build, transport.ChannelCapabilities)
}

// Build creates the in-memory transport.
func Build(_ context.Context, _ transport.Config, log logging.ServiceLogger) (bridge.Client, error) {
	return &client{log: log}, nil
}

// Capabilities returns the capabilities of this transport.
func Capabilities() transport.Capabilities {
	return transport.ChannelCapabilities
}

type client struct {
	log logging.ServiceLogger
}

// Connect never fails; the URL is ignored. Subscriptions live until Close.
func (c *client) Connect(_ context.Context, _ string, handler bridge.InboundHandler) (bridge.Conn, error) {
	pubSub := Factory(gochannel.Config{}, logging.NewWatermillAdapter(c.log))
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		pubSub:  pubSub,
		handler: handler,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[string]struct{}),
	}, nil
}

type conn struct {
	pubSub  *gochannel.GoChannel
	handler bridge.InboundHandler
	ctx     context.Context
	cancel  context.CancelFunc

	mu   sync.Mutex
	subs map[string]struct{}
}

// AddBeam is a no-op: in-memory topics exist implicitly.
func (c *conn) AddBeam(string) error { return nil }

func (c *conn) Subscribe(beamName string) error {
	c.mu.Lock()
	if _, ok := c.subs[beamName]; ok {
		c.mu.Unlock()
		return nil
	}
	c.subs[beamName] = struct{}{}
	c.mu.Unlock()

	messages, err := c.pubSub.Subscribe(c.ctx, beamName)
	if err != nil {
		return err
	}
	go func() {
		for msg := range messages {
			c.handler(beam.NewWavelet(beamName, msg.Payload))
			msg.Ack()
		}
	}()
	return nil
}

func (c *conn) Publish(beamName string, payload []byte) error {
	return c.pubSub.Publish(beamName, message.NewMessage(ids.CreateULID(), payload))
}

// Ping has no wire to verify.
func (c *conn) Ping() error { return nil }

func (c *conn) Close() error {
	c.cancel()
	return c.pubSub.Close()
}
