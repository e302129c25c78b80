// Package bridge connects the local typed bus to an external message broker.
// One long-lived dispatch loop owns the broker connection: every other
// component reaches the broker only through local queues and the correlation
// registries, never through the connection itself.
package bridge

import (
	"context"

	"github.com/luminet/beamline/internal/runtime/beam"
)

// InboundHandler receives every wavelet the broker delivers. Implementations
// hand the client's read loop back immediately; anything nontrivial happens
// on another goroutine.
type InboundHandler func(w beam.Wavelet)

// Client dials a broker. Connect makes exactly one attempt; retrying is the
// caller's decision, not the client's.
type Client interface {
	Connect(ctx context.Context, url string, handler InboundHandler) (Conn, error)
}

// Conn is an established broker connection. It is not safe for concurrent
// use; the dispatch loop is its only caller.
type Conn interface {
	// AddBeam declares that this process will publish on the beam.
	AddBeam(beam string) error
	// Subscribe requests delivery of wavelets published on the beam.
	Subscribe(beam string) error
	// Publish sends one payload under the beam.
	Publish(beam string, payload []byte) error
	// Ping issues a no-op round trip to verify the connection is alive.
	Ping() error
	Close() error
}

// State is the bridge lifecycle. Standalone and Closed are terminal.
type State int32

const (
	StateConnecting State = iota
	StateStandalone
	StateBridged
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStandalone:
		return "standalone"
	case StateBridged:
		return "bridged"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
