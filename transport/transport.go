// Package transport defines the broker client registry for beamline. Each
// backend (channel, nats) lives in its own sub-package and registers itself
// with the registry; the bridge stays ignorant of which backend carries its
// traffic.
package transport

import (
	"context"

	"github.com/luminet/beamline/internal/runtime/bridge"
	"github.com/luminet/beamline/internal/runtime/logging"
)

// Builder is the function signature for creating a broker client from
// config. Each transport package provides a Builder that can be registered.
type Builder func(ctx context.Context, cfg Config, log logging.ServiceLogger) (bridge.Client, error)

// Config provides the configuration values transports need without
// depending on the full config package.
type Config interface {
	// GetTransport returns the backend name ("channel", "nats").
	GetTransport() string

	// GetBrokerURL returns the broker address for networked backends.
	GetBrokerURL() string
}
