// Package metrics exposes Prometheus instrumentation for the bus and bridge.
// A nil *Collector is valid everywhere and records nothing, so callers never
// branch on whether metrics are enabled.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the counters shared by the dispatch loop and the
// correlation registries.
type Collector struct {
	published       *prometheus.CounterVec
	received        *prometheus.CounterVec
	decodeFailures  *prometheus.CounterVec
	unhandledBeams  prometheus.Counter
	correlationMiss *prometheus.CounterVec
	keepaliveFailed prometheus.Counter
	lagDrops        prometheus.Counter
}

// NewCollector registers beamline counters on reg. Pass
// prometheus.DefaultRegisterer for the process-wide registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_photons_published_total",
			Help: "Photons published to the broker, by beam.",
		}, []string{"beam"}),
		received: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_photons_received_total",
			Help: "Photons received from the broker, by beam.",
		}, []string{"beam"}),
		decodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_decode_failures_total",
			Help: "Inbound payloads that failed to deserialize, by beam.",
		}, []string{"beam"}),
		unhandledBeams: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamline_unhandled_beams_total",
			Help: "Inbound wavelets dropped because no handler matched their beam.",
		}),
		correlationMiss: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "beamline_correlation_misses_total",
			Help: "Replies whose correlation id was unknown or already resolved, by registry.",
		}, []string{"registry"}),
		keepaliveFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamline_keepalive_failures_total",
			Help: "Broker pings that failed and terminated the dispatch loop.",
		}),
		lagDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "beamline_fanout_lag_drops_total",
			Help: "Messages dropped from fan-out rings because a subscriber fell behind.",
		}),
	}
}

func (c *Collector) Published(beam string) {
	if c == nil {
		return
	}
	c.published.WithLabelValues(beam).Inc()
}

func (c *Collector) Received(beam string, photons int) {
	if c == nil {
		return
	}
	c.received.WithLabelValues(beam).Add(float64(photons))
}

func (c *Collector) DecodeFailure(beam string) {
	if c == nil {
		return
	}
	c.decodeFailures.WithLabelValues(beam).Inc()
}

func (c *Collector) UnhandledBeam() {
	if c == nil {
		return
	}
	c.unhandledBeams.Inc()
}

func (c *Collector) CorrelationMiss(registry string) {
	if c == nil {
		return
	}
	c.correlationMiss.WithLabelValues(registry).Inc()
}

func (c *Collector) KeepaliveFailure() {
	if c == nil {
		return
	}
	c.keepaliveFailed.Inc()
}

func (c *Collector) LagDrops(n uint64) {
	if c == nil {
		return
	}
	c.lagDrops.Add(float64(n))
}

// Handler returns an http.Handler serving the gatherer in the Prometheus text
// format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ListenAddress formats the listen address for the metrics endpoint.
func ListenAddress(port int) string {
	return fmt.Sprintf(":%d", port)
}

// Serve exposes gatherer on addr until ctx is cancelled, then shuts the
// server down gracefully. It returns nil after a clean shutdown.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	srv := &http.Server{Addr: addr, Handler: Handler(gatherer)}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
