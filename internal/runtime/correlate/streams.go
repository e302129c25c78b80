package correlate

import (
	"sync"

	"github.com/google/uuid"

	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/internal/runtime/metrics"
)

// Streams correlates multi-turn prompt sessions with their response senders.
// All sessions share one dynamic reply beam; the stream id inside each
// payload selects the session.
type Streams struct {
	mu      sync.Mutex
	pending map[uuid.UUID]chan<- interop.PromptRx

	log     logging.ServiceLogger
	metrics *metrics.Collector
}

// NewStreams builds an empty registry.
func NewStreams(log logging.ServiceLogger, collector *metrics.Collector) *Streams {
	return &Streams{
		pending: make(map[uuid.UUID]chan<- interop.PromptRx),
		log:     log,
		metrics: collector,
	}
}

// Insert registers sender as the destination for responses on streamID.
func (s *Streams) Insert(streamID uuid.UUID, sender chan<- interop.PromptRx) {
	s.mu.Lock()
	s.pending[streamID] = sender
	s.mu.Unlock()
}

// Remove drops the entry for streamID, reporting whether one existed. Used by
// the timeout-guarded call path to stop a stream it no longer waits on.
func (s *Streams) Remove(streamID uuid.UUID) bool {
	s.mu.Lock()
	_, ok := s.pending[streamID]
	delete(s.pending, streamID)
	s.mu.Unlock()
	return ok
}

// SendResponse routes rx to the sender registered under its stream id. A
// terminal close removes the entry before delivering, so nothing can reach
// the sender afterwards. Responses for unknown or already-closed streams are
// dropped with a debug log.
func (s *Streams) SendResponse(rx interop.PromptRx) {
	var sender chan<- interop.PromptRx
	var ok bool

	if rx.Terminal() {
		s.mu.Lock()
		sender, ok = s.pending[rx.StreamID]
		delete(s.pending, rx.StreamID)
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		sender, ok = s.pending[rx.StreamID]
		s.mu.Unlock()
	}

	if !ok {
		s.metrics.CorrelationMiss("streams")
		s.log.Debug("prompt response for unknown stream dropped", logging.LogFields{
			"stream_id": rx.StreamID.String(),
		})
		return
	}

	select {
	case sender <- rx:
	default:
		s.log.Warn("prompt session buffer full, response dropped", logging.LogFields{
			"stream_id": rx.StreamID.String(),
		})
	}
}

// Pending reports how many streams are open.
func (s *Streams) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
