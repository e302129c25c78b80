package correlate

import (
	"sync"

	"github.com/google/uuid"

	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/internal/runtime/metrics"
)

// VoiceKey identifies one transcription chunk. A conversation can have many
// chunks in flight at once, so the sequence number is part of the key.
type VoiceKey struct {
	ConversationID uuid.UUID
	Seq            int
}

// Voice correlates speech-to-text chunks with their single-shot reply
// futures.
type Voice struct {
	mu      sync.Mutex
	pending map[VoiceKey]*Future[interop.SpeechToTextResponse]

	log     logging.ServiceLogger
	metrics *metrics.Collector
}

// NewVoice builds an empty registry.
func NewVoice(log logging.ServiceLogger, collector *metrics.Collector) *Voice {
	return &Voice{
		pending: make(map[VoiceKey]*Future[interop.SpeechToTextResponse]),
		log:     log,
		metrics: collector,
	}
}

// Insert registers future as the reply slot for the chunk.
func (v *Voice) Insert(conversationID uuid.UUID, seq int, future *Future[interop.SpeechToTextResponse]) {
	key := VoiceKey{ConversationID: conversationID, Seq: seq}
	v.mu.Lock()
	v.pending[key] = future
	v.mu.Unlock()
}

// SendResponse resolves exactly the future whose key matches the response and
// removes it. Responses without a pending entry are dropped.
func (v *Voice) SendResponse(resp interop.SpeechToTextResponse) {
	key := VoiceKey{ConversationID: resp.ConversationID, Seq: resp.Seq}

	v.mu.Lock()
	future, ok := v.pending[key]
	if ok {
		delete(v.pending, key)
	}
	v.mu.Unlock()

	if !ok {
		v.metrics.CorrelationMiss("voice")
		return
	}
	future.Resolve(resp)
}

// Pending reports how many chunks are awaiting transcription.
func (v *Voice) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pending)
}
