package correlate

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/luminet/beamline/internal/runtime/bus"
	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/internal/runtime/metrics"
)

// Jobs correlates job help-requests with their eventual responses. The
// requester supplies its own reply beam inside the request; the registry
// remembers it by job id so the response can be republished there after
// arriving on the shared result beam.
type Jobs struct {
	mu      sync.Mutex
	pending map[uuid.UUID]string

	outbound *bus.Channel[interop.JobRequest]
	log      logging.ServiceLogger
	metrics  *metrics.Collector
}

// NewJobs builds the registry. Inserted requests are forwarded onto outbound
// for the dispatch loop to publish.
func NewJobs(outbound *bus.Channel[interop.JobRequest], log logging.ServiceLogger, collector *metrics.Collector) *Jobs {
	return &Jobs{
		pending:  make(map[uuid.UUID]string),
		outbound: outbound,
		log:      log,
		metrics:  collector,
	}
}

// Insert records the request's reply beam under its job id and forwards the
// request toward the broker. Re-inserting a job id that is still pending is a
// logged no-op.
func (j *Jobs) Insert(ctx context.Context, req interop.JobRequest) error {
	j.mu.Lock()
	if _, exists := j.pending[req.JobID]; exists {
		j.mu.Unlock()
		j.log.Warn("job request already pending", logging.LogFields{"job_id": req.JobID.String()})
		return nil
	}
	j.pending[req.JobID] = req.ResponseBeam
	j.mu.Unlock()

	return j.outbound.Send(ctx, req)
}

// Relay records an inbound help request and forwards it without waiting.
// The dispatch loop both calls this and drains the outbound path, so a full
// queue must drop the request instead of blocking. A dropped request leaves
// no pending entry behind; the remote requester retries or times out.
func (j *Jobs) Relay(req interop.JobRequest) bool {
	j.mu.Lock()
	if _, exists := j.pending[req.JobID]; exists {
		j.mu.Unlock()
		j.log.Warn("job request already pending", logging.LogFields{"job_id": req.JobID.String()})
		return true
	}
	j.pending[req.JobID] = req.ResponseBeam
	j.mu.Unlock()

	if !j.outbound.TrySend(req) {
		j.mu.Lock()
		delete(j.pending, req.JobID)
		j.mu.Unlock()
		return false
	}
	return true
}

// Remove resolves the pending entry for jobID, returning the stored reply
// beam. The second return is false when the id is unknown or was already
// resolved; the caller logs and drops such replies.
func (j *Jobs) Remove(jobID uuid.UUID) (string, bool) {
	j.mu.Lock()
	replyBeam, ok := j.pending[jobID]
	if ok {
		delete(j.pending, jobID)
	}
	j.mu.Unlock()

	if !ok {
		j.log.Warn("no pending entry for job response", logging.LogFields{"job_id": jobID.String()})
		j.metrics.CorrelationMiss("jobs")
	}
	return replyBeam, ok
}

// Pending reports how many job ids are awaiting a response.
func (j *Jobs) Pending() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.pending)
}
