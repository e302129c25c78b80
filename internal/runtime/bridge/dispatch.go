package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bus"
	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/jsoncodec"
	"github.com/luminet/beamline/internal/runtime/logging"
)

// Run drives the dispatch loop until ctx is cancelled or the broker
// connection fails. It is the only goroutine that touches the connection
// after Dial. In standalone mode Run returns immediately with no error; the
// local bus keeps working without it.
func (b *Bridge) Run(ctx context.Context) error {
	if b.State() != StateBridged {
		return nil
	}
	defer b.closed()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()
	b.startPumps(ctx, &wg)

	keepalive := time.NewTimer(b.cfg.KeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-keepalive.C:
			if err := b.conn.Ping(); err != nil {
				b.metrics.KeepaliveFailure()
				b.log.Error("broker keepalive failed, closing bridge", err, nil)
				return err
			}
			keepalive.Reset(b.cfg.KeepaliveInterval)

		case p := <-b.outbound:
			if err := b.publish(p); err != nil {
				b.log.Error("broker publish failed, closing bridge", err, logging.LogFields{
					"beam": p.Beam,
				})
				return err
			}
			resetKeepalive(keepalive, b.cfg.KeepaliveInterval)

		case w := <-b.inbound:
			b.dispatch(ctx, w)
		}
	}
}

// Outbound traffic proves the connection alive as well as a ping does, so
// the timer restarts after every publish.
func resetKeepalive(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

func (b *Bridge) publish(p beam.Photon) error {
	if _, ok := b.declared[p.Beam]; !ok {
		if err := b.conn.AddBeam(p.Beam); err != nil {
			return err
		}
		b.declared[p.Beam] = struct{}{}
	}
	if err := b.conn.Publish(p.Beam, p.Payload); err != nil {
		return err
	}
	b.metrics.Published(p.Beam)
	return nil
}

func (b *Bridge) startPumps(ctx context.Context, wg *sync.WaitGroup) {
	pumps := []func(context.Context){
		pumpFanout(b, b.users, beam.UserCreated),
		pumpFanout(b, b.tasks, beam.TaskCreated),
		pumpFanout(b, b.taskStates, beam.TaskStateChanged),
		pumpFanout(b, b.projects, beam.ProjectCreated),
		pumpFanout(b, b.flows, beam.FlowCreated),
		pumpFanout(b, b.graphs, beam.FlowUpdated),
		b.pumpJobRequests,
		b.pumpJobResponses,
		b.pumpPromptTx,
		b.pumpSpeech,
	}
	for _, pump := range pumps {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pump(ctx)
		}()
	}
}

// pumpFanout forwards every locally published value of one type to the broker
// under a fixed beam. A lagged receiver logs what it lost and keeps going;
// the traffic is lossy by contract.
func pumpFanout[T any](b *Bridge, r *bus.Receiver[T], beamName string) func(context.Context) {
	return func(ctx context.Context) {
		for {
			v, err := r.Recv(ctx)
			if err != nil {
				var lag *bus.LagError
				if errors.As(err, &lag) {
					b.log.Warn("fan-out receiver lagged", logging.LogFields{
						"beam":    beamName,
						"skipped": lag.Skipped,
					})
					b.metrics.LagDrops(lag.Skipped)
					continue
				}
				return
			}
			b.enqueueJSON(ctx, beamName, v)
		}
	}
}

func (b *Bridge) pumpJobRequests(ctx context.Context) {
	for {
		req, err := b.jobRequests.Recv(ctx)
		if err != nil {
			return
		}
		b.enqueueJSON(ctx, beam.JobRequest, req)
	}
}

// pumpJobResponses lets a worker in this process answer a pending help
// request: its JobResponse on the local bus resolves the registry entry and
// the response goes out on the requester's private reply beam.
func (b *Bridge) pumpJobResponses(ctx context.Context) {
	for {
		resp, err := b.jobResponses.Recv(ctx)
		if err != nil {
			var lag *bus.LagError
			if errors.As(err, &lag) {
				b.log.Warn("job response receiver lagged", logging.LogFields{
					"skipped": lag.Skipped,
				})
				b.metrics.LagDrops(lag.Skipped)
				continue
			}
			return
		}
		replyBeam, ok := b.jobs.Remove(resp.JobID)
		if !ok {
			continue
		}
		b.enqueueJSON(ctx, replyBeam, resp)
	}
}

func (b *Bridge) pumpPromptTx(ctx context.Context) {
	for {
		tx, err := b.promptTx.Recv(ctx)
		if err != nil {
			return
		}
		b.enqueueJSON(ctx, b.promptBeams.Request, tx)
	}
}

// pumpSpeech registers each chunk's future before the request leaves the
// process, so a reply can never race past its registry entry.
func (b *Bridge) pumpSpeech(ctx context.Context) {
	for {
		call, err := b.speechCalls.Recv(ctx)
		if err != nil {
			return
		}
		payload, err := interop.EncodeSpeechRequest(
			interop.NewSpeechRequest(call.Chunk, b.voiceBeams.Reply))
		if err != nil {
			b.log.Error("encoding speech request failed", err, logging.LogFields{
				"conversation_id": call.Chunk.ConversationID,
				"seq":             call.Chunk.Seq,
			})
			continue
		}
		b.voice.Insert(call.Chunk.ConversationID, call.Chunk.Seq, call.Reply)
		b.enqueue(ctx, beam.Photon{Beam: b.voiceBeams.Request, Payload: payload})
	}
}

func (b *Bridge) enqueueJSON(ctx context.Context, beamName string, v any) {
	payload, err := jsoncodec.Marshal(v)
	if err != nil {
		b.log.Error("encoding outbound payload failed", err, logging.LogFields{
			"beam": beamName,
		})
		return
	}
	b.enqueue(ctx, beam.Photon{Beam: beamName, Payload: payload})
}

func (b *Bridge) enqueue(ctx context.Context, p beam.Photon) {
	select {
	case b.outbound <- p:
	case <-ctx.Done():
	}
}

// dispatch routes one inbound wavelet. Well-known beams match exactly; the
// two dynamic reply beams match by string equality against this bridge's
// allocations. Anything else is dropped with a warning.
func (b *Bridge) dispatch(ctx context.Context, w beam.Wavelet) {
	b.metrics.Received(w.Beam, w.Len())

	switch w.Beam {
	case beam.JobResult:
		for _, p := range w.Photons() {
			var resp interop.JobResponse
			if err := jsoncodec.Unmarshal(p.Payload, &resp); err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			replyBeam, ok := b.jobs.Remove(resp.JobID)
			if !ok {
				continue
			}
			b.enqueueJSON(ctx, replyBeam, resp)
		}

	case beam.JobCreated:
		for _, p := range w.Photons() {
			var job interop.DenormalizedJob
			if err := jsoncodec.Unmarshal(p.Payload, &job); err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			forwardLocal(b, job, "job")
		}

	case beam.JobHelpRequest:
		for _, p := range w.Photons() {
			var req interop.JobRequest
			if err := jsoncodec.Unmarshal(p.Payload, &req); err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			if !b.jobs.Relay(req) {
				b.log.Warn("help request dropped, relay queue full", logging.LogFields{
					"job_id": req.JobID.String(),
				})
			}
		}

	case beam.UserCreated:
		for _, p := range w.Photons() {
			var user interop.User
			if err := jsoncodec.Unmarshal(p.Payload, &user); err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			forwardLocal(b, user, "user")
		}

	case b.voiceBeams.Reply:
		for _, p := range w.Photons() {
			resp, err := interop.DecodeSpeechResponse(p.Payload)
			if err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			b.voice.SendResponse(resp)
		}

	case b.promptBeams.Reply:
		for _, p := range w.Photons() {
			var rx interop.PromptRx
			if err := jsoncodec.Unmarshal(p.Payload, &rx); err != nil {
				b.decodeFailure(w.Beam, err)
				continue
			}
			b.streams.SendResponse(rx)
		}

	default:
		b.log.Warn("unhandled beam dropped", logging.LogFields{"beam": w.Beam})
		b.metrics.UnhandledBeam()
	}
}

func (b *Bridge) decodeFailure(beamName string, err error) {
	b.log.Error("decoding inbound payload failed", err, logging.LogFields{
		"beam": beamName,
	})
	b.metrics.DecodeFailure(beamName)
}

// forwardLocal hands an inbound value to the local single-consumer channel of
// its type, if any consumer has registered one. A full queue drops the value
// rather than stalling the dispatch loop.
func forwardLocal[T any](b *Bridge, v T, what string) {
	sender, ok := bus.Address[T](b.bus)
	if !ok {
		b.log.Debug("no local consumer registered, dropping inbound payload",
			logging.LogFields{"payload": what})
		return
	}
	if !sender.TrySend(v) {
		b.log.Warn("local queue full, dropping inbound payload",
			logging.LogFields{"payload": what})
	}
}
