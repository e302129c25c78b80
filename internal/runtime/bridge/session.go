package bridge

import (
	"context"

	"github.com/google/uuid"

	"github.com/luminet/beamline/internal/runtime/correlate"
	errspkg "github.com/luminet/beamline/internal/runtime/errors"
	"github.com/luminet/beamline/internal/runtime/interop"
)

// ready reports whether broker-dependent operations can proceed.
func (b *Bridge) ready() error {
	switch b.State() {
	case StateBridged:
		return nil
	case StateClosed:
		return errspkg.ErrBridgeClosed
	default:
		return errspkg.ErrBridgeStandalone
	}
}

// SpeechCall pairs one audio chunk with the future its transcription
// resolves.
type SpeechCall struct {
	Chunk interop.SpeechToText
	Reply *correlate.Future[interop.SpeechToTextResponse]
}

// Session is one multi-turn prompt stream against the remote tool backend.
// Inbound messages arrive through Recv; the stream ends with a terminal
// message or an explicit Close.
type Session struct {
	id uuid.UUID
	b  *Bridge
	rx chan interop.PromptRx
}

// OpenSession opens an instruction stream seeded with promptStart. The
// registry entry exists before the handshake leaves the process, so the
// first reply can never outrun its correlation entry.
func (b *Bridge) OpenSession(ctx context.Context, promptStart string) (*Session, error) {
	if err := b.ready(); err != nil {
		return nil, err
	}

	tx := interop.NewStream(promptStart)
	rx := make(chan interop.PromptRx, b.cfg.SessionBuffer)
	b.streams.Insert(tx.StreamID, rx)

	if err := b.promptTx.Send(ctx, tx); err != nil {
		b.streams.Remove(tx.StreamID)
		return nil, err
	}
	return &Session{id: tx.StreamID, b: b, rx: rx}, nil
}

// ID returns the stream id carried in every message of this session.
func (s *Session) ID() uuid.UUID { return s.id }

// Recv returns the next inbound message. A terminal message ends the
// session; after it, Recv blocks until ctx expires.
func (s *Session) Recv(ctx context.Context) (interop.PromptRx, error) {
	select {
	case rx := <-s.rx:
		return rx, nil
	case <-ctx.Done():
		return interop.PromptRx{}, ctx.Err()
	}
}

// SendUpdate continues the stream with user text.
func (s *Session) SendUpdate(ctx context.Context, update string) error {
	return s.b.promptTx.Send(ctx, interop.StreamUpdate(s.id, update))
}

// SendToolResult reports a tool outcome back to the stream.
func (s *Session) SendToolResult(ctx context.Context, result interop.ToolResult) error {
	return s.b.promptTx.Send(ctx, interop.ToolResultMessage(s.id, result))
}

// Close abandons the session locally. Replies still in flight resolve as
// correlation misses and are dropped.
func (s *Session) Close() {
	s.b.streams.Remove(s.id)
}

// RequestJobHelp stores the request's reply beam under its job id and sends
// the request toward the broker. The eventual response comes back on the
// reply beam named in req.
func (b *Bridge) RequestJobHelp(ctx context.Context, req interop.JobRequest) error {
	if err := b.ready(); err != nil {
		return err
	}
	return b.jobs.Insert(ctx, req)
}

// Transcribe sends one audio chunk and waits for its transcription. Chunks
// of the same conversation are told apart by sequence number, so callers may
// pipeline them from separate goroutines.
func (b *Bridge) Transcribe(ctx context.Context, chunk interop.SpeechToText) (interop.SpeechToTextResponse, error) {
	if err := b.ready(); err != nil {
		return interop.SpeechToTextResponse{}, err
	}

	reply := correlate.NewFuture[interop.SpeechToTextResponse]()
	if err := b.speechCalls.Send(ctx, SpeechCall{Chunk: chunk, Reply: reply}); err != nil {
		return interop.SpeechToTextResponse{}, err
	}
	return reply.Wait(ctx)
}
