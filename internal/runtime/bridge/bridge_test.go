package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bus"
	"github.com/luminet/beamline/internal/runtime/config"
	errspkg "github.com/luminet/beamline/internal/runtime/errors"
	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/jsoncodec"
	"github.com/luminet/beamline/internal/runtime/logging"
)

type stubConn struct {
	mu        sync.Mutex
	beams     []string
	subs      []string
	published []beam.Photon
	pings     int

	pingErr    error
	publishErr error

	// notify receives a copy of every published photon so tests can wait
	// without polling.
	notify chan beam.Photon
}

func newStubConn() *stubConn {
	return &stubConn{notify: make(chan beam.Photon, 64)}
}

func (c *stubConn) AddBeam(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.beams = append(c.beams, name)
	return nil
}

func (c *stubConn) Subscribe(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, name)
	return nil
}

func (c *stubConn) Publish(beamName string, payload []byte) error {
	c.mu.Lock()
	err := c.publishErr
	p := beam.Photon{Beam: beamName, Payload: payload}
	if err == nil {
		c.published = append(c.published, p)
	}
	c.mu.Unlock()
	if err == nil {
		c.notify <- p
	}
	return err
}

func (c *stubConn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pings++
	return c.pingErr
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) declaredBeams() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.beams...)
}

type stubClient struct {
	conn    *stubConn
	err     error
	handler InboundHandler
}

func (c *stubClient) Connect(_ context.Context, _ string, handler InboundHandler) (Conn, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.handler = handler
	return c.conn, nil
}

func (c *stubClient) deliver(w beam.Wavelet) { c.handler(w) }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.BrokerURL = "nats://broker.test:4222"
	return cfg
}

func newTestBridge(t *testing.T, cfg *config.Config) (*Bridge, *stubClient, *bus.Bus) {
	t.Helper()
	b := bus.New()
	client := &stubClient{conn: newStubConn()}
	br, err := Dial(context.Background(), cfg, Deps{
		Bus:    b,
		Client: client,
		Logger: logging.NewNopLogger(),
	})
	require.NoError(t, err)
	require.Equal(t, StateBridged, br.State())
	return br, client, b
}

func runBridge(t *testing.T, br *Bridge) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = br.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitPublish(t *testing.T, conn *stubConn, beamName string) beam.Photon {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-conn.notify:
			if p.Beam == beamName {
				return p
			}
		case <-deadline:
			t.Fatalf("no publish on %q within deadline", beamName)
		}
	}
}

func TestDialRequiresDeps(t *testing.T) {
	cfg := testConfig()
	b := bus.New()
	client := &stubClient{conn: newStubConn()}
	log := logging.NewNopLogger()

	_, err := Dial(context.Background(), nil, Deps{Bus: b, Client: client, Logger: log})
	require.ErrorIs(t, err, errspkg.ErrConfigRequired)

	_, err = Dial(context.Background(), cfg, Deps{Client: client, Logger: log})
	require.ErrorIs(t, err, errspkg.ErrBusRequired)

	_, err = Dial(context.Background(), cfg, Deps{Bus: b, Logger: log})
	require.ErrorIs(t, err, errspkg.ErrClientRequired)

	_, err = Dial(context.Background(), cfg, Deps{Bus: b, Client: client})
	require.ErrorIs(t, err, errspkg.ErrLoggerRequired)
}

func TestDialStandaloneOnConnectFailure(t *testing.T) {
	client := &stubClient{err: errors.New("connection refused")}
	br, err := Dial(context.Background(), testConfig(), Deps{
		Bus:    bus.New(),
		Client: client,
		Logger: logging.NewNopLogger(),
	})
	require.NoError(t, err)
	require.Equal(t, StateStandalone, br.State())

	// Run is a no-op without a connection.
	require.NoError(t, br.Run(context.Background()))

	_, err = br.OpenSession(context.Background(), "hello")
	assert.ErrorIs(t, err, errspkg.ErrBridgeStandalone)

	err = br.RequestJobHelp(context.Background(), interop.JobRequest{JobID: uuid.New()})
	assert.ErrorIs(t, err, errspkg.ErrBridgeStandalone)

	_, err = br.Transcribe(context.Background(), interop.SpeechToText{})
	assert.ErrorIs(t, err, errspkg.ErrBridgeStandalone)

	title, ok := br.DeriveTitle(context.Background(), "a long description")
	assert.False(t, ok)
	assert.Empty(t, title)
}

func TestDialDeclaresWellKnownAndDynamicBeams(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())

	declared := client.conn.declaredBeams()
	assert.Contains(t, declared, beam.UserCreated)
	assert.Contains(t, declared, beam.TaskCreated)
	assert.Contains(t, declared, beam.JobRequest)
	assert.Contains(t, declared, br.voiceBeams.Request)
	assert.Contains(t, declared, br.promptBeams.Request)

	assert.Contains(t, client.conn.subs, beam.JobResult)
	assert.Contains(t, client.conn.subs, beam.JobHelpRequest)
	assert.Contains(t, client.conn.subs, br.VoiceReplyBeam())
	assert.Contains(t, client.conn.subs, br.PromptReplyBeam())
}

func TestRunForwardsLocalEventsToBroker(t *testing.T) {
	cfg := testConfig()
	br, client, b := newTestBridge(t, cfg)
	runBridge(t, br)

	user := interop.User{ID: uuid.New(), Username: "ada"}
	bus.Announce[interop.User](b).Publish(user)

	p := waitPublish(t, client.conn, beam.UserCreated)
	var got interop.User
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &got))
	assert.Equal(t, user.ID, got.ID)
}

func TestJobHelpRequestResponseFlow(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	jobID := uuid.New()
	req := interop.JobRequest{
		JobID:        jobID,
		ResponseBeam: "urn:beamline:private:r7",
		Help:         "deploy is stuck",
	}
	require.NoError(t, br.RequestJobHelp(context.Background(), req))

	p := waitPublish(t, client.conn, beam.JobRequest)
	var sent interop.JobRequest
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &sent))
	assert.Equal(t, jobID, sent.JobID)

	resp := interop.JobResponse{JobID: jobID, Help: &interop.HelpResponse{Result: "done"}}
	payload, err := jsoncodec.Marshal(resp)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(beam.JobResult, payload))

	reply := waitPublish(t, client.conn, req.ResponseBeam)
	var got interop.JobResponse
	require.NoError(t, jsoncodec.Unmarshal(reply.Payload, &got))
	require.NotNil(t, got.Help)
	assert.Equal(t, "done", got.Help.Result)

	// A second result for the same job finds no entry and is dropped.
	client.deliver(beam.NewWavelet(beam.JobResult, payload))
	client.deliver(beam.NewWavelet("urn:beamline:unknown", []byte("{}")))
	select {
	case p := <-client.conn.notify:
		t.Fatalf("unexpected publish on %q", p.Beam)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestInboundHelpRequestIsRelayed(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	req := interop.JobRequest{JobID: uuid.New(), ResponseBeam: "urn:beamline:private:rr"}
	payload, err := jsoncodec.Marshal(req)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(beam.JobHelpRequest, payload))

	p := waitPublish(t, client.conn, beam.JobRequest)
	var relayed interop.JobRequest
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &relayed))
	assert.Equal(t, req.JobID, relayed.JobID)
	assert.Equal(t, 1, br.Jobs().Pending())
}

func TestInboundHelpRequestBurstKeepsLoopAlive(t *testing.T) {
	cfg := testConfig()
	cfg.QueueCapacity = 2
	br, client, _ := newTestBridge(t, cfg)
	runBridge(t, br)

	// One wavelet carrying far more help requests than the relay queue and
	// outbound buffer hold together. Excess requests drop; the loop must
	// keep dispatching.
	photons := make([]beam.Photon, 0, 200)
	for i := 0; i < 200; i++ {
		req := interop.JobRequest{JobID: uuid.New(), ResponseBeam: "urn:beamline:private:burst"}
		payload, err := jsoncodec.Marshal(req)
		require.NoError(t, err)
		photons = append(photons, beam.Photon{Beam: beam.JobHelpRequest, Payload: payload})
	}
	w, err := beam.Merge(photons...)
	require.NoError(t, err)
	client.deliver(w)

	waitPublish(t, client.conn, beam.JobRequest)

	// A fresh local request still reaches the broker afterwards.
	local := interop.JobRequest{JobID: uuid.New(), ResponseBeam: "urn:beamline:private:after"}
	require.NoError(t, br.RequestJobHelp(context.Background(), local))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case p := <-client.conn.notify:
			if p.Beam != beam.JobRequest {
				continue
			}
			var relayed interop.JobRequest
			require.NoError(t, jsoncodec.Unmarshal(p.Payload, &relayed))
			if relayed.JobID == local.JobID {
				return
			}
		case <-deadline:
			t.Fatal("dispatch loop stopped relaying after the burst")
		}
	}
}

func TestPromptSessionRoundTrip(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	ctx := context.Background()
	session, err := br.OpenSession(ctx, "plan the release")
	require.NoError(t, err)

	p := waitPublish(t, client.conn, br.promptBeams.Request)
	var handshake interop.PromptTx
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &handshake))
	require.Equal(t, interop.PromptTxHandshake, handshake.Kind)
	assert.Equal(t, session.ID(), handshake.StreamID)
	require.NotNil(t, handshake.Handshake)
	assert.Equal(t, interop.PromptIDInstructStream, handshake.Handshake.PromptID)

	chunk := interop.PromptRx{
		StreamID: session.ID(),
		Kind:     interop.PromptRxStream,
		Stream:   &interop.StreamChunk{Update: "working on it"},
	}
	payload, err := jsoncodec.Marshal(chunk)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.PromptReplyBeam(), payload))

	rx, err := session.Recv(ctx)
	require.NoError(t, err)
	require.NotNil(t, rx.Stream)
	assert.Equal(t, "working on it", rx.Stream.Update)

	terminal := interop.PromptRx{
		StreamID: session.ID(),
		Kind:     interop.PromptRxClose,
		Close:    &interop.CloseResponse{Text: "release planned"},
	}
	payload, err = jsoncodec.Marshal(terminal)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.PromptReplyBeam(), payload))

	rx, err = session.Recv(ctx)
	require.NoError(t, err)
	assert.True(t, rx.Terminal())
	assert.Equal(t, 0, br.Streams().Pending())
}

func TestTranscribeResolvesByConversationAndSeq(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	chunk := interop.SpeechToText{
		ConversationID: uuid.New(),
		Seq:            3,
		Samples:        []float32{0.1, -0.2},
	}

	type result struct {
		resp interop.SpeechToTextResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := br.Transcribe(context.Background(), chunk)
		done <- result{resp, err}
	}()

	p := waitPublish(t, client.conn, br.voiceBeams.Request)
	req, err := interop.DecodeSpeechRequest(p.Payload)
	require.NoError(t, err)
	assert.Equal(t, br.VoiceReplyBeam(), req.Beam)
	assert.Equal(t, chunk.Seq, req.Seq)

	resp := interop.SpeechToTextResponse{
		ConversationID: chunk.ConversationID,
		Seq:            chunk.Seq,
		Text:           "hello world",
	}
	payload, err := interop.EncodeSpeechResponse(resp)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.VoiceReplyBeam(), payload))

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.Equal(t, "hello world", r.resp.Text)
	case <-time.After(2 * time.Second):
		t.Fatal("transcription did not resolve")
	}
	assert.Equal(t, 0, br.Voice().Pending())
}

func TestDeriveTitleSuccess(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	type result struct {
		title string
		ok    bool
	}
	done := make(chan result, 1)
	go func() {
		title, ok := br.DeriveTitle(context.Background(), "implement the frobnicator end to end")
		done <- result{title, ok}
	}()

	p := waitPublish(t, client.conn, br.promptBeams.Request)
	var handshake interop.PromptTx
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &handshake))
	require.NotNil(t, handshake.Handshake)
	assert.Equal(t, interop.PromptIDTitleFromDescription, handshake.Handshake.PromptID)

	reply := interop.PromptRx{
		StreamID: handshake.StreamID,
		Kind:     interop.PromptRxClose,
		Close:    &interop.CloseResponse{Text: "Implement frobnicator"},
	}
	payload, err := jsoncodec.Marshal(reply)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.PromptReplyBeam(), payload))

	select {
	case r := <-done:
		require.True(t, r.ok)
		assert.Equal(t, "Implement frobnicator", r.title)
	case <-time.After(2 * time.Second):
		t.Fatal("title derivation did not resolve")
	}
}

func TestDeriveTitleDrainsStreamChunksBeforeClose(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	type result struct {
		title string
		ok    bool
	}
	done := make(chan result, 1)
	go func() {
		title, ok := br.DeriveTitle(context.Background(), "untangle the scheduler")
		done <- result{title, ok}
	}()

	p := waitPublish(t, client.conn, br.promptBeams.Request)
	var handshake interop.PromptTx
	require.NoError(t, jsoncodec.Unmarshal(p.Payload, &handshake))

	// A backend that streams before closing must not abort the derivation.
	chunk := interop.PromptRx{
		StreamID: handshake.StreamID,
		Kind:     interop.PromptRxStream,
		Stream:   &interop.StreamChunk{Update: "Untangle"},
	}
	chunkPayload, err := jsoncodec.Marshal(chunk)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.PromptReplyBeam(), chunkPayload))

	closing := interop.PromptRx{
		StreamID: handshake.StreamID,
		Kind:     interop.PromptRxClose,
		Close:    &interop.CloseResponse{Text: "Untangle the scheduler"},
	}
	closePayload, err := jsoncodec.Marshal(closing)
	require.NoError(t, err)
	client.deliver(beam.NewWavelet(br.PromptReplyBeam(), closePayload))

	select {
	case r := <-done:
		require.True(t, r.ok)
		assert.Equal(t, "Untangle the scheduler", r.title)
	case <-time.After(2 * time.Second):
		t.Fatal("title derivation did not resolve")
	}
}

func TestInboundDecodeFailureSkipsPhoton(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	runBridge(t, br)

	jobID := uuid.New()
	require.NoError(t, br.RequestJobHelp(context.Background(), interop.JobRequest{
		JobID:        jobID,
		ResponseBeam: "urn:beamline:private:rx",
	}))
	waitPublish(t, client.conn, beam.JobRequest)

	good, err := jsoncodec.Marshal(interop.JobResponse{JobID: jobID})
	require.NoError(t, err)
	w, err := beam.Merge(
		beam.Photon{Beam: beam.JobResult, Payload: []byte("not json")},
		beam.Photon{Beam: beam.JobResult, Payload: good},
	)
	require.NoError(t, err)
	client.deliver(w)

	// The garbage photon is skipped; the valid one still resolves.
	waitPublish(t, client.conn, "urn:beamline:private:rx")
}

func TestKeepaliveFailureClosesBridge(t *testing.T) {
	cfg := testConfig()
	cfg.KeepaliveInterval = 20 * time.Millisecond
	br, client, _ := newTestBridge(t, cfg)
	client.conn.pingErr = errors.New("broken pipe")

	err := br.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateClosed, br.State())

	err = br.RequestJobHelp(context.Background(), interop.JobRequest{JobID: uuid.New()})
	assert.ErrorIs(t, err, errspkg.ErrBridgeClosed)
}

func TestPublishFailureClosesBridge(t *testing.T) {
	br, client, _ := newTestBridge(t, testConfig())
	client.conn.publishErr = errors.New("broken pipe")

	done := make(chan error, 1)
	go func() { done <- br.Run(context.Background()) }()

	require.NoError(t, br.RequestJobHelp(context.Background(), interop.JobRequest{
		JobID:        uuid.New(),
		ResponseBeam: "urn:beamline:private:rp",
	}))

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, StateClosed, br.State())
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not close on publish failure")
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "standalone", StateStandalone.String())
	assert.Equal(t, "bridged", StateBridged.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(99).String())
}
