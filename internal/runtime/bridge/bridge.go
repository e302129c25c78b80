package bridge

import (
	"context"
	"sync/atomic"

	"github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bus"
	"github.com/luminet/beamline/internal/runtime/config"
	"github.com/luminet/beamline/internal/runtime/correlate"
	errspkg "github.com/luminet/beamline/internal/runtime/errors"
	"github.com/luminet/beamline/internal/runtime/interop"
	"github.com/luminet/beamline/internal/runtime/logging"
	"github.com/luminet/beamline/internal/runtime/metrics"
)

// Deps holds the collaborators the bridge needs. Bus, Client, and Logger are
// required; Metrics may be nil.
type Deps struct {
	Bus     *bus.Bus
	Client  Client
	Logger  logging.ServiceLogger
	Metrics *metrics.Collector
}

// Bridge owns the broker connection and the correlation registries layered on
// top of it. Construct it with Dial and drive it with Run.
type Bridge struct {
	cfg     *config.Config
	log     logging.ServiceLogger
	metrics *metrics.Collector
	bus     *bus.Bus

	conn  Conn
	state atomic.Int32

	// declared tracks beams already announced on the connection so job reply
	// beams, which arrive at publish time, get a lazy AddBeam. Touched only
	// by Dial and the dispatch loop.
	declared map[string]struct{}

	// inbound carries wavelets from the client's read loop into the
	// dispatch loop; outbound carries serialized photons the other way.
	inbound  chan beam.Wavelet
	outbound chan beam.Photon
	done     chan struct{}

	voiceBeams  beam.PrivatePair
	promptBeams beam.PrivatePair

	jobs    *correlate.Jobs
	streams *correlate.Streams
	voice   *correlate.Voice

	// Outbound single-consumer queues, drained by the pump goroutines.
	jobRequests *bus.Channel[interop.JobRequest]
	promptTx    *bus.Channel[interop.PromptTx]
	speechCalls *bus.Channel[SpeechCall]

	// Subscriptions feeding entity events from the local bus to the broker.
	users        *bus.Receiver[interop.User]
	tasks        *bus.Receiver[interop.Task]
	taskStates   *bus.Receiver[interop.TaskStatePayload]
	projects     *bus.Receiver[interop.Project]
	flows        *bus.Receiver[interop.Flow]
	graphs       *bus.Receiver[interop.Graph]
	jobResponses *bus.Receiver[interop.JobResponse]
}

// Dial builds a bridge and makes the single connection attempt. A broker that
// cannot be reached is not an error: the bridge comes back in standalone mode
// with the local bus fully usable, and only broker traffic is lost.
func Dial(ctx context.Context, cfg *config.Config, deps Deps) (*Bridge, error) {
	if cfg == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if deps.Bus == nil {
		return nil, errspkg.ErrBusRequired
	}
	if deps.Client == nil {
		return nil, errspkg.ErrClientRequired
	}
	if deps.Logger == nil {
		return nil, errspkg.ErrLoggerRequired
	}

	log := deps.Logger.With(logging.LogFields{"component": "bridge"})

	b := &Bridge{
		cfg:     cfg,
		log:     log,
		metrics: deps.Metrics,
		bus:     deps.Bus,

		inbound:  make(chan beam.Wavelet, cfg.InboundBuffer),
		outbound: make(chan beam.Photon, cfg.QueueCapacity),
		done:     make(chan struct{}),

		voiceBeams:  beam.NewPrivatePair(beam.VoiceNamespace),
		promptBeams: beam.NewPrivatePair(beam.PromptNamespace),

		jobRequests: bus.CreateChannel[interop.JobRequest](deps.Bus),
		promptTx:    bus.CreateChannel[interop.PromptTx](deps.Bus),
		speechCalls: bus.CreateChannel[SpeechCall](deps.Bus),

		users:        bus.Subscribe[interop.User](deps.Bus),
		tasks:        bus.Subscribe[interop.Task](deps.Bus),
		taskStates:   bus.Subscribe[interop.TaskStatePayload](deps.Bus),
		projects:     bus.Subscribe[interop.Project](deps.Bus),
		flows:        bus.Subscribe[interop.Flow](deps.Bus),
		graphs:       bus.Subscribe[interop.Graph](deps.Bus),
		jobResponses: bus.Subscribe[interop.JobResponse](deps.Bus),
	}
	b.streams = correlate.NewStreams(log, deps.Metrics)
	b.voice = correlate.NewVoice(log, deps.Metrics)
	b.jobs = correlate.NewJobs(b.jobRequests, log, deps.Metrics)
	b.state.Store(int32(StateConnecting))

	conn, err := deps.Client.Connect(ctx, cfg.BrokerURL, b.handleInbound)
	if err != nil {
		b.state.Store(int32(StateStandalone))
		log.Warn("running in standalone mode, no broker connection", logging.LogFields{
			"url":   cfg.BrokerURL,
			"error": err.Error(),
		})
		return b, nil
	}

	if err := b.setupBeams(conn); err != nil {
		conn.Close()
		b.state.Store(int32(StateClosed))
		return nil, err
	}

	b.conn = conn
	b.state.Store(int32(StateBridged))
	log.Info("connected to broker", logging.LogFields{"url": cfg.BrokerURL})
	return b, nil
}

// setupBeams declares every beam this process publishes and subscribes every
// beam it consumes, including the two per-bridge dynamic reply beams.
func (b *Bridge) setupBeams(conn Conn) error {
	b.declared = make(map[string]struct{})
	publishes := []string{
		beam.UserCreated,
		beam.UserUpdated,
		beam.TaskCreated,
		beam.TaskUpdated,
		beam.TaskAssigneeChanged,
		beam.TaskStateChanged,
		beam.ProjectCreated,
		beam.ProjectUpdated,
		beam.FlowCreated,
		beam.FlowUpdated,
		beam.JobRequest,
		b.voiceBeams.Request,
		b.promptBeams.Request,
	}
	for _, name := range publishes {
		if err := conn.AddBeam(name); err != nil {
			return err
		}
		b.declared[name] = struct{}{}
	}

	subscribes := []string{
		beam.JobResult,
		beam.JobCreated,
		beam.JobHelpRequest,
		beam.UserCreated,
		b.voiceBeams.Reply,
		b.promptBeams.Reply,
	}
	for _, name := range subscribes {
		if err := conn.Subscribe(name); err != nil {
			return err
		}
	}
	return nil
}

// handleInbound is called by the broker client for every delivered wavelet.
// It never blocks the client's read loop: when the inbound buffer is full the
// handoff moves to its own goroutine. That goroutine races later deliveries,
// so once the buffer overflows wavelets can reach the dispatch loop out of
// arrival order. No cross-wavelet ordering is promised; correlation happens
// by id inside the payloads.
func (b *Bridge) handleInbound(w beam.Wavelet) {
	select {
	case b.inbound <- w:
	default:
		go func() {
			select {
			case b.inbound <- w:
			case <-b.done:
			}
		}()
	}
}

// State reports the bridge lifecycle state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// Jobs returns the job help-request registry.
func (b *Bridge) Jobs() *correlate.Jobs { return b.jobs }

// Streams returns the prompt session registry.
func (b *Bridge) Streams() *correlate.Streams { return b.streams }

// Voice returns the speech-to-text registry.
func (b *Bridge) Voice() *correlate.Voice { return b.voice }

// VoiceReplyBeam names the dynamic beam transcription responses arrive on.
func (b *Bridge) VoiceReplyBeam() string { return b.voiceBeams.Reply }

// PromptReplyBeam names the dynamic beam prompt responses arrive on.
func (b *Bridge) PromptReplyBeam() string { return b.promptBeams.Reply }

func (b *Bridge) closed() {
	if b.State() == StateClosed {
		return
	}
	b.state.Store(int32(StateClosed))
	close(b.done)
	if b.conn != nil {
		b.conn.Close()
	}
}
