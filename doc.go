// Package beamline is an in-process, type-indexed event bus with a bridge to
// an external message broker. Components publish and subscribe by Go type:
// fan-out topics deliver to every subscriber and drop the oldest messages
// when a subscriber lags, single-consumer channels deliver each value exactly
// once and apply backpressure.
//
// The bridge mirrors selected local traffic onto broker topics ("beams") and
// carries three request/reply protocols across process boundaries: job
// help-requests correlated by job id, multi-turn prompt sessions correlated
// by stream id, and voice transcription chunks correlated by conversation id
// and sequence number. Each bridge allocates private reply beams at startup,
// so replies find their way back without any broker-side routing state.
//
// A broker that cannot be reached at startup is not fatal: the bridge runs
// in standalone mode, the local bus keeps working, and broker-dependent
// operations fail with ErrBridgeStandalone.
//
// # Transports
//
// Two broker backends ship in transport/ sub-packages:
//   - channel: in-memory, backed by watermill's gochannel, for tests and
//     single-process runs
//   - nats: NATS Core for cross-process traffic
//
// A minimal setup reads Config from the environment, builds a client through
// the transport registry, dials the bridge, and runs its dispatch loop:
//
//	cfg, err := beamline.FromEnv()
//	if err != nil { ... }
//	b := beamline.NewBus()
//	client, err := transport.Build(ctx, cfg, log)
//	if err != nil { ... }
//	br, err := beamline.DialBridge(ctx, cfg, beamline.BridgeDeps{
//		Bus: b, Client: client, Logger: log,
//	})
//	if err != nil { ... }
//	go br.Run(ctx)
package beamline
