package beamline

import (
	beampkg "github.com/luminet/beamline/internal/runtime/beam"
	"github.com/luminet/beamline/internal/runtime/bridge"
	buspkg "github.com/luminet/beamline/internal/runtime/bus"
	configpkg "github.com/luminet/beamline/internal/runtime/config"
	"github.com/luminet/beamline/internal/runtime/correlate"
	errspkg "github.com/luminet/beamline/internal/runtime/errors"
	idspkg "github.com/luminet/beamline/internal/runtime/ids"
	"github.com/luminet/beamline/internal/runtime/interop"
	loggingpkg "github.com/luminet/beamline/internal/runtime/logging"
	metricspkg "github.com/luminet/beamline/internal/runtime/metrics"
)

type (
	Config = configpkg.Config

	Bus        = buspkg.Bus
	BusOption  = buspkg.Option
	LagError   = buspkg.LagError
	Topic[T any]    = buspkg.Topic[T]
	Receiver[T any] = buspkg.Receiver[T]
	Channel[T any]  = buspkg.Channel[T]
	Sender[T any]   = buspkg.Sender[T]

	Photon      = beampkg.Photon
	Wavelet     = beampkg.Wavelet
	PrivatePair = beampkg.PrivatePair

	Bridge         = bridge.Bridge
	BridgeDeps     = bridge.Deps
	BridgeState    = bridge.State
	BridgeClient   = bridge.Client
	BridgeConn     = bridge.Conn
	InboundHandler = bridge.InboundHandler
	Session        = bridge.Session
	SpeechCall     = bridge.SpeechCall

	Future[T any] = correlate.Future[T]

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger

	MetricsCollector = metricspkg.Collector

	ConfigValidationError = errspkg.ConfigValidationError

	// Interop payloads carried over the broker.
	User                 = interop.User
	Task                 = interop.Task
	TaskStatePayload     = interop.TaskStatePayload
	Project              = interop.Project
	Flow                 = interop.Flow
	Graph                = interop.Graph
	JobRequest           = interop.JobRequest
	JobResponse          = interop.JobResponse
	JobResult            = interop.JobResult
	DenormalizedJob      = interop.DenormalizedJob
	PromptTx             = interop.PromptTx
	PromptRx             = interop.PromptRx
	ToolResult           = interop.ToolResult
	SpeechToText         = interop.SpeechToText
	SpeechToTextResponse = interop.SpeechToTextResponse
)

const (
	BridgeConnecting = bridge.StateConnecting
	BridgeStandalone = bridge.StateStandalone
	BridgeBridged    = bridge.StateBridged
	BridgeClosed     = bridge.StateClosed
)

var (
	NewBus             = buspkg.New
	WithFanoutCapacity = buspkg.WithFanoutCapacity
	WithQueueCapacity  = buspkg.WithQueueCapacity

	NewPrivateBeam     = beampkg.NewPrivate
	NewPrivateBeamPair = beampkg.NewPrivatePair
	NewWavelet         = beampkg.NewWavelet
	MergePhotons       = beampkg.Merge

	DialBridge = bridge.Dial

	DefaultConfig = configpkg.Default
	FromEnv       = configpkg.FromEnv

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NewNopLogger              = loggingpkg.NewNopLogger
	NewWatermillAdapter       = loggingpkg.NewWatermillAdapter

	NewMetricsCollector  = metricspkg.NewCollector
	ServeMetrics         = metricspkg.Serve
	MetricsListenAddress = metricspkg.ListenAddress

	CreateULID = idspkg.CreateULID

	ErrBusRequired      = errspkg.ErrBusRequired
	ErrLoggerRequired   = errspkg.ErrLoggerRequired
	ErrConfigRequired   = errspkg.ErrConfigRequired
	ErrClientRequired   = errspkg.ErrClientRequired
	ErrBeamRequired     = errspkg.ErrBeamRequired
	ErrBridgeClosed     = errspkg.ErrBridgeClosed
	ErrBridgeStandalone = errspkg.ErrBridgeStandalone
	ErrMixedBeams       = errspkg.ErrMixedBeams
)

// Announce returns the fan-out topic for T on b, creating it on first use.
func Announce[T any](b *Bus) *Topic[T] {
	return buspkg.Announce[T](b)
}

// Subscribe returns a fresh fan-out receiver for T. It observes only values
// published after this call.
func Subscribe[T any](b *Bus) *Receiver[T] {
	return buspkg.Subscribe[T](b)
}

// CreateChannel returns the single-consumer channel for T, creating it on
// first use.
func CreateChannel[T any](b *Bus) *Channel[T] {
	return buspkg.CreateChannel[T](b)
}

// Address returns a send-only view of the single-consumer channel for T
// without creating it.
func Address[T any](b *Bus) (*Sender[T], bool) {
	return buspkg.Address[T](b)
}

// NewFuture returns a single-shot future for correlated request/reply use.
func NewFuture[T any]() *Future[T] {
	return correlate.NewFuture[T]()
}
