// Package bus implements the process-wide typed event bus. Message types are
// the routing key: the first Announce, Subscribe, or CreateChannel call for a
// type lazily creates its channel, and every later call for the same type
// returns the same handle for the life of the process.
//
// Two channel shapes exist on purpose and are not unified behind one
// configurable type. Fan-out topics never block the publisher and drop the
// oldest entries for a subscriber that falls behind. Single-consumer channels
// are lossless and ordered, with exactly one reader draining them.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// DefaultFanoutCapacity bounds fan-out rings when no capacity is configured.
const DefaultFanoutCapacity = 1024

// DefaultQueueCapacity bounds single-consumer channels when no capacity is
// configured.
const DefaultQueueCapacity = 64

// Bus is the type-indexed channel registry. Construct it with New and pass it
// explicitly to every component; nothing in this package is a global.
type Bus struct {
	mu       sync.Mutex
	topics   map[reflect.Type]any
	channels map[reflect.Type]any

	fanoutCapacity int
	queueCapacity  int
}

// Option adjusts Bus construction.
type Option func(*Bus)

// WithFanoutCapacity overrides the ring size of every fan-out topic created by
// this bus.
func WithFanoutCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.fanoutCapacity = n
		}
	}
}

// WithQueueCapacity overrides the buffer size of every single-consumer channel
// created by this bus.
func WithQueueCapacity(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.queueCapacity = n
		}
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		topics:         make(map[reflect.Type]any),
		channels:       make(map[reflect.Type]any),
		fanoutCapacity: DefaultFanoutCapacity,
		queueCapacity:  DefaultQueueCapacity,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func typeKey[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Announce returns the fan-out topic for T, creating it on first use. The
// handle both publishes and mints independent subscriptions.
func Announce[T any](b *Bus) *Topic[T] {
	key := typeKey[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.topics[key]; ok {
		return h.(*Topic[T])
	}
	t := newTopic[T](b.fanoutCapacity)
	b.topics[key] = t
	return t
}

// Subscribe is sugar for Announce(b).Subscribe(). The receiver observes only
// values published after this call.
func Subscribe[T any](b *Bus) *Receiver[T] {
	return Announce[T](b).Subscribe()
}

// CreateChannel returns the single-consumer channel for T, creating it on
// first use. Values are drained once, in order. Nothing guards against two
// goroutines both calling Recv: they would dequeue interleaved items.
func CreateChannel[T any](b *Bus) *Channel[T] {
	key := typeKey[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	if h, ok := b.channels[key]; ok {
		return h.(*Channel[T])
	}
	c := newChannel[T](b.queueCapacity)
	b.channels[key] = c
	return c
}

// Address returns a send-only view of the single-consumer channel for T
// without creating it. The second return is false when no consumer has called
// CreateChannel yet.
func Address[T any](b *Bus) (*Sender[T], bool) {
	key := typeKey[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	h, ok := b.channels[key]
	if !ok {
		return nil, false
	}
	return &Sender[T]{ch: h.(*Channel[T])}, true
}

// LagError reports that a fan-out receiver fell behind and lost messages. The
// receiver's next Recv returns the oldest entry still retained.
type LagError struct {
	Skipped uint64
}

func (e *LagError) Error() string {
	return fmt.Sprintf("beamline: receiver lagged, %d messages skipped", e.Skipped)
}

// Sender is the send-only half of a single-consumer channel.
type Sender[T any] struct {
	ch *Channel[T]
}

// TrySend enqueues without blocking, reporting false when the queue is full.
func (s *Sender[T]) TrySend(v T) bool {
	return s.ch.TrySend(v)
}

// Send enqueues v, blocking while the channel is full.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	return s.ch.Send(ctx, v)
}
