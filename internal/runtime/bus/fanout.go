package bus

import (
	"context"
	"sync"
)

// Topic is a bounded, lossy fan-out channel for one message type. All
// subscribers share one ring; each keeps its own cursor into it. Publish never
// blocks: a subscriber whose cursor falls more than the ring capacity behind
// loses the oldest entries and learns about it through a LagError.
type Topic[T any] struct {
	mu       sync.Mutex
	ring     []T
	capacity uint64
	head     uint64 // total values ever published
	notify   chan struct{}
}

func newTopic[T any](capacity int) *Topic[T] {
	return &Topic[T]{
		ring:     make([]T, capacity),
		capacity: uint64(capacity),
		notify:   make(chan struct{}),
	}
}

// Publish appends v for every current subscriber and returns immediately.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	t.ring[t.head%t.capacity] = v
	t.head++
	close(t.notify)
	t.notify = make(chan struct{})
	t.mu.Unlock()
}

// Subscribe returns an independent receiver positioned at the current head,
// so it observes only values published after this call.
func (t *Topic[T]) Subscribe() *Receiver[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Receiver[T]{topic: t, pos: t.head}
}

// Capacity reports the ring size.
func (t *Topic[T]) Capacity() int {
	return int(t.capacity)
}

// Receiver is one subscription cursor on a Topic.
type Receiver[T any] struct {
	topic *Topic[T]
	pos   uint64
}

// Recv returns the next value in publish order. When the receiver has fallen
// more than the ring capacity behind, it returns a *LagError naming how many
// values were skipped; the following Recv returns the oldest retained value.
// Recv blocks until a value is available or ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		r.topic.mu.Lock()

		if r.pos+r.topic.capacity < r.topic.head {
			skipped := r.topic.head - r.topic.capacity - r.pos
			r.pos = r.topic.head - r.topic.capacity
			r.topic.mu.Unlock()
			return zero, &LagError{Skipped: skipped}
		}

		if r.pos < r.topic.head {
			v := r.topic.ring[r.pos%r.topic.capacity]
			r.pos++
			r.topic.mu.Unlock()
			return v, nil
		}

		notify := r.topic.notify
		r.topic.mu.Unlock()

		select {
		case <-notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len reports how many published values this receiver has not read yet,
// including any it has already lost to overflow.
func (r *Receiver[T]) Len() int {
	r.topic.mu.Lock()
	defer r.topic.mu.Unlock()
	return int(r.topic.head - r.pos)
}
