package bus

import (
	"context"
)

// Channel is a bounded, lossless, single-consumer queue for one message type.
// Send blocks once the buffer fills, trading producer liveness for delivery
// completeness; that is the opposite policy of Topic and the reason the two
// stay separate types.
type Channel[T any] struct {
	ch chan T
}

func newChannel[T any](capacity int) *Channel[T] {
	return &Channel[T]{ch: make(chan T, capacity)}
}

// Send enqueues v, blocking while the channel is full.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend enqueues v without blocking and reports whether it fit.
func (c *Channel[T]) TrySend(v T) bool {
	select {
	case c.ch <- v:
		return true
	default:
		return false
	}
}

// Recv dequeues the next value in send order, blocking until one is available
// or ctx is done.
func (c *Channel[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-c.ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Len reports how many values are buffered.
func (c *Channel[T]) Len() int {
	return len(c.ch)
}
