// Package correlate implements the pending-reply registries that pair
// outbound requests with the responses the bridge later receives. Every
// registry is a map behind one mutex; operations only mutate the map and
// never perform I/O while holding the lock.
package correlate

import (
	"context"
	"sync"
)

// Future is a single-shot reply slot: resolved at most once, then read by
// exactly one waiter.
type Future[T any] struct {
	once sync.Once
	ch   chan T
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{ch: make(chan T, 1)}
}

// Resolve delivers v and reports whether this call was the one that resolved
// the future. Later calls are no-ops.
func (f *Future[T]) Resolve(v T) bool {
	resolved := false
	f.once.Do(func() {
		f.ch <- v
		resolved = true
	})
	return resolved
}

// Wait blocks until the future resolves or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-f.ch:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
