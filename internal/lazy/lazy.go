// Package lazy provides a value that is loaded on first use, exactly once
// across concurrent callers, and published atomically.
package lazy

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Loader produces the value. It runs detached from any single caller's
// cancellation so that one impatient caller cannot fail a load shared by others.
type Loader[T any] func(ctx context.Context) (T, error)

// Value holds a lazily loaded T. Readers never observe a partially built
// value: either nothing is published or the complete result of one load is.
// A failed load publishes nothing, so a later call loads again.
type Value[T any] struct {
	load Loader[T]

	published atomic.Pointer[T]
	group     singleflight.Group

	mu  sync.Mutex
	gen uint64

	loads atomic.Int64
}

// New returns an empty Value backed by load
func New[T any](load Loader[T]) *Value[T] {
	return &Value[T]{load: load}
}

// Get returns the published value, loading it first if necessary. Concurrent
// callers share one in-flight load and all receive its result.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if p := v.published.Load(); p != nil {
		return *p, nil
	}

	v.mu.Lock()
	gen := v.gen
	v.mu.Unlock()

	ch := v.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		// A load that finished between our fast-path check and this flight
		// has already published.
		if p := v.published.Load(); p != nil {
			return *p, nil
		}

		v.loads.Add(1)
		val, err := v.load(context.WithoutCancel(ctx))
		if err != nil {
			return val, err
		}

		v.mu.Lock()
		if v.gen == gen {
			v.published.Store(&val)
		}
		v.mu.Unlock()
		return val, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Initialize loads the value if needed and reports whether it is available
func (v *Value[T]) Initialize(ctx context.Context) bool {
	_, err := v.Get(ctx)
	return err == nil
}

// Peek returns the published value without triggering a load
func (v *Value[T]) Peek() (T, bool) {
	if p := v.published.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Reset discards the published value. Loads already in flight finish but
// their result is not published.
func (v *Value[T]) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.published.Store(nil)
}

// Loads reports how many times the loader has run
func (v *Value[T]) Loads() int64 {
	return v.loads.Load()
}
