package crypto

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pool is the dedicated blocking thread pool that §5 of the spec requires
// CPU-intensive cryptography to run on: callers suspend on a channel
// instead of burning a cooperative-scheduler goroutine on curve arithmetic.
// It is a thin wrapper over golang.org/x/sync/errgroup with a semaphore
// bounding concurrency, grounded on the teacher's use of the same package
// for bounded fan-out elsewhere in the networking stack.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a pool with the given width. width <= 0 defaults to
// GOMAXPROCS, matching one OS thread of crypto work per available core.
func NewPool(width int) *Pool {
	if width <= 0 {
		width = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: make(chan struct{}, width)}
}

// Do runs fn on the pool, blocking the caller (a suspension point, per
// spec.md §5) until a slot is free and fn has returned or ctx is done.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.sem }()
	return fn()
}

// Map runs fn over each input concurrently on the pool, bounded by the
// pool's width, and returns once every call has completed or the context
// is cancelled. Used for batch signature verification (VFP vote batches,
// SampleResponse piggybacked votes) where launching one goroutine per item
// unbounded would defeat the purpose of having a dedicated pool at all.
func (p *Pool) Map(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return p.Do(gctx, func() error { return fn(i) })
		})
	}
	return g.Wait()
}
