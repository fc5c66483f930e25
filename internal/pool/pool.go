// Package pool runs index-range work on a fixed set of worker goroutines.
//
// Work items are handed out greedily from a shared atomic cursor, so fast
// workers pick up more items than slow ones (dynamic scheduling). ParallelFor
// returns only after every worker has exited, which makes each call a full
// barrier: nothing submitted by a later call can overlap with an earlier one.
package pool

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configures a Pool.
type Options struct {
	// Workers is the fixed number of worker goroutines.
	// Values <= 0 mean runtime.GOMAXPROCS(0).
	Workers int

	// MaxItemsPerSec throttles how fast items are handed out.
	// Zero means unlimited.
	MaxItemsPerSec float64
}

// Pool is a fixed-size worker pool. It is safe for concurrent use, but
// concurrent ParallelFor calls each start their own workers.
type Pool struct {
	workers int
	limiter *rate.Limiter
}

// New creates a Pool.
func New(optFns ...func(o *Options)) *Pool {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	p := &Pool{workers: opts.Workers}
	if opts.MaxItemsPerSec > 0 {
		burst := max(1, int(opts.MaxItemsPerSec/10))
		p.limiter = rate.NewLimiter(rate.Limit(opts.MaxItemsPerSec), burst)
	}

	return p
}

// Workers returns the pool size.
func (p *Pool) Workers() int {
	return p.workers
}

// ParallelFor calls fn(ctx, worker, i) once for every i in [0, n).
//
// At most Workers calls run at the same time. The first error cancels the
// context passed to the remaining calls and is returned once all workers
// have stopped.
func (p *Pool) ParallelFor(ctx context.Context, n int, fn func(ctx context.Context, worker, i int) error) error {
	if n <= 0 {
		return ctx.Err()
	}

	g, gctx := errgroup.WithContext(ctx)

	var next atomic.Int64
	for w := range min(p.workers, n) {
		g.Go(func() error {
			for {
				if err := gctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1) - 1)
				if i >= n {
					return nil
				}
				if p.limiter != nil {
					if err := p.limiter.Wait(gctx); err != nil {
						return err
					}
				}
				if err := fn(gctx, w, i); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}

// ParallelRange splits [0, n) into contiguous chunks of at most chunk items
// and calls fn(lo, hi) for each chunk on the pool.
func (p *Pool) ParallelRange(ctx context.Context, n, chunk int, fn func(lo, hi int)) error {
	if chunk < 1 {
		chunk = 1
	}
	chunks := (n + chunk - 1) / chunk

	return p.ParallelFor(ctx, chunks, func(_ context.Context, _, c int) error {
		lo := c * chunk
		fn(lo, min(lo+chunk, n))
		return nil
	})
}
