package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelFor_VisitsEveryIndexOnce(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 8 })
	assert.Equal(t, 8, p.Workers())

	const n = 10_000
	hits := make([]int32, n)

	err := p.ParallelFor(context.Background(), n, func(_ context.Context, _, i int) error {
		atomic.AddInt32(&hits[i], 1)
		return nil
	})
	require.NoError(t, err)

	for i, h := range hits {
		require.Equal(t, int32(1), h, "index %d", i)
	}
}

func TestParallelFor_BoundedConcurrency(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 3 })

	var active, peak atomic.Int32
	err := p.ParallelFor(context.Background(), 200, func(_ context.Context, worker, _ int) error {
		assert.Less(t, worker, 3)
		cur := active.Add(1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(50 * time.Microsecond)
		active.Add(-1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestParallelFor_Barrier(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 4 })

	var done atomic.Int64
	for round := 1; round <= 5; round++ {
		require.NoError(t, p.ParallelFor(context.Background(), 100, func(context.Context, int, int) error {
			done.Add(1)
			return nil
		}))
		assert.Equal(t, int64(round*100), done.Load(), "all items of a round finish before ParallelFor returns")
	}
}

func TestParallelFor_Error(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 4 })
	boom := errors.New("boom")

	err := p.ParallelFor(context.Background(), 1000, func(_ context.Context, _, i int) error {
		if i == 17 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestParallelFor_Empty(t *testing.T) {
	p := New()
	called := false
	require.NoError(t, p.ParallelFor(context.Background(), 0, func(context.Context, int, int) error {
		called = true
		return nil
	}))
	assert.False(t, called)
}

func TestParallelFor_Canceled(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 2 })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.ParallelFor(ctx, 10, func(context.Context, int, int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParallelFor_RateLimited(t *testing.T) {
	p := New(func(o *Options) {
		o.Workers = 4
		o.MaxItemsPerSec = 200
	})

	start := time.Now()
	require.NoError(t, p.ParallelFor(context.Background(), 60, func(context.Context, int, int) error { return nil }))

	// 60 items at 200/s with a burst of 20 need at least ~200ms.
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestParallelRange(t *testing.T) {
	p := New(func(o *Options) { o.Workers = 3 })

	covered := make([]int32, 1001)
	require.NoError(t, p.ParallelRange(context.Background(), len(covered), 64, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			atomic.AddInt32(&covered[i], 1)
		}
	}))

	for i, c := range covered {
		require.Equal(t, int32(1), c, "index %d", i)
	}
}
