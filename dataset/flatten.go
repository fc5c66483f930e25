package dataset

import (
	"context"
	"fmt"

	"github.com/hupe1980/vecbench/internal/pool"
)

// flattenChunkRows is the number of rows copied per work item.
const flattenChunkRows = 4096

// Flatten copies the rows of m into one row-major buffer so that
// flat[i*m.Dim+d] == m.Rows[i][d]. Rows are copied in parallel over
// disjoint destination ranges. A row of the wrong length fails with
// ErrRaggedRow instead of being truncated or padded.
func Flatten[T Element](ctx context.Context, m *Matrix[T], workers int) ([]T, error) {
	for i, row := range m.Rows {
		if len(row) != m.Dim {
			return nil, fmt.Errorf("%w: row %d has %d elements, want %d", ErrRaggedRow, i, len(row), m.Dim)
		}
	}

	dim := m.Dim
	flat := make([]T, len(m.Rows)*dim)
	if len(flat) == 0 {
		return flat, ctx.Err()
	}

	p := pool.New(func(o *pool.Options) { o.Workers = workers })
	err := p.ParallelRange(ctx, len(m.Rows), flattenChunkRows, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			copy(flat[i*dim:(i+1)*dim], m.Rows[i])
		}
	})
	if err != nil {
		return nil, err
	}

	return flat, nil
}
