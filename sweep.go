package vecbench

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/pool"
)

// ResultMatrix holds k neighbor ids per query in one contiguous slice.
// Row i is written only by the worker that searched query i.
type ResultMatrix struct {
	k   int
	ids []uint32
}

// NewResultMatrix allocates nq rows of k ids, all set to index.InvalidID.
func NewResultMatrix(nq, k int) *ResultMatrix {
	ids := make([]uint32, nq*k)
	for i := range ids {
		ids[i] = index.InvalidID
	}
	return &ResultMatrix{k: k, ids: ids}
}

// Len returns the number of rows.
func (m *ResultMatrix) Len() int {
	if m.k == 0 {
		return 0
	}
	return len(m.ids) / m.k
}

// K returns the row width.
func (m *ResultMatrix) K() int { return m.k }

// Row returns the ids of query i.
func (m *ResultMatrix) Row(i int) []uint32 {
	return m.ids[i*m.k : (i+1)*m.k : (i+1)*m.k]
}

// RoundResult is the raw output of one round before evaluation.
type RoundResult struct {
	Ef        int
	Results   *ResultMatrix
	Duration  time.Duration
	Latencies []time.Duration
}

// Sweep searches every query once per ef value.
type Sweep struct {
	searcher index.Searcher
	queries  []float32
	nq       int
	dim      int
	k        int
	pool     *pool.Pool
	metrics  MetricsCollector
}

// NewSweep creates a sweep over nq queries stored row-major in queries.
func NewSweep(searcher index.Searcher, queries []float32, nq, dim, k int, p *pool.Pool, optFns ...Option) (*Sweep, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidK, k)
	}
	if len(queries) != nq*dim {
		return nil, &ErrShapeMismatch{What: "query buffer length", Expected: nq * dim, Actual: len(queries)}
	}

	o := applyOptions(optFns)
	return &Sweep{
		searcher: searcher,
		queries:  queries,
		nq:       nq,
		dim:      dim,
		k:        k,
		pool:     p,
		metrics:  o.metricsCollector,
	}, nil
}

// Round sets ef and searches all queries. It returns after every worker has
// finished, so no search of this round overlaps the next SetEf.
func (s *Sweep) Round(ctx context.Context, ef int) (*RoundResult, error) {
	s.searcher.SetEf(ef)

	res := &RoundResult{
		Ef:        ef,
		Results:   NewResultMatrix(s.nq, s.k),
		Latencies: make([]time.Duration, s.nq),
	}

	start := time.Now()
	err := s.pool.ParallelFor(ctx, s.nq, func(_ context.Context, _ int, i int) error {
		q := s.queries[i*s.dim : (i+1)*s.dim]
		row := res.Results.Row(i)

		t := time.Now()
		_, err := s.searcher.Search(q, s.k, row)
		d := time.Since(t)

		s.metrics.RecordQuery(ef, d, err)
		if err != nil {
			return fmt.Errorf("query %d at ef=%d: %w", i, ef, err)
		}
		res.Latencies[i] = d
		return nil
	})
	res.Duration = time.Since(start)

	if err != nil {
		return nil, err
	}
	return res, nil
}

// Run executes one round per ef, in order, handing each to fn before the
// next round starts.
func (s *Sweep) Run(ctx context.Context, efs []int, fn func(*RoundResult) error) error {
	for _, ef := range efs {
		res, err := s.Round(ctx, ef)
		if err != nil {
			return err
		}
		if err := fn(res); err != nil {
			return err
		}
	}
	return nil
}
