package hnsw

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/vecbench/index"
)

// DefaultEF is the search effort used until SetEf is called.
const DefaultEF = 64

// Searcher answers queries on a built or loaded graph. Search is safe for
// concurrent use; SetData and SetEf must not race with Search.
type Searcher struct {
	graph *HNSW
	data  []float32
	ef    atomic.Int64

	contexts sync.Pool
}

func newSearcher(h *HNSW) *Searcher {
	s := &Searcher{graph: h, data: h.data}
	s.ef.Store(DefaultEF)
	s.contexts.New = func() any {
		return newSearchContext(h.count, int(s.ef.Load()))
	}
	return s
}

// SetData binds the base vectors the graph was built over.
func (s *Searcher) SetData(data []float32, n, dim int) error {
	if dim != s.graph.opts.Dimension {
		return &index.ErrDimensionMismatch{Expected: s.graph.opts.Dimension, Actual: dim}
	}
	if n != s.graph.count {
		return fmt.Errorf("%w: graph has %d nodes, data has %d", index.ErrCountMismatch, s.graph.count, n)
	}
	if len(data) < n*dim {
		return fmt.Errorf("%w: buffer holds %d floats, need %d", index.ErrCountMismatch, len(data), n*dim)
	}
	s.data = data[:n*dim]
	return nil
}

// SetEf sets the size of the dynamic candidate list used by Search.
// Values below k are raised to k per query.
func (s *Searcher) SetEf(ef int) {
	s.ef.Store(int64(max(ef, 1)))
}

// Ef returns the current search effort.
func (s *Searcher) Ef() int {
	return int(s.ef.Load())
}

// Search performs a k-nearest neighbor search and writes the ids, closest
// first, into dst[:k].
func (s *Searcher) Search(query []float32, k int, dst []uint32) (int, error) {
	h := s.graph
	if s.data == nil {
		return 0, index.ErrNoData
	}
	if len(query) != h.opts.Dimension {
		return 0, &index.ErrDimensionMismatch{Expected: h.opts.Dimension, Actual: len(query)}
	}
	if k <= 0 {
		return 0, nil
	}
	if len(dst) < k {
		return 0, fmt.Errorf("hnsw: result buffer holds %d ids, need %d", len(dst), k)
	}

	ef := max(int(s.ef.Load()), k)

	sc := s.contexts.Get().(*searchContext)
	defer s.contexts.Put(sc)

	dim := h.opts.Dimension
	ep := h.entry
	epDist := h.distFn(query, vectorAt(s.data, dim, ep))
	for l := h.topLevel; l > 0; l-- {
		ep, epDist = h.greedy(s.data, query, ep, epDist, l)
	}

	h.searchLayer(sc, s.data, query, ep, epDist, ef, 0)

	for sc.result.Len() > k {
		_, _ = sc.result.Pop()
	}

	n := sc.result.Len()
	for i := n - 1; i >= 0; i-- {
		it, _ := sc.result.Pop()
		dst[i] = it.ID
	}
	index.PadInvalid(dst, n, k)

	return n, nil
}
