package hnsw

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/vecbench/internal/queue"
)

// searchContext holds the reusable buffers of one graph traversal.
type searchContext struct {
	visited    *bitset.BitSet
	candidates *queue.Heap // min-heap: closest unexplored first
	result     *queue.Heap // max-heap: farthest kept result on top
	sorted     []queue.Item
}

func newSearchContext(nodes, ef int) *searchContext {
	return &searchContext{
		visited:    bitset.New(uint(nodes)),
		candidates: queue.NewMin(ef),
		result:     queue.NewMax(ef),
		sorted:     make([]queue.Item, 0, ef),
	}
}

func (sc *searchContext) reset() {
	sc.visited.ClearAll()
	sc.candidates.Reset()
	sc.result.Reset()
}

// sortedResult drains the result heap into a reused slice ordered closest first.
func (sc *searchContext) sortedResult() []queue.Item {
	sc.sorted = sc.result.Drain(sc.sorted[:0])
	for i, j := 0, len(sc.sorted)-1; i < j; i, j = i+1, j-1 {
		sc.sorted[i], sc.sorted[j] = sc.sorted[j], sc.sorted[i]
	}
	return sc.sorted
}
