package vecbench

import (
	"sync"
	"testing"

	"github.com/hupe1980/vecbench/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matrixOf(k int, rows ...[]uint32) *ResultMatrix {
	m := NewResultMatrix(len(rows), k)
	for i, r := range rows {
		copy(m.Row(i), r)
	}
	return m
}

func TestMatches(t *testing.T) {
	assert.Equal(t, 2, Matches([]uint32{1, 2, 3}, []uint32{2, 3, 4}))
	assert.Equal(t, 0, Matches([]uint32{1, 2}, []uint32{3, 4}))
	assert.Equal(t, 1, Matches([]uint32{5, 5, 5}, []uint32{5}), "predicted duplicates collapse")
	assert.Equal(t, 1, Matches([]uint32{5}, []uint32{5, 5}), "truth duplicates collapse")
	assert.Equal(t, 0, Matches([]uint32{index.InvalidID}, []uint32{index.InvalidID}), "padding never matches")
	assert.Equal(t, 0, Matches(nil, []uint32{1}))
}

func TestEvaluate(t *testing.T) {
	results := matrixOf(2,
		[]uint32{0, 1},
		[]uint32{2, index.InvalidID},
		[]uint32{7, 8},
	)
	truth := [][]uint32{{1, 0}, {2, 3}, {4, 5}}

	ev, err := Evaluate(results, truth, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(3), ev.Matches)
	assert.Equal(t, int64(6), ev.Total)
	assert.InDelta(t, 50.0, ev.Recall, 1e-9)
	assert.Equal(t, []float64{100, 50, 0}, ev.PerQuery)
}

func TestEvaluateRecallBounds(t *testing.T) {
	perfect := matrixOf(3, []uint32{0, 1, 2})
	ev, err := Evaluate(perfect, [][]uint32{{2, 1, 0}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ev.Recall, "order does not matter")

	// Truth longer than k cannot push recall past 100.
	ev, err = Evaluate(perfect, [][]uint32{{0, 1, 2, 3, 4, 5}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ev.Recall)

	ev, err = Evaluate(matrixOf(3, []uint32{9, 9, 9}), [][]uint32{{0, 1, 2}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Recall)
}

func TestEvaluateZeroK(t *testing.T) {
	ev, err := Evaluate(NewResultMatrix(5, 0), [][]uint32{{1}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ev.Recall)
	assert.Zero(t, ev.Total)
}

func TestEvaluateDuplicateTruth(t *testing.T) {
	results := matrixOf(3, []uint32{4, 7, 9}, []uint32{1, 2, 3})

	dedup, err := Evaluate(results, [][]uint32{{4, 7, 8}, {1, 5, 6}}, 0)
	require.NoError(t, err)
	dup, err := Evaluate(results, [][]uint32{{4, 4, 7, 7, 8}, {1, 1, 1, 5, 6}}, 0)
	require.NoError(t, err)

	assert.Equal(t, dedup.Recall, dup.Recall)
	assert.Equal(t, dedup.Matches, dup.Matches)
}

func TestEvaluateTruthDepth(t *testing.T) {
	results := matrixOf(2, []uint32{3, 4})
	truth := [][]uint32{{0, 3, 4, 5}}

	ev, err := Evaluate(results, truth, 2)
	require.NoError(t, err)
	assert.Equal(t, 50.0, ev.Recall, "only the first two truth ids count")

	ev, err = Evaluate(results, truth, 0)
	require.NoError(t, err)
	assert.Equal(t, 100.0, ev.Recall)
}

func TestEvaluateShapeMismatch(t *testing.T) {
	_, err := Evaluate(matrixOf(1, []uint32{0}, []uint32{1}), [][]uint32{{0}}, 0)

	var shapeErr *ErrShapeMismatch
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, 2, shapeErr.Expected)
	assert.Equal(t, 1, shapeErr.Actual)
}

func TestAccumulatorConcurrent(t *testing.T) {
	var acc Accumulator
	assert.Equal(t, 0.0, acc.Recall())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				acc.Add(3, 4)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(24000), acc.Matches())
	assert.Equal(t, int64(32000), acc.Total())
	assert.Equal(t, 75.0, acc.Recall())

	acc.Reset()
	assert.Zero(t, acc.Total())
}
