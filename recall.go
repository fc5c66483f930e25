package vecbench

import (
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vecbench/index"
)

// Accumulator sums matches and expected matches across queries. It is safe
// for concurrent use.
type Accumulator struct {
	matches atomic.Int64
	total   atomic.Int64
}

// Add records one query with matches hits out of k.
func (a *Accumulator) Add(matches, k int) {
	a.matches.Add(int64(matches))
	a.total.Add(int64(k))
}

// Matches returns the summed matches.
func (a *Accumulator) Matches() int64 { return a.matches.Load() }

// Total returns the summed k values.
func (a *Accumulator) Total() int64 { return a.total.Load() }

// Recall returns 100 * matches / total, or 0 when nothing was added.
func (a *Accumulator) Recall() float64 {
	return percent(a.matches.Load(), a.total.Load())
}

// Reset clears both counters.
func (a *Accumulator) Reset() {
	a.matches.Store(0)
	a.total.Store(0)
}

func percent(matches, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(matches) / float64(total)
}

// Evaluation is the recall of one result matrix.
type Evaluation struct {
	// Recall is 100 * Matches / Total.
	Recall  float64
	Matches int64
	Total   int64

	// PerQuery holds 100 * matches / k for every query.
	PerQuery []float64
}

// Matches counts the distinct ids present in both predicted and truth.
// Duplicates collapse on either side and index.InvalidID never matches.
func Matches(predicted, truth []uint32) int {
	p, t := roaring.New(), roaring.New()
	return matches(p, t, predicted, truth)
}

func matches(p, t *roaring.Bitmap, predicted, truth []uint32) int {
	p.Clear()
	t.Clear()
	for _, id := range predicted {
		if id != index.InvalidID {
			p.Add(id)
		}
	}
	for _, id := range truth {
		if id != index.InvalidID {
			t.Add(id)
		}
	}
	return int(p.AndCardinality(t))
}

// Evaluate scores every row of results against the matching truth row. Only
// the first depth ids of a truth row count; depth <= 0 uses the whole row.
// A matrix with k == 0 has recall 0.
func Evaluate(results *ResultMatrix, truth [][]uint32, depth int) (Evaluation, error) {
	nq, k := results.Len(), results.K()
	if k == 0 {
		return Evaluation{}, nil
	}
	if len(truth) < nq {
		return Evaluation{}, &ErrShapeMismatch{What: "ground truth rows", Expected: nq, Actual: len(truth)}
	}

	var acc Accumulator
	ev := Evaluation{PerQuery: make([]float64, nq)}
	p, t := roaring.New(), roaring.New()

	for i := 0; i < nq; i++ {
		row := truth[i]
		if depth > 0 && depth < len(row) {
			row = row[:depth]
		}

		m := matches(p, t, results.Row(i), row)
		acc.Add(m, k)
		ev.PerQuery[i] = percent(int64(m), int64(k))
	}

	ev.Matches = acc.Matches()
	ev.Total = acc.Total()
	ev.Recall = acc.Recall()
	return ev, nil
}
