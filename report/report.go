// Package report holds benchmark results and writes them to sinks.
package report

import (
	"slices"
	"time"
)

// Round is the outcome of one ef value: every query searched once and
// scored against ground truth.
type Round struct {
	Ef int `json:"ef"`

	// Recall is the aggregate recall percentage in [0, 100].
	Recall  float64 `json:"recall"`
	Matches int64   `json:"matches"`
	Total   int64   `json:"total"`
	Queries int     `json:"queries"`

	// Duration is the wall-clock time of the query batch.
	Duration time.Duration `json:"duration_ns"`
	QPS      float64       `json:"qps"`

	Latency Latency `json:"latency"`
}

// Latency summarizes per-query search latency.
type Latency struct {
	Mean time.Duration `json:"mean_ns"`
	P50  time.Duration `json:"p50_ns"`
	P95  time.Duration `json:"p95_ns"`
	P99  time.Duration `json:"p99_ns"`
	Max  time.Duration `json:"max_ns"`
}

// Report describes one benchmark run.
type Report struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Dataset     string `json:"dataset"`
	Queries     string `json:"queries"`
	GroundTruth string `json:"ground_truth"`

	Points     int `json:"points"`
	Dimension  int `json:"dimension"`
	QueryCount int `json:"query_count"`
	K          int `json:"k"`
	TruthDepth int `json:"truth_depth"`
	Workers    int `json:"workers"`

	IndexKind string `json:"index_kind"`
	IndexPath string `json:"index_path"`
	Mode      string `json:"mode"`

	// Prepare is the time spent building and saving, or loading, the index.
	Prepare time.Duration `json:"prepare_ns"`

	Rounds []Round `json:"rounds"`
}

// Round returns the round for ef, if any.
func (r *Report) Round(ef int) (Round, bool) {
	for _, rd := range r.Rounds {
		if rd.Ef == ef {
			return rd, true
		}
	}
	return Round{}, false
}

// Best returns the round with the highest recall; ties go to the higher QPS.
func (r *Report) Best() (Round, bool) {
	if len(r.Rounds) == 0 {
		return Round{}, false
	}
	best := r.Rounds[0]
	for _, rd := range r.Rounds[1:] {
		if rd.Recall > best.Recall || (rd.Recall == best.Recall && rd.QPS > best.QPS) {
			best = rd
		}
	}
	return best, true
}

// Summarize computes latency statistics. Percentiles use the nearest-rank
// method on a sorted copy, so lat is left untouched.
func Summarize(lat []time.Duration) Latency {
	if len(lat) == 0 {
		return Latency{}
	}

	sorted := slices.Clone(lat)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return Latency{
		Mean: sum / time.Duration(len(sorted)),
		P50:  percentile(sorted, 50),
		P95:  percentile(sorted, 95),
		P99:  percentile(sorted, 99),
		Max:  sorted[len(sorted)-1],
	}
}

func percentile(sorted []time.Duration, p int) time.Duration {
	rank := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	return sorted[max(rank, 1)-1]
}

// QPS returns queries per second for n queries over d.
func QPS(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
