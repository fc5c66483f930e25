package vecbench

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting benchmark metrics.
// Implement this interface to integrate with monitoring systems; see
// PrometheusCollector for a ready-made one.
type MetricsCollector interface {
	// RecordRead is called after each input file is loaded.
	RecordRead(path string, points int, duration time.Duration, err error)

	// RecordIndex is called after the index was built and saved, or loaded.
	RecordIndex(kind string, mode Mode, duration time.Duration, err error)

	// RecordQuery is called from worker goroutines after every search.
	// Implementations must be safe for concurrent use.
	RecordQuery(ef int, duration time.Duration, err error)

	// RecordRound is called after a round has been evaluated.
	RecordRound(ef int, recall, qps float64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordRead(string, int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordIndex(string, Mode, time.Duration, error)   {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)            {}
func (NoopMetricsCollector) RecordRound(int, float64, float64, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	ReadCount       atomic.Int64
	ReadErrors      atomic.Int64
	ReadPoints      atomic.Int64
	IndexCount      atomic.Int64
	IndexErrors     atomic.Int64
	IndexTotalNanos atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	RoundCount      atomic.Int64
}

// RecordRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRead(_ string, points int, _ time.Duration, err error) {
	b.ReadCount.Add(1)
	b.ReadPoints.Add(int64(points))
	if err != nil {
		b.ReadErrors.Add(1)
	}
}

// RecordIndex implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIndex(_ string, _ Mode, duration time.Duration, err error) {
	b.IndexCount.Add(1)
	b.IndexTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.IndexErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordRound implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRound(int, float64, float64, time.Duration) {
	b.RoundCount.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ReadCount:     b.ReadCount.Load(),
		ReadErrors:    b.ReadErrors.Load(),
		ReadPoints:    b.ReadPoints.Load(),
		IndexCount:    b.IndexCount.Load(),
		IndexErrors:   b.IndexErrors.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryAvgNanos: b.getAvgQueryNanos(),
		RoundCount:    b.RoundCount.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ReadCount     int64
	ReadErrors    int64
	ReadPoints    int64
	IndexCount    int64
	IndexErrors   int64
	QueryCount    int64
	QueryErrors   int64
	QueryAvgNanos int64
	RoundCount    int64
}
