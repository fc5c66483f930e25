package report

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *Report {
	return &Report{
		RunID:      "run-1",
		StartedAt:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Dataset:    "base.fbin",
		Points:     1000,
		Dimension:  16,
		QueryCount: 50,
		K:          10,
		IndexKind:  "hnsw",
		Mode:       "rebuild",
		Workers:    8,
		Prepare:    2 * time.Second,
		Rounds: []Round{
			{Ef: 10, Recall: 80, Matches: 400, Total: 500, Queries: 50, Duration: 10 * time.Millisecond, QPS: 5000},
			{Ef: 50, Recall: 99.2, Matches: 496, Total: 500, Queries: 50, Duration: 40 * time.Millisecond, QPS: 1250},
			{Ef: 100, Recall: 99.2, Matches: 496, Total: 500, Queries: 50, Duration: 80 * time.Millisecond, QPS: 625},
		},
	}
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Latency{}, Summarize(nil))

	lat := make([]time.Duration, 0, 100)
	for i := 100; i >= 1; i-- {
		lat = append(lat, time.Duration(i)*time.Microsecond)
	}

	s := Summarize(lat)
	assert.Equal(t, 50500*time.Nanosecond, s.Mean)
	assert.Equal(t, 50*time.Microsecond, s.P50)
	assert.Equal(t, 95*time.Microsecond, s.P95)
	assert.Equal(t, 99*time.Microsecond, s.P99)
	assert.Equal(t, 100*time.Microsecond, s.Max)
	assert.Equal(t, 100*time.Microsecond, lat[0], "input is not reordered")

	one := Summarize([]time.Duration{time.Second})
	assert.Equal(t, time.Second, one.P50)
	assert.Equal(t, time.Second, one.P99)
}

func TestQPS(t *testing.T) {
	assert.Equal(t, 100.0, QPS(50, 500*time.Millisecond))
	assert.Equal(t, 0.0, QPS(50, 0))
}

func TestRoundAndBest(t *testing.T) {
	r := sampleReport()

	rd, ok := r.Round(50)
	require.True(t, ok)
	assert.Equal(t, int64(496), rd.Matches)

	_, ok = r.Round(7)
	assert.False(t, ok)

	best, ok := r.Best()
	require.True(t, ok)
	assert.Equal(t, 50, best.Ef, "equal recall prefers higher QPS")

	_, ok = (&Report{}).Best()
	assert.False(t, ok)
}

func TestBlobSinkRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}, nil} {
		sink := NewBlobSink(store, "reports/run-1.json", c)
		require.NoError(t, sink.Write(ctx, sampleReport()))

		got, err := ReadBlob(ctx, store, "reports/run-1.json", c)
		require.NoError(t, err)
		assert.Equal(t, sampleReport(), got)
	}

	_, err := ReadBlob(ctx, store, "reports/missing.json", nil)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestJSONSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONSink(&buf, codec.JSON{}).Write(context.Background(), sampleReport()))

	var got Report
	require.NoError(t, codec.JSON{}.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReport(), &got)
	assert.True(t, strings.HasSuffix(buf.String(), "}\n"))
}

func TestTextSink(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTextSink(&buf).Write(context.Background(), sampleReport()))

	out := buf.String()
	assert.Contains(t, out, "index=hnsw mode=rebuild")
	assert.Contains(t, out, "recall(%)")
	assert.Contains(t, out, "99.20")
	assert.Equal(t, 5, strings.Count(out, "\n"), "summary, header and three rounds")
}

func TestWriteAll(t *testing.T) {
	boom := errors.New("boom")
	var calls int

	ok := SinkFunc(func(context.Context, *Report) error { calls++; return nil })
	bad := SinkFunc(func(context.Context, *Report) error { calls++; return boom })

	err := WriteAll(context.Background(), sampleReport(), bad, ok, bad)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	assert.NoError(t, WriteAll(context.Background(), sampleReport(), ok))
}
