package flat

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
	"github.com/hupe1980/vecbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExactSearch(t *testing.T) {
	const (
		n   = 500
		dim = 8
		k   = 10
	)
	rng := testutil.NewRNG(4711)
	data := testutil.Flatten(rng.UniformVectors(n, dim))
	queries := rng.UniformVectors(20, dim)

	for _, m := range []distance.Metric{distance.MetricL2, distance.MetricDot, distance.MetricCosine} {
		t.Run(m.String(), func(t *testing.T) {
			f, err := New(func(o *Options) {
				o.Dimension = dim
				o.Metric = m
			})
			require.NoError(t, err)
			require.NoError(t, f.Build(context.Background(), data, n))

			s, err := f.Searcher()
			require.NoError(t, err)
			s.SetEf(1) // ignored

			fn, err := distance.Provider(m)
			require.NoError(t, err)

			dst := make([]uint32, k)
			for _, q := range queries {
				got, err := s.Search(q, k, dst)
				require.NoError(t, err)
				require.Equal(t, k, got)

				for i, want := range testutil.ExactTopK(q, data, dim, k, fn) {
					assert.Equal(t, want.ID, dst[i])
				}
			}
		})
	}
}

func TestUnitSquare(t *testing.T) {
	data := []float32{0, 0, 1, 0, 0, 1, 1, 1}

	f, err := New(func(o *Options) { o.Dimension = 2 })
	require.NoError(t, err)
	require.NoError(t, f.Build(context.Background(), data, 4))

	s, err := f.Searcher()
	require.NoError(t, err)

	dst := make([]uint32, 4)
	n, err := s.Search([]float32{0.1, 0.1}, 4, dst)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint32{0, 1, 2, 3}, dst)

	dst = make([]uint32, 6)
	n, err = s.Search([]float32{1, 1}, 6, dst)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []uint32{3, 1, 2, 0, index.InvalidID, index.InvalidID}, dst)
}

func TestSaveLoad(t *testing.T) {
	data := []float32{0, 0, 0, 1, 1, 1, 2, 2, 2}

	f, err := New(func(o *Options) {
		o.Dimension = 3
		o.Metric = distance.MetricDot
		o.Compression = compress.Snappy
	})
	require.NoError(t, err)
	require.NoError(t, f.Build(context.Background(), data, 3))

	var buf bytes.Buffer
	require.NoError(t, f.Save(&buf))

	loaded, err := New(func(o *Options) { o.Dimension = 99 })
	require.NoError(t, err)
	require.NoError(t, loaded.Load(&buf))
	assert.Equal(t, 3, loaded.Dimension())
	assert.Equal(t, 3, loaded.Len())
	assert.Equal(t, distance.MetricDot, loaded.opts.Metric)

	s, err := loaded.Searcher()
	require.NoError(t, err)

	_, err = s.Search([]float32{1, 1, 1}, 1, make([]uint32, 1))
	assert.ErrorIs(t, err, index.ErrNoData)

	require.NoError(t, s.SetData(data, 3, 3))
	dst := make([]uint32, 1)
	_, err = s.Search([]float32{1, 1, 1}, 1, dst)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), dst[0], "largest inner product wins")
}

func TestErrors(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	f, err := New(func(o *Options) { o.Dimension = 2 })
	require.NoError(t, err)

	assert.ErrorIs(t, f.Build(context.Background(), nil, 0), index.ErrEmptyBuild)
	assert.ErrorIs(t, f.Build(context.Background(), []float32{1}, 1), index.ErrCountMismatch)
	assert.ErrorIs(t, f.Save(&bytes.Buffer{}), index.ErrNotBuilt)
	_, err = f.Searcher()
	assert.ErrorIs(t, err, index.ErrNotBuilt)

	require.NoError(t, f.Build(context.Background(), []float32{1, 2, 3, 4}, 2))
	s, err := f.Searcher()
	require.NoError(t, err)

	var dm *index.ErrDimensionMismatch
	assert.ErrorAs(t, s.SetData([]float32{1, 2, 3}, 1, 3), &dm)
	assert.ErrorIs(t, s.SetData([]float32{1, 2}, 1, 2), index.ErrCountMismatch)

	_, err = s.Search([]float32{1}, 1, make([]uint32, 1))
	assert.ErrorAs(t, err, &dm)

	var other bytes.Buffer
	require.NoError(t, index.WriteSnapshot(&other, index.NewSnapshotHeader(index.KindHNSW, 0, 0, 2, 2), func(io.Writer) error { return nil }))
	assert.ErrorIs(t, f.Load(&other), index.ErrKindMismatch)
	assert.Equal(t, 2, f.Len(), "failed load leaves the index untouched")
}
