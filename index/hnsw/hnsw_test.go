package hnsw

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
	"github.com/hupe1980/vecbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDim     = 16
	testN       = 1000
	testQueries = 50
	testK       = 10
)

func buildTestGraph(t *testing.T, optFns ...func(o *Options)) (*HNSW, []float32, [][]float32) {
	t.Helper()

	rng := testutil.NewRNG(4711)
	data := testutil.Flatten(rng.UniformVectors(testN, testDim))
	queries := rng.UniformVectors(testQueries, testDim)

	fns := append([]func(o *Options){func(o *Options) { o.Dimension = testDim }}, optFns...)
	h, err := New(fns...)
	require.NoError(t, err)
	require.NoError(t, h.Build(context.Background(), data, testN))

	return h, data, queries
}

func searchAll(t *testing.T, s index.Searcher, queries [][]float32, k int) [][]uint32 {
	t.Helper()

	out := make([][]uint32, len(queries))
	for i, q := range queries {
		dst := make([]uint32, k)
		n, err := s.Search(q, k, dst)
		require.NoError(t, err)
		require.Equal(t, k, n)
		out[i] = dst
	}
	return out
}

func TestBuildSearchRecall(t *testing.T) {
	h, data, queries := buildTestGraph(t)
	assert.Equal(t, testN, h.Len())
	assert.Equal(t, Kind, h.Kind())
	assert.Equal(t, testDim, h.Dimension())

	s, err := h.Searcher()
	require.NoError(t, err)
	s.SetEf(100)

	truth := testutil.GroundTruth(data, testDim, queries, testK, distance.SquaredL2)
	results := searchAll(t, s, queries, testK)

	var recall float64
	for i := range queries {
		recall += testutil.ComputeRecall(results[i], truth[i])
	}
	recall /= float64(len(queries))

	assert.GreaterOrEqual(t, recall, 0.9)
}

func TestRecallImprovesWithEf(t *testing.T) {
	h, data, queries := buildTestGraph(t, func(o *Options) { o.M = 4; o.EFConstruction = 16 })
	s, err := h.Searcher()
	require.NoError(t, err)

	truth := testutil.GroundTruth(data, testDim, queries, testK, distance.SquaredL2)
	recallAt := func(ef int) float64 {
		s.SetEf(ef)
		var r float64
		for i, res := range searchAll(t, s, queries, testK) {
			r += testutil.ComputeRecall(res, truth[i])
		}
		return r / float64(len(queries))
	}

	low := recallAt(10)
	high := recallAt(400)
	assert.GreaterOrEqual(t, high, low)
}

func TestExactMatchFirst(t *testing.T) {
	h, data, _ := buildTestGraph(t)
	s, err := h.Searcher()
	require.NoError(t, err)
	s.SetEf(200)

	dst := make([]uint32, 1)
	for _, id := range []int{0, 17, 512, testN - 1} {
		_, err := s.Search(data[id*testDim:(id+1)*testDim], 1, dst)
		require.NoError(t, err)
		assert.Equal(t, uint32(id), dst[0])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, c := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD, compress.Snappy} {
		t.Run(c.String(), func(t *testing.T) {
			h, data, queries := buildTestGraph(t, func(o *Options) { o.Compression = c })

			var buf bytes.Buffer
			require.NoError(t, h.Save(&buf))

			loaded, err := New(func(o *Options) { o.Dimension = 1 })
			require.NoError(t, err)
			require.NoError(t, loaded.Load(bytes.NewReader(buf.Bytes())))

			assert.Equal(t, testDim, loaded.Dimension())
			assert.Equal(t, h.Stats(), loaded.Stats())

			s1, err := h.Searcher()
			require.NoError(t, err)
			s2, err := loaded.Searcher()
			require.NoError(t, err)

			_, err = s2.Search(queries[0], testK, make([]uint32, testK))
			assert.ErrorIs(t, err, index.ErrNoData)

			require.NoError(t, s2.SetData(data, testN, testDim))

			for _, ef := range []int{10, 50} {
				s1.SetEf(ef)
				s2.SetEf(ef)
				assert.Equal(t, searchAll(t, s1, queries, testK), searchAll(t, s2, queries, testK))
			}
		})
	}
}

func TestDeterministicBuild(t *testing.T) {
	h1, _, _ := buildTestGraph(t)
	h2, _, _ := buildTestGraph(t)

	var b1, b2 bytes.Buffer
	require.NoError(t, h1.Save(&b1))
	require.NoError(t, h2.Save(&b2))
	assert.Equal(t, b1.Bytes(), b2.Bytes())
}

func TestDegreeBounds(t *testing.T) {
	h, _, _ := buildTestGraph(t, func(o *Options) { o.M = 6 })
	st := h.Stats()

	assert.Equal(t, testN, st.Nodes)
	assert.Equal(t, testN, st.LevelCounts[0])
	assert.LessOrEqual(t, st.MaxDegree, 12)
	for _, layers := range h.links {
		for l := 1; l < len(layers); l++ {
			assert.LessOrEqual(t, len(layers[l]), 6)
		}
	}
}

func TestPadding(t *testing.T) {
	h, err := New(func(o *Options) { o.Dimension = 2 })
	require.NoError(t, err)
	require.NoError(t, h.Build(context.Background(), []float32{0, 0, 1, 1, 2, 2}, 3))

	s, err := h.Searcher()
	require.NoError(t, err)

	dst := make([]uint32, 5)
	n, err := s.Search([]float32{0, 0}, 5, dst)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []uint32{0, 1, 2, index.InvalidID, index.InvalidID}, dst)
}

func TestErrors(t *testing.T) {
	_, err := New()
	assert.Error(t, err, "dimension is required")

	h, err := New(func(o *Options) { o.Dimension = 4 })
	require.NoError(t, err)

	assert.ErrorIs(t, h.Build(context.Background(), nil, 0), index.ErrEmptyBuild)
	assert.ErrorIs(t, h.Build(context.Background(), make([]float32, 7), 2), index.ErrCountMismatch)
	assert.ErrorIs(t, h.Save(&bytes.Buffer{}), index.ErrNotBuilt)

	_, err = h.Searcher()
	assert.ErrorIs(t, err, index.ErrNotBuilt)

	require.NoError(t, h.Build(context.Background(), make([]float32, 8), 2))
	s, err := h.Searcher()
	require.NoError(t, err)

	var dm *index.ErrDimensionMismatch
	assert.ErrorAs(t, s.SetData(make([]float32, 6), 2, 3), &dm)
	assert.ErrorIs(t, s.SetData(make([]float32, 12), 3, 4), index.ErrCountMismatch)

	_, err = s.Search([]float32{1, 2}, 1, make([]uint32, 1))
	assert.ErrorAs(t, err, &dm)

	_, err = s.Search([]float32{1, 2, 3, 4}, 3, make([]uint32, 1))
	assert.Error(t, err)

	n, err := s.Search([]float32{1, 2, 3, 4}, 0, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLoadCorrupt(t *testing.T) {
	h, _, _ := buildTestGraph(t)

	var buf bytes.Buffer
	require.NoError(t, h.Save(&buf))
	data := buf.Bytes()

	fresh, err := New(func(o *Options) { o.Dimension = testDim })
	require.NoError(t, err)

	assert.Error(t, fresh.Load(bytes.NewReader(data[:len(data)/2])))
	assert.Equal(t, 0, fresh.Len(), "failed load leaves the graph untouched")

	flipped := bytes.Clone(data)
	flipped[len(flipped)/2] ^= 0xFF
	assert.Error(t, fresh.Load(bytes.NewReader(flipped)))
}

func TestBuildCanceled(t *testing.T) {
	rng := testutil.NewRNG(1)
	data := testutil.Flatten(rng.UniformVectors(3000, 4))

	h, err := New(func(o *Options) { o.Dimension = 4 })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.Build(ctx, data, 3000), context.Canceled)
}

func TestRegisteredFactory(t *testing.T) {
	idx, err := index.New(Kind, index.Options{Dimension: 8, M: 4, Metric: distance.MetricCosine})
	require.NoError(t, err)
	h := idx.(*HNSW)
	assert.Equal(t, 4, h.opts.M)
	assert.Equal(t, DefaultEFConstruction, h.opts.EFConstruction)
	assert.Equal(t, distance.MetricCosine, h.opts.Metric)
}
