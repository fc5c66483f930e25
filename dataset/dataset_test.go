package dataset

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode[T Element](t *testing.T, rows [][]T) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	return buf.Bytes()
}

func TestReadWriteRoundTrip(t *testing.T) {
	rows := testutil.NewRNG(4711).UniformVectors(100, 7)
	data := encode(t, rows)

	assert.Len(t, data, headerSize+100*7*elementSize)
	assert.Equal(t, uint32(100), binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(7), binary.LittleEndian.Uint32(data[4:]))

	m, err := Read[float32](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 7, m.Dim)
	assert.Equal(t, 100, m.Len())
	assert.Equal(t, rows, m.Rows)
}

func TestReadIdempotent(t *testing.T) {
	rows := [][]float32{
		{float32(math.NaN()), float32(math.Inf(1)), -0.0},
		{math.SmallestNonzeroFloat32, math.MaxFloat32, 1.5},
	}
	data := encode(t, rows)

	a, err := Read[float32](bytes.NewReader(data))
	require.NoError(t, err)
	b, err := Read[float32](bytes.NewReader(data))
	require.NoError(t, err)

	require.Equal(t, a.Len(), b.Len())
	for i := range a.Rows {
		for d := range a.Rows[i] {
			assert.Equal(t, math.Float32bits(a.Rows[i][d]), math.Float32bits(b.Rows[i][d]), "row %d dim %d", i, d)
		}
	}

	var again bytes.Buffer
	require.NoError(t, WriteMatrix(&again, a))
	assert.Equal(t, data, again.Bytes())
}

func TestReadAsConvertsElements(t *testing.T) {
	data := encode(t, [][]int32{{0, 5, -1}, {7, 8, 9}})

	ids, err := ReadAs[int32, uint32](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, [][]uint32{{0, 5, math.MaxUint32}, {7, 8, 9}}, ids.Rows)

	asFloat, err := ReadAs[int32, float32](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, []float32{7, 8, 9}, asFloat.Rows[1])
}

func TestReadEmptyKeepsDimension(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, &Matrix[float32]{Dim: 128}))

	m, err := Read[float32](&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 128, m.Dim)
}

func TestReadErrors(t *testing.T) {
	data := encode(t, [][]float32{{1, 2}, {3, 4}})

	t.Run("Empty", func(t *testing.T) {
		_, err := Read[float32](bytes.NewReader(nil))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := Read[float32](bytes.NewReader(data[:5]))
		assert.ErrorIs(t, err, ErrTruncated)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("ShortBody", func(t *testing.T) {
		_, err := Read[float32](bytes.NewReader(data[:len(data)-1]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("MissingRow", func(t *testing.T) {
		_, err := Read[float32](bytes.NewReader(data[:len(data)-8]))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("Trailing", func(t *testing.T) {
		_, err := Read[float32](bytes.NewReader(append(bytes.Clone(data), 0)))
		assert.ErrorIs(t, err, ErrTrailingData)
	})

	t.Run("ImpossibleShape", func(t *testing.T) {
		hdr := make([]byte, headerSize)
		binary.LittleEndian.PutUint32(hdr[0:], math.MaxUint32)
		binary.LittleEndian.PutUint32(hdr[4:], math.MaxUint32)
		_, err := Read[float32](bytes.NewReader(hdr))
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})
}

func TestWriteRagged(t *testing.T) {
	err := Write(io.Discard, [][]float32{{1, 2}, {3}})
	assert.ErrorIs(t, err, ErrRaggedRow)
}

func TestReadHeader(t *testing.T) {
	h, err := ReadHeader(bytes.NewReader(encode(t, [][]uint32{{1, 2, 3}})))
	require.NoError(t, err)
	assert.Equal(t, Header{Count: 1, Dim: 3}, h)
	assert.Equal(t, int64(headerSize+3*elementSize), h.FileSize())
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	rows := [][]float32{{1, 2, 3}, {4, 5, 6}}
	require.NoError(t, store.Put(ctx, "base.fbin", encode(t, rows)))
	require.NoError(t, store.Put(ctx, "gt.ibin", encode(t, [][]int32{{1, 0}})))

	m, err := Load[float32](ctx, store, "base.fbin", nil)
	require.NoError(t, err)
	assert.Equal(t, rows, m.Rows)

	gt, err := LoadAs[int32, uint32](ctx, store, "gt.ibin", nil)
	require.NoError(t, err)
	assert.Equal(t, [][]uint32{{1, 0}}, gt.Rows)

	_, err = Load[float32](ctx, store, "missing.fbin", nil)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLoadSizeChecks(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	data := encode(t, [][]float32{{1, 2}, {3, 4}})

	require.NoError(t, store.Put(ctx, "short", data[:len(data)-3]))
	require.NoError(t, store.Put(ctx, "long", append(bytes.Clone(data), 1, 2, 3, 4)))
	require.NoError(t, store.Put(ctx, "tiny", data[:3]))

	_, err := Load[float32](ctx, store, "short", nil)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Load[float32](ctx, store, "long", nil)
	assert.ErrorIs(t, err, ErrTrailingData)

	_, err = Load[float32](ctx, store, "tiny", nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestLoadLocalStore(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	rows := testutil.NewRNG(1).UniformVectors(50, 16)
	require.NoError(t, store.Put(ctx, "data/base.fbin", encode(t, rows)))

	m, err := Load[float32](ctx, store, "data/base.fbin", nil)
	require.NoError(t, err)
	assert.Equal(t, rows, m.Rows)
}

func TestLoadCanceled(t *testing.T) {
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), "base", encode(t, [][]float32{{1}})))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load[float32](ctx, store, "base", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadAsLocalStoreSpansChunks(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	n := decodeRowsPerChunk*2 + 7
	rows := make([][]int32, n)
	for i := range rows {
		rows[i] = []int32{int32(i), int32(n - i)}
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, rows))
	require.NoError(t, store.Put(ctx, "gt.ibin", buf.Bytes()))

	m, err := LoadAs[int32, uint32](ctx, store, "gt.ibin", nil)
	require.NoError(t, err)
	require.Equal(t, n, m.Len())
	assert.Equal(t, 2, m.Dim)
	assert.Equal(t, []uint32{0, uint32(n)}, m.Rows[0])
	assert.Equal(t, []uint32{uint32(n - 1), 1}, m.Rows[n-1])
	assert.Equal(t, 2, cap(m.Rows[decodeRowsPerChunk]))
}
