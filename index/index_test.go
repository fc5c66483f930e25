package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/internal/compress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockIndex struct{ dim int }

func (m *mockIndex) Kind() string                                { return "mock" }
func (m *mockIndex) Dimension() int                              { return m.dim }
func (m *mockIndex) Build(context.Context, []float32, int) error { return nil }
func (m *mockIndex) Save(io.Writer) error                        { return nil }
func (m *mockIndex) Load(io.Reader) error                        { return nil }
func (m *mockIndex) Searcher() (Searcher, error)                 { return nil, ErrNotBuilt }

func TestRegistry(t *testing.T) {
	Register("mock", func(opts Options) (Index, error) {
		return &mockIndex{dim: opts.Dimension}, nil
	})

	idx, err := New("mock", Options{Dimension: 7})
	require.NoError(t, err)
	assert.Equal(t, 7, idx.Dimension())
	assert.Contains(t, Kinds(), "mock")

	_, err = New("nope", Options{})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestPadInvalid(t *testing.T) {
	dst := []uint32{1, 2, 3, 4}
	PadInvalid(dst, 1, 3)
	assert.Equal(t, []uint32{1, InvalidID, InvalidID, 4}, dst)
}

func TestDimensionMismatchError(t *testing.T) {
	var err error = &ErrDimensionMismatch{Expected: 4, Actual: 3}
	var dm *ErrDimensionMismatch
	require.True(t, errors.As(err, &dm))
	assert.Equal(t, "dimension mismatch: expected 4, got 3", err.Error())
}

func writeTestSnapshot(t *testing.T, c compress.Type, body []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	h := NewSnapshotHeader(KindFlat, distance.MetricCosine, c, 16, 3)
	require.NoError(t, WriteSnapshot(&buf, h, func(w io.Writer) error {
		_, err := w.Write(body)
		return err
	}))
	return buf.Bytes()
}

func TestSnapshotRoundTrip(t *testing.T) {
	body := bytes.Repeat([]byte("graph"), 1000)

	for _, c := range []compress.Type{compress.None, compress.LZ4, compress.ZSTD, compress.Snappy} {
		t.Run(c.String(), func(t *testing.T) {
			data := writeTestSnapshot(t, c, body)

			err := ReadSnapshot(bytes.NewReader(data), KindFlat, func(h SnapshotHeader, r io.Reader) error {
				assert.Equal(t, uint32(16), h.Dimension)
				assert.Equal(t, uint64(3), h.Count)
				assert.Equal(t, uint8(distance.MetricCosine), h.Metric)

				got := make([]byte, len(body))
				_, err := io.ReadFull(r, got)
				require.NoError(t, err)
				assert.Equal(t, body, got)
				return nil
			})
			require.NoError(t, err)
		})
	}
}

func TestSnapshotErrors(t *testing.T) {
	body := []byte("0123456789abcdef")
	data := writeTestSnapshot(t, compress.None, body)

	readAll := func(data []byte, kind uint8) error {
		return ReadSnapshot(bytes.NewReader(data), kind, func(_ SnapshotHeader, r io.Reader) error {
			_, err := io.ReadFull(r, make([]byte, len(body)))
			return err
		})
	}

	t.Run("Kind", func(t *testing.T) {
		assert.ErrorIs(t, readAll(data, KindHNSW), ErrKindMismatch)
	})

	t.Run("Magic", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad, 0xDEADBEEF)
		assert.ErrorIs(t, readAll(bad, KindFlat), ErrInvalidMagic)
	})

	t.Run("Version", func(t *testing.T) {
		bad := bytes.Clone(data)
		binary.LittleEndian.PutUint32(bad[4:], 0x00090000)
		assert.ErrorIs(t, readAll(bad, KindFlat), ErrInvalidVersion)
	})

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[32+8+2] ^= 0xFF
		assert.ErrorIs(t, readAll(bad, KindFlat), ErrChecksum)
	})

	t.Run("Truncated", func(t *testing.T) {
		assert.Error(t, readAll(data[:20], KindFlat))
		assert.Error(t, readAll(data[:len(data)-2], KindFlat))
	})
}
