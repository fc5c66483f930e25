package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Write encodes rows in the file format. The dimension is taken from the
// first row; use WriteMatrix to write an empty matrix with a dimension.
func Write[T Element](w io.Writer, rows [][]T) error {
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	return WriteMatrix(w, &Matrix[T]{Rows: rows, Dim: dim})
}

// WriteMatrix encodes m in the file format.
func WriteMatrix[T Element](w io.Writer, m *Matrix[T]) error {
	if uint64(len(m.Rows)) > math.MaxUint32 || uint64(m.Dim) > math.MaxUint32 {
		return fmt.Errorf("%w: %d x %d does not fit the header", ErrInvalidHeader, len(m.Rows), m.Dim)
	}

	bw := bufio.NewWriterSize(w, readBufferSize)

	var hdr [headerSize]byte
	binary.LittleEndian.PutUint32(hdr[0:], uint32(len(m.Rows)))
	binary.LittleEndian.PutUint32(hdr[4:], uint32(m.Dim))
	if _, err := bw.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, m.Dim*elementSize)
	for i, row := range m.Rows {
		if len(row) != m.Dim {
			return fmt.Errorf("%w: row %d has %d elements, want %d", ErrRaggedRow, i, len(row), m.Dim)
		}
		encodeRow(buf, row)
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func encodeRow[T Element](dst []byte, row []T) {
	switch r := any(row).(type) {
	case []float32:
		for i, v := range r {
			binary.LittleEndian.PutUint32(dst[i*elementSize:], math.Float32bits(v))
		}
	case []int32:
		for i, v := range r {
			binary.LittleEndian.PutUint32(dst[i*elementSize:], uint32(v))
		}
	case []uint32:
		for i, v := range r {
			binary.LittleEndian.PutUint32(dst[i*elementSize:], v)
		}
	}
}
