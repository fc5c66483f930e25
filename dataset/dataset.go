package dataset

import (
	"errors"
	"fmt"
	"io"
)

// Element is the set of 4-byte element types the format stores.
type Element interface {
	float32 | int32 | uint32
}

const (
	headerSize  = 8
	elementSize = 4

	// maxElements bounds N*D so a corrupt header cannot request an
	// absurd allocation.
	maxElements = 1 << 38
)

var (
	// ErrTruncated is returned when the header or a row ends early.
	ErrTruncated = fmt.Errorf("dataset: truncated file: %w", io.ErrUnexpectedEOF)

	// ErrTrailingData is returned when bytes follow the last row.
	ErrTrailingData = errors.New("dataset: trailing data after last row")

	// ErrRaggedRow is returned when a row does not have the matrix dimension.
	ErrRaggedRow = errors.New("dataset: row length differs from dimension")

	// ErrInvalidHeader is returned for headers describing an impossible shape.
	ErrInvalidHeader = errors.New("dataset: invalid header")
)

// Matrix is N rows of Dim elements. Dim is kept even when there are no rows.
type Matrix[T Element] struct {
	Rows [][]T
	Dim  int
}

// Len returns the number of rows.
func (m *Matrix[T]) Len() int {
	return len(m.Rows)
}

// Header is the decoded file header.
type Header struct {
	Count int
	Dim   int
}

// Elements returns Count*Dim.
func (h Header) Elements() int {
	return h.Count * h.Dim
}

// FileSize returns the exact size in bytes of a file with this header.
func (h Header) FileSize() int64 {
	return headerSize + int64(h.Elements())*elementSize
}
