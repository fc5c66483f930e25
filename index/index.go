package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
)

// InvalidID pads result slots a searcher could not fill. It never matches a
// ground-truth id.
const InvalidID = math.MaxUint32

var (
	// ErrEmptyBuild is returned when Build is called with zero vectors.
	ErrEmptyBuild = errors.New("index: cannot build from an empty dataset")

	// ErrNotBuilt is returned when an index is used before Build or Load.
	ErrNotBuilt = errors.New("index: not built or loaded")

	// ErrNoData is returned by Search before SetData bound the base vectors.
	ErrNoData = errors.New("index: searcher has no data bound")

	// ErrCountMismatch is returned when SetData binds a different number of
	// vectors than the index was built over.
	ErrCountMismatch = errors.New("index: vector count mismatch")

	// ErrUnknownKind is returned by New for an unregistered kind.
	ErrUnknownKind = errors.New("index: unknown kind")
)

// ErrDimensionMismatch reports vectors or snapshots of the wrong dimension.
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Index is a nearest-neighbor index over a flat row-major float32 buffer.
type Index interface {
	// Kind returns the registered kind name, e.g. "hnsw".
	Kind() string

	// Dimension returns the vector dimension the index was created or
	// loaded with.
	Dimension() int

	// Build constructs the index from n vectors stored row-major in data.
	Build(ctx context.Context, data []float32, n int) error

	// Save writes a snapshot of the built index.
	Save(w io.Writer) error

	// Load replaces the index state with a snapshot written by Save.
	Load(r io.Reader) error

	// Searcher returns a query handle for the built or loaded index.
	Searcher() (Searcher, error)
}

// Searcher answers top-k queries.
type Searcher interface {
	// SetData binds the base vectors the index was built over.
	SetData(data []float32, n, dim int) error

	// SetEf sets the search effort used by subsequent queries.
	SetEf(ef int)

	// Search writes up to k neighbor ids, closest first, into dst[:k] and
	// returns how many it found. Unfilled slots are set to InvalidID.
	Search(query []float32, k int, dst []uint32) (int, error)
}

// PadInvalid fills dst[n:k] with InvalidID.
func PadInvalid(dst []uint32, n, k int) {
	for i := n; i < k; i++ {
		dst[i] = InvalidID
	}
}
