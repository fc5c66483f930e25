package vecbench

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecbench/index"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptySweep is returned when no ef value is configured.
	ErrEmptySweep = errors.New("ef sweep is empty")

	// ErrIndexNotFound is returned in reuse mode when no persisted index
	// exists at the configured path. It wraps blobstore.ErrNotFound.
	ErrIndexNotFound = errors.New("persisted index not found")
)

// ErrDimensionMismatch is returned when the persisted index, the queries or
// the base vectors disagree on the vector dimension.
type ErrDimensionMismatch = index.ErrDimensionMismatch

// ErrShapeMismatch indicates inputs whose row counts do not line up, such
// as fewer ground-truth rows than queries.
type ErrShapeMismatch struct {
	What     string
	Expected int
	Actual   int
}

func (e *ErrShapeMismatch) Error() string {
	return fmt.Sprintf("shape mismatch: %s: expected %d, got %d", e.What, e.Expected, e.Actual)
}

// ErrInvalidConfig reports a configuration field with an unusable value.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrInvalidConfig struct {
	Field string
	Value any
	cause error
}

func (e *ErrInvalidConfig) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("invalid config %s=%v: %v", e.Field, e.Value, e.cause)
	}
	return fmt.Sprintf("invalid config %s=%v", e.Field, e.Value)
}

func (e *ErrInvalidConfig) Unwrap() error { return e.cause }

func invalidConfig(field string, value any, cause error) error {
	return &ErrInvalidConfig{Field: field, Value: value, cause: cause}
}
