// Package flat implements an exhaustive exact nearest-neighbor index.
//
// Every query scans all base vectors, so results are exact and the search
// effort set with SetEf is ignored. It is the reference collaborator for
// recall measurements.
package flat

import (
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/vecbench/distance"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/compress"
	"github.com/hupe1980/vecbench/internal/queue"
)

// Kind is the registered kind name.
const Kind = "flat"

// Compile-time checks
var (
	_ index.Index    = (*Flat)(nil)
	_ index.Searcher = (*Searcher)(nil)
)

func init() {
	index.Register(Kind, func(o index.Options) (index.Index, error) {
		return New(func(opts *Options) {
			opts.Dimension = o.Dimension
			opts.Metric = o.Metric
			opts.Compression = o.Compression
		})
	})
}

// Options represents the options for configuring a flat index.
type Options struct {
	Dimension   int
	Metric      distance.Metric
	Compression compress.Type
}

// Flat is an exact index. It keeps no state besides the shape of the data;
// the vectors themselves are bound to the Searcher.
type Flat struct {
	opts  Options
	count int
	data  []float32
}

// New creates an empty flat index.
func New(optFns ...func(o *Options)) (*Flat, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension %d", opts.Dimension)
	}
	if _, err := distance.Provider(opts.Metric); err != nil {
		return nil, err
	}
	return &Flat{opts: opts}, nil
}

// Kind returns "flat".
func (f *Flat) Kind() string { return Kind }

// Dimension returns the vector dimension.
func (f *Flat) Dimension() int { return f.opts.Dimension }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return f.count }

// Build records the n vectors in data.
func (f *Flat) Build(ctx context.Context, data []float32, n int) error {
	if n == 0 {
		return index.ErrEmptyBuild
	}
	if need := n * f.opts.Dimension; len(data) < need {
		return fmt.Errorf("%w: buffer holds %d floats, need %d", index.ErrCountMismatch, len(data), need)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.count = n
	f.data = data[:n*f.opts.Dimension]
	return nil
}

// Save writes a snapshot holding only the shape and metric.
func (f *Flat) Save(w io.Writer) error {
	if f.count == 0 {
		return index.ErrNotBuilt
	}
	hdr := index.NewSnapshotHeader(index.KindFlat, f.opts.Metric, f.opts.Compression, f.opts.Dimension, f.count)
	return index.WriteSnapshot(w, hdr, func(io.Writer) error { return nil })
}

// Load adopts the shape and metric of a snapshot written by Save.
func (f *Flat) Load(r io.Reader) error {
	var opts Options
	var count int

	err := index.ReadSnapshot(r, index.KindFlat, func(h index.SnapshotHeader, _ io.Reader) error {
		opts = Options{
			Dimension:   int(h.Dimension),
			Metric:      distance.Metric(h.Metric),
			Compression: compress.Type(h.Compression),
		}
		count = int(h.Count)
		if count == 0 || opts.Dimension == 0 {
			return fmt.Errorf("flat: invalid snapshot shape %dx%d", count, opts.Dimension)
		}
		_, err := distance.Provider(opts.Metric)
		return err
	})
	if err != nil {
		return err
	}

	f.opts = opts
	f.count = count
	f.data = nil
	return nil
}

// Searcher returns a query handle.
func (f *Flat) Searcher() (index.Searcher, error) {
	if f.count == 0 {
		return nil, index.ErrNotBuilt
	}
	fn, err := distance.Provider(f.opts.Metric)
	if err != nil {
		return nil, err
	}
	return &Searcher{index: f, data: f.data, distFn: fn}, nil
}

// Searcher scans the bound vectors. Search is safe for concurrent use.
type Searcher struct {
	index  *Flat
	data   []float32
	distFn distance.Func
}

// SetData binds the base vectors.
func (s *Searcher) SetData(data []float32, n, dim int) error {
	if dim != s.index.opts.Dimension {
		return &index.ErrDimensionMismatch{Expected: s.index.opts.Dimension, Actual: dim}
	}
	if n != s.index.count || len(data) < n*dim {
		return fmt.Errorf("%w: index has %d vectors, data has %d (%d floats)", index.ErrCountMismatch, s.index.count, n, len(data))
	}
	s.data = data[:n*dim]
	return nil
}

// SetEf is a no-op; exhaustive search has no effort knob.
func (s *Searcher) SetEf(int) {}

// Search writes the exact k nearest ids, closest first, into dst[:k].
// Equal distances are ordered by id.
func (s *Searcher) Search(query []float32, k int, dst []uint32) (int, error) {
	dim := s.index.opts.Dimension
	if s.data == nil {
		return 0, index.ErrNoData
	}
	if len(query) != dim {
		return 0, &index.ErrDimensionMismatch{Expected: dim, Actual: len(query)}
	}
	if k <= 0 {
		return 0, nil
	}
	if len(dst) < k {
		return 0, fmt.Errorf("flat: result buffer holds %d ids, need %d", len(dst), k)
	}

	top := queue.NewMax(k)
	for i := range s.index.count {
		d := s.distFn(query, s.data[i*dim:(i+1)*dim])
		top.PushBounded(queue.Item{ID: uint32(i), Distance: d}, k)
	}

	n := top.Len()
	for i := n - 1; i >= 0; i-- {
		it, _ := top.Pop()
		dst[i] = it.ID
	}
	index.PadInvalid(dst, n, k)

	return n, nil
}
