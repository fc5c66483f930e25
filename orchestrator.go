package vecbench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/index"
)

// Orchestrator obtains a ready index and searcher: it either builds the
// index and saves it, or loads a saved one. Exactly one of the two happens
// per Prepare call.
type Orchestrator struct {
	store   blobstore.BlobStore
	index   index.Index
	mode    Mode
	path    string
	logger  *Logger
	metrics MetricsCollector
}

// NewOrchestrator creates an orchestrator persisting idx at path in store.
// Only the logging and metrics options apply.
func NewOrchestrator(store blobstore.BlobStore, idx index.Index, mode Mode, path string, optFns ...Option) *Orchestrator {
	o := applyOptions(optFns)
	return &Orchestrator{
		store:   store,
		index:   idx,
		mode:    mode,
		path:    path,
		logger:  o.logger,
		metrics: o.metricsCollector,
	}
}

// Prepare returns the index and a searcher bound to the n vectors in flat.
func (o *Orchestrator) Prepare(ctx context.Context, flat []float32, n, dim int) (index.Index, index.Searcher, error) {
	start := time.Now()

	err := o.prepare(ctx, flat, n, dim)

	elapsed := time.Since(start)
	o.logger.LogIndex(ctx, o.index.Kind(), o.mode, o.path, elapsed, err)
	o.metrics.RecordIndex(o.index.Kind(), o.mode, elapsed, err)
	if err != nil {
		return nil, nil, err
	}

	s, err := o.index.Searcher()
	if err != nil {
		return nil, nil, err
	}
	if err := s.SetData(flat, n, dim); err != nil {
		return nil, nil, fmt.Errorf("bind base vectors: %w", err)
	}

	return o.index, s, nil
}

func (o *Orchestrator) prepare(ctx context.Context, flat []float32, n, dim int) error {
	if len(flat) != n*dim {
		return &ErrShapeMismatch{What: "flat buffer length", Expected: n * dim, Actual: len(flat)}
	}

	switch o.mode {
	case ModeRebuild:
		if d := o.index.Dimension(); d != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: d}
		}
		if n == 0 {
			return index.ErrEmptyBuild
		}
		if err := o.index.Build(ctx, flat, n); err != nil {
			return fmt.Errorf("build %s index: %w", o.index.Kind(), err)
		}
		return o.save(ctx)
	case ModeReuse:
		if err := o.load(ctx); err != nil {
			return err
		}
		if d := o.index.Dimension(); d != dim {
			return &ErrDimensionMismatch{Expected: dim, Actual: d}
		}
		return nil
	default:
		return invalidConfig("mode", o.mode, nil)
	}
}

func (o *Orchestrator) save(ctx context.Context) error {
	w, err := o.store.Create(ctx, o.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", o.path, err)
	}

	if err := o.index.Save(w); err != nil {
		_ = blobstore.Abort(w)
		return fmt.Errorf("save index to %s: %w", o.path, err)
	}
	if err := w.Sync(); err != nil {
		_ = blobstore.Abort(w)
		return fmt.Errorf("sync %s: %w", o.path, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s: %w", o.path, err)
	}
	return nil
}

func (o *Orchestrator) load(ctx context.Context) error {
	rc, _, err := blobstore.NewReader(ctx, o.store, o.path)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("%w: %s: %w", ErrIndexNotFound, o.path, err)
		}
		return fmt.Errorf("open %s: %w", o.path, err)
	}
	defer rc.Close()

	if err := o.index.Load(rc); err != nil {
		return fmt.Errorf("load index from %s: %w", o.path, err)
	}
	return nil
}
