package vecbench

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/codec"
	"github.com/hupe1980/vecbench/dataset"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/internal/pool"
	"github.com/hupe1980/vecbench/report"
	"github.com/hupe1980/vecbench/report/dynamodb"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Harness runs one configured benchmark.
type Harness struct {
	cfg        Config
	opts       options
	logger     *Logger
	metrics    MetricsCollector
	tracer     trace.Tracer
	traceAttrs []attribute.KeyValue
}

// NewHarness validates cfg and creates a harness. Storage and sinks are
// opened by Run.
func NewHarness(cfg Config, optFns ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := applyOptions(optFns)
	attrs := []attribute.KeyValue{
		attribute.String("vecbench.index.kind", cfg.Index.Kind),
		attribute.String("vecbench.mode", cfg.Mode.String()),
		attribute.Int("vecbench.k", cfg.K),
	}

	return &Harness{
		cfg:        cfg,
		opts:       o,
		logger:     o.logger,
		metrics:    o.metricsCollector,
		tracer:     newTracer(o.tracerProvider),
		traceAttrs: attrs,
	}, nil
}

// Config returns the configuration the harness was created with.
func (h *Harness) Config() Config { return h.cfg }

type inputs struct {
	base    *dataset.Matrix[float32]
	queries *dataset.Matrix[float32]
	truth   *dataset.Matrix[uint32]
}

// Run loads the inputs, prepares the index, sweeps every ef value and
// writes the report to all sinks. The report is returned even when a sink
// fails.
func (h *Harness) Run(ctx context.Context) (rep *report.Report, err error) {
	ctx, span := h.startSpan(ctx, "vecbench.Run")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	startedAt := time.Now().UTC()

	runID := h.cfg.Report.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := h.logger.WithRunID(runID).WithK(h.cfg.K)

	store := h.opts.store
	if store == nil {
		if store, err = OpenStore(ctx, h.cfg.Storage); err != nil {
			return nil, err
		}
	}

	in, err := h.load(ctx, logger, store)
	if err != nil {
		return nil, err
	}
	n, dim, nq := in.base.Len(), in.base.Dim, in.queries.Len()

	base, err := dataset.Flatten(ctx, in.base, h.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("flatten base vectors: %w", err)
	}
	queries, err := dataset.Flatten(ctx, in.queries, h.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("flatten queries: %w", err)
	}

	idx := h.opts.index
	if idx == nil {
		opts, err := h.cfg.indexOptions(dim)
		if err != nil {
			return nil, err
		}
		if idx, err = index.New(h.cfg.Index.Kind, opts); err != nil {
			return nil, err
		}
	}

	orch := NewOrchestrator(store, idx, h.cfg.Mode, h.cfg.IndexPath,
		WithLogger(logger.WithDimension(dim)), WithMetricsCollector(h.metrics))

	prepCtx, prepSpan := h.startSpan(ctx, "vecbench.Prepare", attribute.Int("vecbench.points", n))
	start := time.Now()
	_, searcher, err := orch.Prepare(prepCtx, base, n, dim)
	prepare := time.Since(start)
	prepSpan.End()
	if err != nil {
		return nil, err
	}

	p := pool.New(func(o *pool.Options) {
		o.Workers = h.cfg.Workers
		o.MaxItemsPerSec = h.cfg.MaxQPS
	})

	sweep, err := NewSweep(searcher, queries, nq, dim, h.cfg.K, p, WithMetricsCollector(h.metrics))
	if err != nil {
		return nil, err
	}

	rep = &report.Report{
		RunID:       runID,
		StartedAt:   startedAt,
		Dataset:     h.cfg.Dataset,
		Queries:     h.cfg.Queries,
		GroundTruth: h.cfg.GroundTruth,
		Points:      n,
		Dimension:   dim,
		QueryCount:  nq,
		K:           h.cfg.K,
		TruthDepth:  h.cfg.TruthDepth,
		Workers:     p.Workers(),
		IndexKind:   idx.Kind(),
		IndexPath:   h.cfg.IndexPath,
		Mode:        h.cfg.Mode.String(),
		Prepare:     prepare,
	}

	for _, ef := range h.cfg.EfSweep {
		rd, err := h.round(ctx, logger, sweep, in.truth.Rows, ef)
		if err != nil {
			return nil, err
		}
		rep.Rounds = append(rep.Rounds, rd)
	}

	sinks, err := h.sinks(ctx, store)
	if err != nil {
		return rep, err
	}
	if err := report.WriteAll(ctx, rep, sinks...); err != nil {
		return rep, fmt.Errorf("write report: %w", err)
	}

	return rep, nil
}

func (h *Harness) round(ctx context.Context, logger *Logger, sweep *Sweep, truth [][]uint32, ef int) (report.Round, error) {
	ctx, span := h.startSpan(ctx, "vecbench.Round", attribute.Int("vecbench.ef", ef))
	defer span.End()

	res, err := sweep.Round(ctx, ef)
	if err != nil {
		logger.LogRound(ctx, ef, 0, 0, 0, err)
		span.RecordError(err)
		return report.Round{}, err
	}

	ev, err := Evaluate(res.Results, truth, h.cfg.TruthDepth)
	if err != nil {
		return report.Round{}, err
	}

	rd := report.Round{
		Ef:       ef,
		Recall:   ev.Recall,
		Matches:  ev.Matches,
		Total:    ev.Total,
		Queries:  res.Results.Len(),
		Duration: res.Duration,
		QPS:      report.QPS(res.Results.Len(), res.Duration),
		Latency:  report.Summarize(res.Latencies),
	}

	span.SetAttributes(attribute.Float64("vecbench.recall", rd.Recall), attribute.Float64("vecbench.qps", rd.QPS))
	logger.LogRound(ctx, ef, rd.Recall, rd.QPS, rd.Duration, nil)
	h.metrics.RecordRound(ef, rd.Recall, rd.QPS, rd.Duration)

	return rd, nil
}

func (h *Harness) load(ctx context.Context, logger *Logger, store blobstore.BlobStore) (*inputs, error) {
	ctx, span := h.startSpan(ctx, "vecbench.Load")
	defer span.End()

	var (
		in  inputs
		err error
	)

	if in.base, err = loadMatrix(ctx, h, logger, h.cfg.Dataset, func() (*dataset.Matrix[float32], error) {
		return dataset.Load[float32](ctx, store, h.cfg.Dataset, logger.Logger)
	}); err != nil {
		return nil, err
	}
	if in.queries, err = loadMatrix(ctx, h, logger, h.cfg.Queries, func() (*dataset.Matrix[float32], error) {
		return dataset.Load[float32](ctx, store, h.cfg.Queries, logger.Logger)
	}); err != nil {
		return nil, err
	}
	if in.truth, err = loadMatrix(ctx, h, logger, h.cfg.GroundTruth, func() (*dataset.Matrix[uint32], error) {
		return dataset.LoadAs[int32, uint32](ctx, store, h.cfg.GroundTruth, logger.Logger)
	}); err != nil {
		return nil, err
	}

	if in.queries.Dim != in.base.Dim {
		return nil, fmt.Errorf("queries: %w", &ErrDimensionMismatch{Expected: in.base.Dim, Actual: in.queries.Dim})
	}
	if in.truth.Len() < in.queries.Len() {
		return nil, &ErrShapeMismatch{What: "ground truth rows", Expected: in.queries.Len(), Actual: in.truth.Len()}
	}

	return &in, nil
}

func loadMatrix[T dataset.Element](ctx context.Context, h *Harness, logger *Logger, path string, fn func() (*dataset.Matrix[T], error)) (*dataset.Matrix[T], error) {
	start := time.Now()
	m, err := fn()
	elapsed := time.Since(start)

	var points, dim int
	if m != nil {
		points, dim = m.Len(), m.Dim
	}
	logger.LogRead(ctx, path, points, dim, elapsed, err)
	h.metrics.RecordRead(path, points, elapsed, err)

	return m, err
}

// sinks returns the configured sinks unless WithSinks replaced them.
func (h *Harness) sinks(ctx context.Context, store blobstore.BlobStore) ([]report.Sink, error) {
	if h.opts.sinksSet {
		return h.opts.sinks, nil
	}

	rc := h.cfg.Report
	c, err := codec.ByName(rc.Codec)
	if err != nil {
		return nil, err
	}

	var sinks []report.Sink
	switch rc.Format {
	case "", "text":
		sinks = append(sinks, report.NewTextSink(h.opts.output))
	case "json":
		sinks = append(sinks, report.NewJSONSink(h.opts.output, c))
	}
	if rc.Path != "" {
		sinks = append(sinks, report.NewBlobSink(store, rc.Path, c))
	}
	if rc.DynamoDBTable != "" {
		client, err := NewDynamoDBClient(ctx, h.cfg.Storage)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, dynamodb.NewSink(client, rc.DynamoDBTable))
	}
	return sinks, nil
}
