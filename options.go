package vecbench

import (
	"io"
	"log/slog"
	"os"

	"github.com/hupe1980/vecbench/blobstore"
	"github.com/hupe1980/vecbench/index"
	"github.com/hupe1980/vecbench/report"
	"go.opentelemetry.io/otel/trace"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	store            blobstore.BlobStore
	index            index.Index
	sinks            []report.Sink
	sinksSet         bool
	tracerProvider   trace.TracerProvider
	output           io.Writer
}

// Option configures NewHarness.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring the run.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &vecbench.BasicMetricsCollector{}
//	h, _ := vecbench.NewHarness(cfg, vecbench.WithMetricsCollector(metrics))
//	_, _ = h.Run(ctx)
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := vecbench.NewJSONLogger(slog.LevelInfo)
//	h, _ := vecbench.NewHarness(cfg, vecbench.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithBlobStore overrides the store built from the storage section.
func WithBlobStore(store blobstore.BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithIndex supplies the index instead of creating one from the index
// section through the index registry.
func WithIndex(idx index.Index) Option {
	return func(o *options) {
		o.index = idx
	}
}

// WithSinks replaces the sinks derived from the report section. Calling
// it without arguments disables reporting.
func WithSinks(sinks ...report.Sink) Option {
	return func(o *options) {
		o.sinks = sinks
		o.sinksSet = true
	}
}

// WithTracerProvider configures OpenTelemetry tracing. Without it the
// global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithOutput sets where the text or JSON report is printed. Default: stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		output:           os.Stdout,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
