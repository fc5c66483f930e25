package vecbench

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with vecbench-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return NewLogger(slog.DiscardHandler)
}

// WithRunID adds a run_id field to the logger.
func (l *Logger) WithRunID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("run_id", id),
	}
}

// WithK adds a k (neighbor count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithDimension adds a dimension field to the logger.
func (l *Logger) WithDimension(dim int) *Logger {
	return &Logger{
		Logger: l.Logger.With("dimension", dim),
	}
}

// LogRead logs loading one input file.
func (l *Logger) LogRead(ctx context.Context, path string, points, dim int, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "read failed",
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "read completed",
			"path", path,
			"points", points,
			"dimensions", dim,
			"elapsed", elapsed,
		)
	}
}

// LogIndex logs building and saving, or loading, the index.
func (l *Logger) LogIndex(ctx context.Context, kind string, mode Mode, path string, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "index preparation failed",
			"kind", kind,
			"mode", mode.String(),
			"path", path,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "index ready",
			"kind", kind,
			"mode", mode.String(),
			"path", path,
			"elapsed", elapsed,
		)
	}
}

// LogRound logs the outcome of one sweep round.
func (l *Logger) LogRound(ctx context.Context, ef int, recall, qps float64, elapsed time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "round failed",
			"ef", ef,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "round completed",
			"ef", ef,
			"recall", recall,
			"qps", qps,
			"elapsed", elapsed,
		)
	}
}
