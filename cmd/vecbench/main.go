// Package main provides the vecbench CLI.
//
// Usage:
//
//	vecbench run --config bench.yaml [--log-level info] [--log-format text] [--metrics-addr :9090]
//
// The configuration file describes the inputs, the index and the ef sweep;
// see vecbench.Config for the fields.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hupe1980/vecbench"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vecbench",
		Short:         "Recall and throughput sweeps for nearest-neighbor indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

type runFlags struct {
	config      string
	logLevel    string
	logFormat   string
	metricsAddr string
	mode        string
}

func newRunCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark described by a configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}

	cmd.Flags().StringVarP(&f.config, "config", "c", "", "path to the YAML configuration (required)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	cmd.Flags().StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	cmd.Flags().StringVar(&f.mode, "mode", "", "override the configured mode: rebuild or reuse")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func run(ctx context.Context, f runFlags) error {
	cfg, err := vecbench.LoadConfigFile(f.config)
	if err != nil {
		return err
	}
	if f.mode != "" {
		if cfg.Mode, err = vecbench.ParseMode(f.mode); err != nil {
			return err
		}
	}

	logger, err := newLogger(f.logLevel, f.logFormat)
	if err != nil {
		return err
	}

	opts := []vecbench.Option{vecbench.WithLogger(logger)}

	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := vecbench.NewPrometheusCollector(reg)
		if err != nil {
			return err
		}
		opts = append(opts, vecbench.WithMetricsCollector(collector))

		srv := &http.Server{
			Addr:              f.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	h, err := vecbench.NewHarness(cfg, opts...)
	if err != nil {
		return err
	}

	_, err = h.Run(ctx)
	return err
}

func newLogger(level, format string) (*vecbench.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch strings.ToLower(format) {
	case "", "text":
		return vecbench.NewTextLogger(lvl), nil
	case "json":
		return vecbench.NewJSONLogger(lvl), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}
