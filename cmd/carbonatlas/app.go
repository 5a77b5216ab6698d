package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"carbonatlas/internal/assets"
	"carbonatlas/internal/audit"
	"carbonatlas/internal/config"
	"carbonatlas/internal/logging"
	"carbonatlas/internal/state"
	"carbonatlas/internal/telemetry"
)

// app holds the wired components shared by the subcommands.
type app struct {
	store    *state.Store
	recorder audit.Recorder
	registry *prometheus.Registry
	closers  []func() error
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	logger := logging.FromContext(ctx)
	a := &app{}

	src, err := assets.Open(ctx, cfg.AssetSource())
	if err != nil {
		return nil, fmt.Errorf("open assets: %w", err)
	}
	if c, ok := src.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	opts := []state.Option{
		state.WithLocations(cfg.Locations()),
		state.WithLogger(logger),
		state.WithConcurrency(cfg.Load.Concurrency),
	}

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics, err := telemetry.NewPrometheus(a.registry)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, state.WithMetrics(metrics))
	}

	rec, err := audit.Open(ctx, cfg.AuditRecorder())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("open audit: %w", err)
	}
	if rec != nil {
		a.recorder = rec
		a.closers = append(a.closers, rec.Close)
		opts = append(opts, state.WithRecorder(rec))
	}

	a.store = state.New(src, opts...)
	logger.Debug("components ready",
		zap.String("assets", string(src.Driver())),
		zap.String("audit", cfg.Audit.Driver),
		zap.Bool("metrics", cfg.Metrics.Enabled))
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
