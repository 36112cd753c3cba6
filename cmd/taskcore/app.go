package main

import (
	"context"
	"errors"
	"fmt"

	"taskcore/internal/backup"
	"taskcore/internal/blob"
	"taskcore/internal/config"
	"taskcore/internal/core"
	"taskcore/internal/handlers"
	"taskcore/internal/observability"
	"taskcore/pkg/domain"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// app is the process wiring shared by every subcommand.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *observability.PrometheusRecorder
	tracing  *sdktrace.TracerProvider
	store    domain.PersistentStore
	svc      *core.Service
	mediator *handlers.Mediator
}

func openApp(cfg *config.Config) (*app, error) {
	log, err := observability.NewZapLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	a := &app{
		cfg:     cfg,
		log:     log,
		metrics: observability.NewPrometheusRecorder(cfg.Metrics.Namespace),
	}
	logger := observability.NewLogger(log)
	opts := []core.Option{core.WithLogger(logger), core.WithMetricsRecorder(a.metrics)}
	if cfg.Tracing.Enabled {
		a.tracing = observability.NewLoggingTracerProvider(log)
		opts = append(opts, core.WithTracer(observability.NewOTelTracer(a.tracing)))
	}

	store, err := core.OpenStore(cfg.StorageOptions(), core.NewDefaultRulesEngine())
	if err != nil {
		_ = log.Sync()
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	a.store = store
	a.svc = core.NewService(store, opts...)
	a.mediator, err = handlers.New(a.svc, logger)
	if err != nil {
		_ = a.Close(context.Background())
		return nil, err
	}
	log.Debug("store opened", zap.String("driver", cfg.Storage.Driver))
	return a, nil
}

// exporter opens the blob store on first use so commands that never touch
// snapshots do not create the fs root.
func (a *app) exporter(ctx context.Context) (*backup.Exporter, error) {
	blobs, err := blob.Open(ctx, a.cfg.BlobOptions())
	if err != nil {
		return nil, fmt.Errorf("open %s blob store: %w", a.cfg.Blob.Driver, err)
	}
	return backup.NewExporter(a.store, blobs, backup.WithLogger(a.log)), nil
}

func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}
