package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"rewardledger/internal/platform/config"
	"rewardledger/internal/platform/httpserver"

	"golang.org/x/sync/errgroup"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const shutdownTimeout = 10 * time.Second

type APIApp struct {
	server  *httpserver.Server
	modules *modules
	// pipeline is set for the memory backend, where no separate worker
	// process can see the outboxes.
	pipeline *eventPipeline
	logger   *slog.Logger
}

type WorkerApp struct {
	modules  *modules
	pipeline *eventPipeline
	logger   *slog.Logger
}

func BuildAPI(ctx context.Context, cfg config.Config, logger *slog.Logger) (*APIApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "api")

	built, err := buildModules(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &APIApp{
		server:  httpserver.New(built.ledger, built.vote, logger, normalizeAddr(cfg.HTTPPort)),
		modules: built,
		logger:  logger,
	}
	if cfg.StorageBackend == config.StorageBackendMemory {
		app.pipeline = newEventPipeline(built, cfg.KafkaBrokers, cfg.OutboxBatchSize, cfg.OutboxPollInterval, logger)
	}
	return app, nil
}

func BuildWorker(ctx context.Context, cfg config.Config, logger *slog.Logger) (*WorkerApp, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageBackend != config.StorageBackendPostgres {
		return nil, errors.New("worker requires the postgres storage backend; the memory backend relays inside the api process")
	}

	built, err := buildModules(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		modules:  built,
		pipeline: newEventPipeline(built, cfg.KafkaBrokers, cfg.OutboxBatchSize, cfg.OutboxPollInterval, logger),
		logger:   logger,
	}, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *APIApp) Run(ctx context.Context) error {
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"in_process_pipeline", a.pipeline != nil,
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	if a.pipeline != nil {
		group.Go(func() error {
			return a.pipeline.Run(groupCtx)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.modules != nil {
		return a.modules.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return w.pipeline.Run(ctx)
}

func (w *WorkerApp) Close() error {
	if w.modules != nil {
		return w.modules.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
