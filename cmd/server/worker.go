package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/coder/quartz"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ConfabulousDev/teamdocs/internal/db"
	"github.com/ConfabulousDev/teamdocs/internal/logger"
)

var workerTracer = otel.Tracer("teamdocs/worker")

// WorkerConfig holds configuration for the orphaned activity sweeper.
type WorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int  // Rows deleted per statement
	MaxBatches   int  // Statements per cycle
	DryRun       bool // If true, count orphans without deleting them
}

// ActivitySweeper finds and deletes activity events whose document is gone.
type ActivitySweeper interface {
	CountOrphanedActivity(ctx context.Context) (int64, error)
	DeleteOrphanedActivity(ctx context.Context, limit int) (int64, error)
}

// Worker periodically purges activity left behind by best-effort deletes.
type Worker struct {
	store  ActivitySweeper
	clock  quartz.Clock
	config WorkerConfig
}

// runWorker is the entry point for the background worker process.
func runWorker() {
	logger.Info("starting activity sweeper worker")

	otelShutdown, err := otelconfig.ConfigureOpenTelemetry()
	if err != nil {
		logger.Warn("failed to configure OpenTelemetry for worker", "error", err)
	} else {
		defer otelShutdown()
	}

	workerConfig := loadWorkerConfig()
	logger.Info("worker configuration loaded",
		"poll_interval", workerConfig.PollInterval,
		"batch_size", workerConfig.BatchSize,
		"max_batches", workerConfig.MaxBatches,
		"dry_run", workerConfig.DryRun,
	)

	if workerConfig.DryRun {
		logger.Info("DRY-RUN MODE ENABLED - no activity will be deleted")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal("missing required env var", "var", "DATABASE_URL")
	}

	database, err := db.Connect(databaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	defer database.Close()

	worker := &Worker{
		store:  database,
		clock:  quartz.NewReal(),
		config: workerConfig,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutdown signal received, stopping worker")
		cancel()
	}()

	worker.Run(ctx)
	logger.Info("worker stopped")
}

// Run executes the main worker loop until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := w.clock.NewTicker(w.config.PollInterval, "worker")
	defer ticker.Stop()

	// Run immediately on startup
	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

// runOnce executes a single sweep and returns the number of deleted events.
func (w *Worker) runOnce(ctx context.Context) int64 {
	ctx, span := workerTracer.Start(ctx, "worker.run_once")
	defer span.End()

	orphaned, err := w.store.CountOrphanedActivity(ctx)
	if err != nil {
		logger.Error("failed to count orphaned activity", "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0
	}
	span.SetAttributes(attribute.Int64("events.orphaned", orphaned))

	if orphaned == 0 {
		logger.Info("no orphaned activity found")
		return 0
	}

	if w.config.DryRun {
		logger.Info("[DRY-RUN] would delete orphaned activity", "count", orphaned)
		span.SetAttributes(attribute.Bool("dry_run", true))
		return 0
	}

	var deleted int64
	for batch := 0; batch < w.config.MaxBatches; batch++ {
		select {
		case <-ctx.Done():
			logger.Info("stopping sweep due to shutdown")
			return deleted
		default:
		}

		n, err := w.store.DeleteOrphanedActivity(ctx, w.config.BatchSize)
		if err != nil {
			logger.Error("failed to delete orphaned activity", "batch", batch, "error", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			break
		}
		deleted += n
		if n < int64(w.config.BatchSize) {
			break
		}
	}

	logger.Info("sweep complete", "orphaned", orphaned, "deleted", deleted)
	span.SetAttributes(attribute.Int64("events.deleted", deleted))
	return deleted
}

// loadWorkerConfig loads worker configuration from environment variables.
func loadWorkerConfig() WorkerConfig {
	config := WorkerConfig{
		PollInterval: 30 * time.Minute,
		BatchSize:    1000,
		MaxBatches:   10,
	}

	if interval := os.Getenv("WORKER_POLL_INTERVAL"); interval != "" {
		if parsed, err := time.ParseDuration(interval); err == nil && parsed > 0 {
			config.PollInterval = parsed
		}
	}

	if v := os.Getenv("WORKER_BATCH_SIZE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid WORKER_BATCH_SIZE", "value", v)
		}
		config.BatchSize = parsed
	}

	if v := os.Getenv("WORKER_MAX_BATCHES"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			logger.Fatal("invalid WORKER_MAX_BATCHES", "value", v)
		}
		config.MaxBatches = parsed
	}

	if dryRun := os.Getenv("WORKER_DRY_RUN"); dryRun == "true" || dryRun == "1" {
		config.DryRun = true
	}

	return config
}
