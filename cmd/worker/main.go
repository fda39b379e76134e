package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/app"
	"github.com/sao-erp/sao-erp/internal/integration"
	"github.com/sao-erp/sao-erp/internal/inventory"
	jobmetrics "github.com/sao-erp/sao-erp/internal/jobs"
	"github.com/sao-erp/sao-erp/internal/observability"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
	"github.com/sao-erp/sao-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DB("sao-worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	registry := observability.NewMetrics()
	metrics := jobmetrics.NewMetrics(registry.Registerer())

	integrityJob := jobs.NewLedgerIntegrityJob(journals.NewRepository(pool), logger, metrics)
	pendingJob := jobs.NewPendingReportJob(integration.NewRepository(pool), logger, metrics)
	stockJob := jobs.NewStockIntegrityJob(inventory.NewRepository(pool), logger, metrics)
	cleanupJob := jobs.NewIdempotencyCleanupJob(shared.NewIdempotencyStore(pool), cfg.IdempotencyRetention, logger, metrics)

	schedule := []struct {
		spec string
		name string
	}{
		{spec: "0 1 * * *", name: jobs.TaskLedgerIntegrity},
		{spec: "20 1 * * *", name: jobs.TaskStockIntegrity},
		{spec: "*/15 * * * *", name: jobs.TaskLedgerPendingReport},
		{spec: "0 3 * * 0", name: jobs.TaskIdempotencyCleanup},
	}
	cron := make([]jobs.CronRegistration, 0, len(schedule))
	for _, entry := range schedule {
		task, err := jobs.NewTask(entry.name, jobs.RunPayload{RequestedBy: "scheduler"})
		if err != nil {
			logger.Error("build task", slog.String("task", entry.name), slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron, jobs.CronRegistration{Spec: entry.spec, Task: task})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Queue(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.Handle},
			{Type: jobs.TaskLedgerPendingReport, Handler: pendingJob.Handle},
			{Type: jobs.TaskStockIntegrity, Handler: stockJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              cfg.WorkerMetricsAddr,
		Handler:           registry.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("serving worker metrics", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
