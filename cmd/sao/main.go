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

	"github.com/hibiken/asynq"

	"github.com/sao-erp/sao-erp/internal/accounting/accounts"
	"github.com/sao-erp/sao-erp/internal/accounting/autopost"
	"github.com/sao-erp/sao-erp/internal/accounting/journals"
	"github.com/sao-erp/sao-erp/internal/app"
	"github.com/sao-erp/sao-erp/internal/integration"
	"github.com/sao-erp/sao-erp/internal/inventory"
	"github.com/sao-erp/sao-erp/internal/observability"
	"github.com/sao-erp/sao-erp/internal/platform/cache"
	"github.com/sao-erp/sao-erp/internal/platform/db"
	"github.com/sao-erp/sao-erp/internal/shared"
	"github.com/sao-erp/sao-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.DB("sao-api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// A nil client leaves the balance cache disabled and reads go straight to postgres.
	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, balance cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}
	balanceCache := cache.NewVersioned(redisClient, cfg.BalanceCacheTTL)

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	accountsService := accounts.NewService(accounts.NewRepository(pool), auditLogger)
	journalsService := journals.NewService(journals.NewRepository(pool), auditLogger, balanceCache, logger)

	inventoryRepo := inventory.NewRepository(pool)
	// Cost lookups only read balances, so they use a stock view without event fan-out.
	stockCosts := inventory.NewService(inventoryRepo, nil, nil, nil, logger)
	autopostService := autopost.NewService(journalsService, stockCosts)

	hooks := integration.NewHooks(
		autopostService,
		integration.NewRepository(pool),
		integration.NewMetrics(metrics.Registerer()),
		logger,
	)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger, idempotencyStore, hooks, logger)

	inspector := asynq.NewInspector(cfg.Queue())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AccountsHandler:    accounts.NewHandler(logger, accountsService),
		JournalsHandler:    journals.NewHandler(logger, journalsService),
		InventoryHandler:   inventory.NewHandler(logger, inventoryService),
		IntegrationHandler: integration.NewHandler(logger, hooks),
		JobHandler:         jobs.NewHandler(inspector, logger),
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
