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

	"github.com/salespulse/salespulse/internal/app"
	"github.com/salespulse/salespulse/internal/dashboard"
	"github.com/salespulse/salespulse/internal/directory"
	"github.com/salespulse/salespulse/internal/platform/cache"
	"github.com/salespulse/salespulse/internal/platform/db"
	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
	"github.com/salespulse/salespulse/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	directoryRepo := directory.NewRepository(dbpool)
	salesRepo := sales.NewRepository(dbpool)

	targetRepo := targets.NewRepository(dbpool)
	aggregator := targets.NewAggregator(salesRepo, directoryRepo)
	calculator := targets.NewCalculator(aggregator, directoryRepo, cfg.HolidayCalendar)
	targetService := targets.NewService(targetRepo, aggregator, calculator, directoryRepo, nil)

	dashboardCache := dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	if err := dashboardCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}
	dashboardService := dashboard.NewService(targetRepo, salesRepo, directoryRepo, dashboardCache,
		dashboard.Config{
			FinancingRatePct:  cfg.FinancingRatePct,
			TopDelayCustomers: cfg.TopDelayCustomers,
		}, nil)

	targetsHandler := targets.NewHandler(logger, targetService, dashboardCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		TargetsHandler:   targetsHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
