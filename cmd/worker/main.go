package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/salespulse/salespulse/internal/app"
	"github.com/salespulse/salespulse/internal/directory"
	"github.com/salespulse/salespulse/internal/platform/db"
	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
	"github.com/salespulse/salespulse/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	directoryRepo := directory.NewRepository(pool)
	salesRepo := sales.NewRepository(pool)
	targetRepo := targets.NewRepository(pool)
	aggregator := targets.NewAggregator(salesRepo, directoryRepo)
	calculator := targets.NewCalculator(aggregator, directoryRepo, cfg.HolidayCalendar)
	targetService := targets.NewService(targetRepo, aggregator, calculator, directoryRepo, nil)

	refreshJob := jobs.NewTargetsRefreshJob(targetService, logger, nil)

	refreshTask, err := jobs.NewTargetsRefreshTask(jobs.TargetsRefreshPayload{})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTargetsRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.TargetRefreshCron, Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("cron", cfg.TargetRefreshCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
