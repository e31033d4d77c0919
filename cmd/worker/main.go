package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/ledgercast/ledgercast/internal/app"
	"github.com/ledgercast/ledgercast/internal/forecast"
	jobmetrics "github.com/ledgercast/ledgercast/internal/jobs"
	"github.com/ledgercast/ledgercast/internal/platform/cache"
	"github.com/ledgercast/ledgercast/internal/platform/db"
	"github.com/ledgercast/ledgercast/jobs"
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

	runner, err := forecast.NewRunner(forecast.DefaultPoolGroups())
	if err != nil {
		logger.Error("configure pool groups", slog.Any("error", err))
		os.Exit(1)
	}
	forecastRepo := forecast.NewRepository(pool)
	forecastCache := forecast.NewCache(redisClient, cfg.CacheTTL)
	forecastService := forecast.NewService(forecastRepo, forecastCache, runner)

	metrics := jobmetrics.NewMetrics(nil)
	refreshHandler := jobs.NewForecastRefreshHandler(forecastService, metrics, logger)

	nightlyTask, err := jobs.NewForecastRefreshTask(jobs.ForecastRefreshPayload{
		ForecastMonths:  cfg.ForecastMonths,
		RunRateMonths:   cfg.RunRateMonths,
		FiscalYearStart: cfg.FiscalYearStart,
	})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskForecastRefresh, Handler: refreshHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 2 * * *", Task: nightlyTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
