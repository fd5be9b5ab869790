package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/tavola-pos/tavola/internal/app"
	"github.com/tavola-pos/tavola/internal/fulfillment"
	jobmetrics "github.com/tavola-pos/tavola/internal/jobs"
	"github.com/tavola-pos/tavola/internal/platform/db"
	"github.com/tavola-pos/tavola/jobs"
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

	defaultRate, err := decimal.NewFromString(cfg.DefaultTaxRate)
	if err != nil {
		logger.Error("parse default tax rate", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	fulfillmentRepo := fulfillment.NewRepository(pool)
	fulfillmentService := fulfillment.NewService(fulfillmentRepo, nil, defaultRate, nil, logger)
	sweepJob := jobs.NewTotalsIntegrityJob(pool, fulfillmentService, logger, jobmetrics.NewMetrics(nil))

	sweepTask, err := jobs.NewTotalsIntegrityTask(jobs.ScopeOpen)
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTotalsIntegrity, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 3 * * *", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
