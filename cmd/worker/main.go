package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/vcards/internal/app"
	"github.com/odyssey-erp/vcards/internal/cards"
	jobmetrics "github.com/odyssey-erp/vcards/internal/jobs"
	"github.com/odyssey-erp/vcards/internal/platform/db"
	"github.com/odyssey-erp/vcards/internal/transactions"
	"github.com/odyssey-erp/vcards/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	cleaner := cards.NewCleaner(
		cards.NewRepository(pool),
		transactions.NewRepository(pool),
		cfg.TransactionRetention,
		nil,
		jobmetrics.NewMetrics(nil),
		logger,
	)
	cleanupJob := jobs.NewCardsCleanupJob(cleaner, logger)

	cronTask, err := jobs.NewCleanupTask(jobs.TriggerCron, time.Time{})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCardsCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CleanupCron, Task: cronTask},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	client := jobs.NewClient(redisOpts)
	if info, err := client.EnqueueCleanup(ctx, jobs.TriggerStartup, time.Now().UTC()); err != nil {
		logger.Warn("enqueue startup cleanup", slog.Any("error", err))
	} else {
		logger.Info("startup cleanup enqueued", slog.String("task_id", info.ID))
	}
	if err := client.Close(); err != nil {
		logger.Warn("asynq client close", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
