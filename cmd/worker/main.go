package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/betonops/receivables/internal/app"
	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/credit"
	jobmetrics "github.com/betonops/receivables/internal/jobs"
	"github.com/betonops/receivables/internal/platform/cache"
	"github.com/betonops/receivables/internal/platform/db"
	"github.com/betonops/receivables/jobs"
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

	pool, err := db.New(ctx, db.PoolConfig{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns, Timeout: cfg.PGTimeout})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	redisOpts := cfg.QueueRedis()
	queue, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init queue client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)

	collectionsService := collections.NewService(collections.NewRepository(pool), queue, logger, collections.ServiceConfig{
		CollectionRateWindow: cfg.CollectionRateWindow,
	})
	guard := credit.NewGuard(credit.NewRepository(pool), cache.NewLocker(redisClient), logger, credit.Config{
		DefaultLimit: cfg.CreditDefaultLimit,
		LockTTL:      cfg.CreditScanLockTTL,
	})

	var mailer jobs.Mailer = jobs.LogMailer{Logger: logger}
	if cfg.SMTPEnabled() {
		mailer = jobs.NewSMTPMailer(jobs.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	reminderJob := jobs.NewReminderEmailJob(mailer, logger, metrics)
	creditJob := jobs.NewCreditScanJob(guard, logger, metrics)
	sweepJob := jobs.NewScheduledRemindersJob(collectionsService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskReminderEmail, Handler: reminderJob.Handle},
			{Type: jobs.TaskCreditCheckDelays, Handler: creditJob.Handle},
			{Type: jobs.TaskScheduledReminders, Handler: sweepJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CreditScanCron, Task: jobs.NewCreditCheckTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.ReminderSweepCron, Task: jobs.NewScheduledRemindersTask(), Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started",
		slog.String("credit_scan_cron", cfg.CreditScanCron),
		slog.String("reminder_sweep_cron", cfg.ReminderSweepCron),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
