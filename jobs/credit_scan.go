package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/betonops/receivables/internal/collections"
	"github.com/betonops/receivables/internal/credit"
	jobmetrics "github.com/betonops/receivables/internal/jobs"
)

// CreditScanner runs the credit ceiling scan.
type CreditScanner interface {
	CheckPaymentDelays(ctx context.Context) (*credit.ScanResult, error)
}

// CreditScanJob runs the periodic credit scan.
type CreditScanJob struct {
	Scanner CreditScanner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewCreditScanJob initialises the credit scan handler.
func NewCreditScanJob(scanner CreditScanner, logger *slog.Logger, metrics *jobmetrics.Metrics) *CreditScanJob {
	return &CreditScanJob{
		Scanner: scanner,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the scan.
func (j *CreditScanJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Scanner == nil {
		return errors.New("credit scan: handler not configured")
	}
	start := j.now()
	tracker := j.metrics().Track(TaskCreditCheckDelays)
	defer func() {
		err = tracker.End(err)
	}()

	result, err := j.Scanner.CheckPaymentDelays(ctx)
	if err != nil {
		j.logger().Error("credit scan failed", slog.Any("error", err))
		return err
	}
	j.metrics().ObserveScan(*result)
	for _, exp := range result.Flagged {
		j.logger().Warn("client over credit ceiling",
			slog.Int64("client_id", exp.ClientID),
			slog.String("client", exp.ClientName),
			slog.String("outstanding", exp.Outstanding.String()),
			slog.String("limit", exp.Limit.String()),
			slog.Bool("blocked", exp.CreditBloque),
		)
	}
	j.logger().Info("completed credit scan",
		slog.Int("scanned", result.Scanned),
		slog.Int("flagged", len(result.Flagged)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}

func (j *CreditScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCreditCheckDelays))
	}
	return slog.Default().With(slog.String("job", TaskCreditCheckDelays))
}

func (j *CreditScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CreditScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// ReminderRunner sends due reminders across the portfolio.
type ReminderRunner interface {
	RunScheduledReminders(ctx context.Context) (collections.ReminderRun, error)
}

// ScheduledRemindersJob runs the periodic reminder sweep.
type ScheduledRemindersJob struct {
	Runner  ReminderRunner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewScheduledRemindersJob initialises the reminder sweep handler.
func NewScheduledRemindersJob(runner ReminderRunner, logger *slog.Logger, metrics *jobmetrics.Metrics) *ScheduledRemindersJob {
	return &ScheduledRemindersJob{Runner: runner, Logger: logger, Metrics: metrics}
}

// Handle executes the sweep. Individual reminder failures are logged by the
// runner and do not fail the task.
func (j *ScheduledRemindersJob) Handle(ctx context.Context, _ *asynq.Task) (err error) {
	if j == nil || j.Runner == nil {
		return errors.New("scheduled reminders: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("job", TaskScheduledReminders))

	tracker := metrics.Track(TaskScheduledReminders)
	defer func() {
		err = tracker.End(err)
	}()

	run, err := j.Runner.RunScheduledReminders(ctx)
	metrics.AddReminders("skipped", run.Skipped)
	if err != nil {
		logger.Error("scheduled reminders failed", slog.Any("error", err))
		return err
	}
	logger.Info("completed scheduled reminders",
		slog.Int("queued", run.Sent),
		slog.Int("skipped", run.Skipped),
		slog.Int("failed", run.Failed),
	)
	return nil
}
