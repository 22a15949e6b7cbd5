package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"gopkg.in/gomail.v2"

	"github.com/betonops/receivables/internal/collections"
	jobmetrics "github.com/betonops/receivables/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Mailer delivers one plain text email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPConfig holds the outgoing mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer constructs a mailer for the given relay.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

// Send delivers the message. The dial is not cancellable; ctx is checked
// before connecting.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogMailer only logs messages; used when no SMTP relay is configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs the message envelope.
func (m LogMailer) Send(ctx context.Context, to, subject, body string) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reminder email (smtp disabled)", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// ReminderEmailJob renders and delivers queued reminders.
type ReminderEmailJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReminderEmailJob initialises the reminder delivery handler.
func NewReminderEmailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReminderEmailJob {
	return &ReminderEmailJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle delivers one reminder. Malformed payloads are not retried.
func (j *ReminderEmailJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("reminder email: handler not configured")
	}
	var msg collections.ReminderMessage
	if err := json.Unmarshal(t.Payload(), &msg); err != nil {
		return fmt.Errorf("reminder email: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if msg.To == "" {
		return fmt.Errorf("reminder email: receivable %d has no recipient: %w", msg.ReceivableID, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskReminderEmail)
	defer func() {
		err = tracker.End(err)
		if err != nil {
			j.metrics().AddReminders("failed", 1)
		} else {
			j.metrics().AddReminders("sent", 1)
		}
	}()

	logger := j.logger().With(
		slog.Int64("receivable_id", msg.ReceivableID),
		slog.String("template", string(msg.Template)),
	)
	if err := j.Mailer.Send(ctx, msg.To, msg.Subject(), msg.Body()); err != nil {
		logger.Error("reminder delivery failed", slog.Any("error", err))
		return err
	}
	logger.Info("reminder delivered")
	return nil
}

func (j *ReminderEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskReminderEmail))
	}
	return slog.Default().With(slog.String("job", TaskReminderEmail))
}

func (j *ReminderEmailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
