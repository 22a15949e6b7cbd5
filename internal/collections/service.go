package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/shared"
)

// RepositoryPort defines data access methods for collections.
type RepositoryPort interface {
	GetReceivable(ctx context.Context, id int64) (*aging.Receivable, error)
	ListReceivables(ctx context.Context, req ListReceivablesRequest) ([]aging.Receivable, error)
	ListLogs(ctx context.Context, req ListLogsRequest) ([]CollectionLog, error)
	HasLog(ctx context.Context, receivableID int64, logType LogType) (bool, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the operations that must commit together.
type TxRepository interface {
	// ApplyTransition updates the receivable only while it is open and
	// reports whether a row changed.
	ApplyTransition(ctx context.Context, t Transition) (bool, error)
	AppendLog(ctx context.Context, log CollectionLog) error
	// AppendLogOnce appends the log unless the receivable already carries a
	// system entry of the same type, and reports whether it was written.
	AppendLogOnce(ctx context.Context, log CollectionLog) (bool, error)
}

// errReminderSent marks a scheduled reminder another run already recorded.
var errReminderSent = errors.New("collections: reminder already recorded")

// Notifier hands reminder messages to the delivery channel.
type Notifier interface {
	EnqueueReminder(ctx context.Context, msg ReminderMessage) error
}

// ServiceConfig tunes read-side computations.
type ServiceConfig struct {
	CollectionRateWindow time.Duration
}

// Service orchestrates collection actions and portfolio reads.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
	cfg      ServiceConfig
	clock    func() time.Time
}

// NewService builds Service instance. notifier may be nil, in which case
// reminders are logged but not delivered.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger, cfg ServiceConfig) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Portfolio classifies every receivable and derives the aging views.
func (s *Service) Portfolio(ctx context.Context, req ListReceivablesRequest) (*Portfolio, error) {
	rows, err := s.repo.ListReceivables(ctx, req)
	if err != nil {
		return nil, shared.StoreError("collections: list receivables", err)
	}
	now := s.clock()
	classified := aging.ClassifyAll(rows, now)
	return &Portfolio{
		AsOf:        now,
		Receivables: classified,
		Buckets:     aging.AggregateClassified(classified),
		Stats:       aging.ComputeStatsClassified(classified, now, s.cfg.CollectionRateWindow),
		ByClient:    aging.OverdueByClientClassified(classified),
	}, nil
}

// ListLogs returns collection history, newest first.
func (s *Service) ListLogs(ctx context.Context, req ListLogsRequest) ([]CollectionLog, error) {
	if req.Limit <= 0 || req.Limit > 500 {
		req.Limit = 100
	}
	logs, err := s.repo.ListLogs(ctx, req)
	if err != nil {
		return nil, shared.StoreError("collections: list logs", err)
	}
	return logs, nil
}

// PerformAction executes one collection action against a receivable. The
// receivable change and its log entry commit together or not at all.
func (s *Service) PerformAction(ctx context.Context, caller shared.Caller, req ActionRequest) (*ActionResult, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	if err := checkAction(caller, req); err != nil {
		return nil, err
	}

	rec, err := s.repo.GetReceivable(ctx, req.ReceivableID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, fmt.Errorf("collections: receivable %d: %w", req.ReceivableID, shared.ErrNotFound)
		}
		return nil, shared.StoreError("collections: get receivable", err)
	}

	now := s.clock()
	current := aging.ClassifyReceivable(*rec, now)
	if current.Status.IsTerminal() {
		return nil, shared.Preconditionf("receivable %s is already %s", rec.InvoiceNumber, current.Status)
	}

	var result *ActionResult
	if req.Action == ActionSendReminder {
		result, err = s.sendReminder(ctx, caller, current, req.Notes, now)
	} else {
		result, err = s.transition(ctx, caller, current, req, now)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("collection action performed",
		slog.String("action", string(req.Action)),
		slog.Int64("receivable_id", rec.ID),
		slog.String("performed_by", caller.DisplayName()),
		slog.String("status", result.Receivable.Status.String()),
	)
	return result, nil
}

// RunScheduledReminders sends one reminder per bracket to every overdue open
// receivable with an email on file, acting as the system caller.
func (s *Service) RunScheduledReminders(ctx context.Context) (ReminderRun, error) {
	var run ReminderRun
	rows, err := s.repo.ListReceivables(ctx, ListReceivablesRequest{OpenOnly: true})
	if err != nil {
		return run, shared.StoreError("collections: list receivables", err)
	}
	now := s.clock()
	system := shared.SystemCaller()
	for _, row := range aging.ClassifyAll(rows, now) {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		template, overdue := ReminderFor(row.DaysOverdue)
		if row.Status.IsTerminal() || !overdue || row.ClientEmail == "" {
			run.Skipped++
			continue
		}
		sent, err := s.repo.HasLog(ctx, row.ID, template)
		if err != nil {
			return run, shared.StoreError("collections: check reminder log", err)
		}
		if sent {
			run.Skipped++
			continue
		}
		if _, err := s.sendReminder(ctx, system, row, "", now); err != nil {
			if errors.Is(err, errReminderSent) {
				run.Skipped++
				continue
			}
			run.Failed++
			s.logger.Warn("scheduled reminder failed",
				slog.Int64("receivable_id", row.ID),
				slog.Any("error", err),
			)
			continue
		}
		run.Sent++
	}
	return run, nil
}

func checkAction(caller shared.Caller, req ActionRequest) error {
	switch req.Action {
	case ActionMarkPaid, ActionSendReminder:
	case ActionMarkDisputed:
		if req.Notes == "" {
			return shared.Validationf("a reason is required to mark a receivable as disputed")
		}
	case ActionWriteOff:
		if !caller.Has(shared.CapWriteOff) {
			return shared.Unauthorizedf("write-off requires CEO authorization")
		}
		if req.Notes == "" {
			return shared.Validationf("a reason is required to write off a receivable")
		}
	default:
		return shared.Validationf("unknown action %q", req.Action)
	}
	if req.ReceivableID <= 0 {
		return shared.Validationf("receivable ID required")
	}
	return nil
}

func (s *Service) transition(ctx context.Context, caller shared.Caller, current aging.ClassifiedReceivable, req ActionRequest, now time.Time) (*ActionResult, error) {
	t := Transition{ReceivableID: current.ID, At: now}
	var logType LogType
	switch req.Action {
	case ActionMarkPaid:
		t.To, t.ZeroAmount, logType = aging.FlagPaid, true, LogPaymentRecorded
	case ActionMarkDisputed:
		t.To, logType = aging.FlagDisputed, LogDisputed
	case ActionWriteOff:
		t.To, t.ZeroAmount, logType = aging.FlagWrittenOff, true, LogWrittenOff
	}

	entry := newLog(caller, current.ClientID, &current.ID, logType, req.Notes, now)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		changed, err := tx.ApplyTransition(ctx, t)
		if err != nil {
			return shared.StoreError("collections: apply transition", err)
		}
		if !changed {
			return shared.Preconditionf("receivable %s is no longer open", current.InvoiceNumber)
		}
		if err := tx.AppendLog(ctx, entry); err != nil {
			return shared.StoreError("collections: append log", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated := current.Receivable
	updated.Flag = t.To
	if t.ZeroAmount {
		updated.AmountDue = decimal.Zero
	}
	if t.To == aging.FlagPaid {
		paidAt := now
		updated.PaidAt = &paidAt
	}
	return &ActionResult{Receivable: aging.ClassifyReceivable(updated, now), Log: entry}, nil
}

func (s *Service) sendReminder(ctx context.Context, caller shared.Caller, current aging.ClassifiedReceivable, notes string, now time.Time) (*ActionResult, error) {
	if strings.TrimSpace(current.ClientEmail) == "" {
		return nil, shared.Preconditionf("client %s has no email on file", current.ClientName)
	}
	template, overdue := ReminderFor(current.DaysOverdue)
	if !overdue {
		return nil, shared.Preconditionf("receivable %s is not overdue", current.InvoiceNumber)
	}

	entry := newLog(caller, current.ClientID, &current.ID, template, notes, now)
	msg := ReminderMessage{
		ReceivableID:  current.ID,
		To:            current.ClientEmail,
		ClientName:    current.ClientName,
		InvoiceNumber: current.InvoiceNumber,
		AmountDue:     current.AmountDue,
		DueDate:       current.DueDate,
		DaysOverdue:   current.DaysOverdue,
		Template:      template,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if caller.IsSystem() {
			written, err := tx.AppendLogOnce(ctx, entry)
			if err != nil {
				return shared.StoreError("collections: append log", err)
			}
			if !written {
				return errReminderSent
			}
		} else if err := tx.AppendLog(ctx, entry); err != nil {
			return shared.StoreError("collections: append log", err)
		}
		if s.notifier == nil {
			return nil
		}
		if err := s.notifier.EnqueueReminder(ctx, msg); err != nil {
			return shared.StoreError("collections: enqueue reminder", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ActionResult{Receivable: current, Log: entry}, nil
}

func newLog(caller shared.Caller, clientID int64, receivableID *int64, logType LogType, notes string, at time.Time) CollectionLog {
	return CollectionLog{
		ID:              uuid.New(),
		ReceivableID:    receivableID,
		ClientID:        clientID,
		ActionType:      logType,
		ActionDate:      at,
		PerformedByName: caller.DisplayName(),
		Notes:           notes,
	}
}

// NewClientLog builds a client-level log entry for credit actions.
func NewClientLog(caller shared.Caller, clientID int64, logType LogType, notes string, at time.Time) CollectionLog {
	return newLog(caller, clientID, nil, logType, notes, at)
}
