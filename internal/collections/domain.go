package collections

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/betonops/receivables/internal/aging"
)

// Action enumerates the collection actions a caller may request.
type Action string

const (
	ActionMarkPaid     Action = "mark_paid"
	ActionSendReminder Action = "send_reminder"
	ActionMarkDisputed Action = "mark_disputed"
	ActionWriteOff     Action = "write_off"
)

// LogType enumerates collection log action types.
type LogType string

const (
	LogPaymentRecorded LogType = "payment_recorded"
	LogReminder7d      LogType = "reminder_7d"
	LogReminder15d     LogType = "reminder_15d"
	LogReminder30d     LogType = "reminder_30d"
	LogDisputed        LogType = "disputed"
	LogWrittenOff      LogType = "written_off"
	LogCreditFlagged   LogType = "credit_flagged"
	LogCreditBlocked   LogType = "credit_blocked"
	LogCreditUnblocked LogType = "credit_unblocked"
)

// CollectionLog is one append-only audit entry. Receivable actions set
// ReceivableID; client-level actions set ClientID only.
type CollectionLog struct {
	ID              uuid.UUID `json:"id"`
	ReceivableID    *int64    `json:"receivable_id,omitempty"`
	ClientID        int64     `json:"client_id"`
	ActionType      LogType   `json:"action_type"`
	ActionDate      time.Time `json:"action_date"`
	PerformedByName string    `json:"performed_by_name"`
	Notes           string    `json:"notes,omitempty"`
}

// ActionRequest asks the orchestrator to act on one receivable.
type ActionRequest struct {
	ReceivableID int64
	Action       Action
	Notes        string
}

// ActionResult reports the receivable as reclassified after the action.
type ActionResult struct {
	Receivable aging.ClassifiedReceivable `json:"receivable"`
	Log        CollectionLog              `json:"log"`
}

// Transition is a conditional state change applied to an open receivable.
type Transition struct {
	ReceivableID int64
	To           aging.TerminalFlag
	ZeroAmount   bool
	At           time.Time
}

// ListReceivablesRequest filters receivable reads.
type ListReceivablesRequest struct {
	ClientID int64
	OpenOnly bool
}

// ListLogsRequest filters collection log reads.
type ListLogsRequest struct {
	ReceivableID int64
	ClientID     int64
	Limit        int
}

// Portfolio is the read model served to dashboards.
type Portfolio struct {
	AsOf        time.Time                    `json:"as_of"`
	Receivables []aging.ClassifiedReceivable `json:"receivables"`
	Buckets     []aging.Bucket               `json:"buckets"`
	Stats       aging.Stats                  `json:"stats"`
	ByClient    []aging.ClientOverdue        `json:"by_client"`
}

// ReminderMessage is handed to the notifier for delivery.
type ReminderMessage struct {
	ReceivableID  int64           `json:"receivable_id"`
	To            string          `json:"to"`
	ClientName    string          `json:"client_name"`
	InvoiceNumber string          `json:"invoice_number"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	DueDate       time.Time       `json:"due_date"`
	DaysOverdue   int             `json:"days_overdue"`
	Template      LogType         `json:"template"`
}

// ReminderRun summarises one pass of scheduled reminders.
type ReminderRun struct {
	Sent    int
	Skipped int
	Failed  int
}
