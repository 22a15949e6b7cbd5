package aging

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receivable is one delivery note or invoice awaiting payment, as read from
// the invoice store. Status and days overdue are not stored; see Classify.
type Receivable struct {
	ID            int64           `json:"id"`
	ClientID      int64           `json:"client_id"`
	ClientName    string          `json:"client_name"`
	ClientEmail   string          `json:"client_email,omitempty"`
	InvoiceNumber string          `json:"invoice_number"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	DueDate       time.Time       `json:"due_date"`
	IssuedAt      time.Time       `json:"issued_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	Flag          TerminalFlag    `json:"-"`
}

// ClassifiedReceivable carries the derived fields computed for one read.
type ClassifiedReceivable struct {
	Receivable
	Status      Status `json:"status"`
	DaysOverdue int    `json:"days_overdue"`
}

// Bucket summarises the active receivables falling into one status.
type Bucket struct {
	Status       Status          `json:"bucket_label"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	InvoiceCount int             `json:"invoice_count"`
	Percentage   decimal.Decimal `json:"percentage_of_portfolio"`
}

// Stats holds portfolio level risk metrics.
type Stats struct {
	TotalOutstanding   decimal.Decimal `json:"total_outstanding"`
	TotalOverdue       decimal.Decimal `json:"total_overdue"`
	AtRiskAmount       decimal.Decimal `json:"at_risk_amount"`
	CollectionRate     decimal.Decimal `json:"collection_rate"`
	DSOAverage         decimal.Decimal `json:"dso_average"`
	ClientsWithOverdue int             `json:"clients_with_overdue"`
	PaidCount          int             `json:"paid_count"`
	ActiveCount        int             `json:"active_count"`
}

// ClientOverdue groups overdue exposure for a single client.
type ClientOverdue struct {
	ClientID       int64           `json:"client_id"`
	ClientName     string          `json:"client_name"`
	Total          decimal.Decimal `json:"total"`
	InvoiceCount   int             `json:"invoice_count"`
	MaxDaysOverdue int             `json:"max_days_overdue"`
}
