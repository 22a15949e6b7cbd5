package credit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Client carries the credit fields the guard reads and writes.
type Client struct {
	ID             int64               `json:"id"`
	Name           string              `json:"nom_client"`
	Email          string              `json:"email,omitempty"`
	SoldeDu        decimal.Decimal     `json:"solde_du"`
	LimiteCreditDH decimal.NullDecimal `json:"limite_credit_dh"`
	CreditBloque   bool                `json:"credit_bloque"`
	CreditFlagged  bool                `json:"credit_flagged"`
	BlockedReason  string              `json:"blocked_reason,omitempty"`
}

// Exposure is a client's position recomputed from its open receivables.
type Exposure struct {
	ClientID          int64           `json:"client_id"`
	ClientName        string          `json:"client_name"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	Overdue           decimal.Decimal `json:"overdue"`
	Limit             decimal.Decimal `json:"limit"`
	StoredSoldeDu     decimal.Decimal `json:"stored_solde_du"`
	OldestOverdueDate *time.Time      `json:"oldest_overdue_date,omitempty"`
	OverLimit         bool            `json:"over_limit"`
	CreditBloque      bool            `json:"credit_bloque"`
}

// ScanResult summarises one CheckPaymentDelays pass.
type ScanResult struct {
	ScannedAt    time.Time  `json:"scanned_at"`
	Scanned      int        `json:"scanned"`
	Flagged      []Exposure `json:"flagged"`
	NewlyFlagged int        `json:"newly_flagged"`
	Cleared      int        `json:"cleared"`
	// Contended is set when another process held the scan lock; flags were
	// reported but not written.
	Contended bool `json:"contended"`
}

// Notice is a generated formal demand (mise en demeure). It is advisory text
// handed to the caller; nothing is delivered.
type Notice struct {
	ClientID          int64           `json:"client_id"`
	ClientName        string          `json:"client_name"`
	Amount            decimal.Decimal `json:"amount"`
	OldestOverdueDate time.Time       `json:"oldest_overdue_date"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Content           string          `json:"content"`
}

// NoticeResult mirrors the success/content shape expected by callers.
type NoticeResult struct {
	Success bool    `json:"success"`
	Content string  `json:"content,omitempty"`
	Notice  *Notice `json:"notice,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}
