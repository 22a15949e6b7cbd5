package credit

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/betonops/receivables/internal/aging"
)

// Policy holds the credit ceiling rules.
type Policy struct {
	// DefaultLimit applies when a client has no limite_credit_dh.
	DefaultLimit decimal.Decimal
}

// LimitFor resolves the effective ceiling for a client.
func (p Policy) LimitFor(c Client) decimal.Decimal {
	if c.LimiteCreditDH.Valid {
		return c.LimiteCreditDH.Decimal
	}
	return p.DefaultLimit
}

// ComputeExposure recomputes a client's outstanding and overdue balances from
// its receivables. Terminal receivables are ignored.
func ComputeExposure(c Client, receivables []aging.Receivable, today time.Time, policy Policy) Exposure {
	exp := Exposure{
		ClientID:      c.ID,
		ClientName:    c.Name,
		Outstanding:   decimal.Zero,
		Overdue:       decimal.Zero,
		Limit:         policy.LimitFor(c),
		StoredSoldeDu: c.SoldeDu,
		CreditBloque:  c.CreditBloque,
	}
	for _, row := range aging.ClassifyAll(receivables, today) {
		if row.ClientID != c.ID || row.Status.IsTerminal() {
			continue
		}
		exp.Outstanding = exp.Outstanding.Add(row.AmountDue)
		if row.DaysOverdue <= 0 {
			continue
		}
		exp.Overdue = exp.Overdue.Add(row.AmountDue)
		if exp.OldestOverdueDate == nil || row.DueDate.Before(*exp.OldestOverdueDate) {
			due := row.DueDate
			exp.OldestOverdueDate = &due
		}
	}
	exp.OverLimit = exp.Outstanding.GreaterThan(exp.Limit)
	return exp
}
