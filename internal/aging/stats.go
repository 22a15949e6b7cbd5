package aging

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ComputeStats derives portfolio metrics from the receivables visible at today.
// window bounds the collection rate and DSO to receivables issued within it;
// zero means all time. Empty input yields zero values, never an error.
func ComputeStats(receivables []Receivable, today time.Time, window time.Duration) Stats {
	return ComputeStatsClassified(ClassifyAll(receivables, today), today, window)
}

// ComputeStatsClassified is ComputeStats for rows already classified.
func ComputeStatsClassified(rows []ClassifiedReceivable, today time.Time, window time.Duration) Stats {
	stats := Stats{
		TotalOutstanding: decimal.Zero,
		TotalOverdue:     decimal.Zero,
		AtRiskAmount:     decimal.Zero,
		CollectionRate:   decimal.Zero,
		DSOAverage:       decimal.Zero,
	}

	overdueClients := make(map[int64]struct{})
	weighted := decimal.Zero
	weights := decimal.Zero
	for _, row := range rows {
		active := !row.Status.IsTerminal()
		if active {
			stats.TotalOutstanding = stats.TotalOutstanding.Add(row.AmountDue)
			if row.DaysOverdue > 0 {
				stats.TotalOverdue = stats.TotalOverdue.Add(row.AmountDue)
				overdueClients[row.ClientID] = struct{}{}
			}
			if row.Status == StatusAtRisk {
				stats.AtRiskAmount = stats.AtRiskAmount.Add(row.AmountDue)
			}
		}

		if !inWindow(row.Receivable, today, window) {
			continue
		}
		switch {
		case row.Status == StatusPaid:
			stats.PaidCount++
		case active:
			stats.ActiveCount++
		}
		if row.AmountDue.IsPositive() {
			weighted = weighted.Add(row.AmountDue.Mul(decimal.NewFromInt(int64(row.DaysOverdue))))
			weights = weights.Add(row.AmountDue)
		}
	}

	stats.ClientsWithOverdue = len(overdueClients)
	if seen := stats.PaidCount + stats.ActiveCount; seen > 0 {
		stats.CollectionRate = decimal.NewFromInt(int64(stats.PaidCount)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(seen))).
			Round(2)
	}
	if weights.IsPositive() {
		stats.DSOAverage = weighted.Div(weights).Round(2)
	}
	return stats
}

// OverdueByClient groups overdue active receivables per client, largest
// exposure first. Ties are broken by client name, then client ID.
func OverdueByClient(receivables []Receivable, today time.Time) []ClientOverdue {
	return OverdueByClientClassified(ClassifyAll(receivables, today))
}

// OverdueByClientClassified is OverdueByClient for rows already classified.
func OverdueByClientClassified(rows []ClassifiedReceivable) []ClientOverdue {
	groups := make(map[int64]*ClientOverdue)
	for _, row := range rows {
		if row.Status.IsTerminal() || row.DaysOverdue <= 0 {
			continue
		}
		g, ok := groups[row.ClientID]
		if !ok {
			g = &ClientOverdue{ClientID: row.ClientID, ClientName: row.ClientName, Total: decimal.Zero}
			groups[row.ClientID] = g
		}
		g.Total = g.Total.Add(row.AmountDue)
		g.InvoiceCount++
		if row.DaysOverdue > g.MaxDaysOverdue {
			g.MaxDaysOverdue = row.DaysOverdue
		}
	}

	out := make([]ClientOverdue, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if cmp := out[i].Total.Cmp(out[j].Total); cmp != 0 {
			return cmp > 0
		}
		if out[i].ClientName != out[j].ClientName {
			return out[i].ClientName < out[j].ClientName
		}
		return out[i].ClientID < out[j].ClientID
	})
	return out
}

func inWindow(r Receivable, today time.Time, window time.Duration) bool {
	if window <= 0 {
		return true
	}
	issued := r.IssuedAt
	if issued.IsZero() {
		issued = r.DueDate
	}
	return !dateOf(issued).Before(dateOf(today).Add(-window))
}
