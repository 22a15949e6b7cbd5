package aging

import "time"

const day = 24 * time.Hour

// Classification is the output of Classify.
type Classification struct {
	Status      Status
	DaysOverdue int
}

// DaysOverdue returns the whole calendar days elapsed since due, never negative.
// Both instants are reduced to their calendar date first so time of day and
// zone offsets do not move a receivable between buckets.
func DaysOverdue(due, today time.Time) int {
	diff := dateOf(today).Sub(dateOf(due))
	if diff <= 0 {
		return 0
	}
	return int(diff / day)
}

// Classify derives the lifecycle status of a receivable. A terminal flag wins
// over the threshold result unconditionally.
func Classify(due, today time.Time, flag TerminalFlag) Classification {
	days := DaysOverdue(due, today)
	if status, ok := flag.Status(); ok {
		return Classification{Status: status, DaysOverdue: days}
	}
	return Classification{Status: statusForDays(days), DaysOverdue: days}
}

// ClassifyReceivable classifies a single row.
func ClassifyReceivable(r Receivable, today time.Time) ClassifiedReceivable {
	c := Classify(r.DueDate, today, r.Flag)
	return ClassifiedReceivable{Receivable: r, Status: c.Status, DaysOverdue: c.DaysOverdue}
}

// ClassifyAll classifies every row, preserving order.
func ClassifyAll(receivables []Receivable, today time.Time) []ClassifiedReceivable {
	out := make([]ClassifiedReceivable, 0, len(receivables))
	for _, r := range receivables {
		out = append(out, ClassifyReceivable(r, today))
	}
	return out
}

func statusForDays(days int) Status {
	switch {
	case days <= 0:
		return StatusCurrent
	case days <= 7:
		return StatusOverdue7
	case days <= 15:
		return StatusOverdue15
	case days <= 30:
		return StatusOverdue30
	case days <= 60:
		return StatusOverdue60
	default:
		return StatusAtRisk
	}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
