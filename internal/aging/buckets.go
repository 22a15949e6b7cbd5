package aging

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Aggregate groups active receivables into the fixed aging buckets. All six
// buckets are returned in ascending risk order, zero valued when empty.
func Aggregate(receivables []Receivable, today time.Time) []Bucket {
	return AggregateClassified(ClassifyAll(receivables, today))
}

// AggregateClassified is Aggregate for rows already classified in this read.
func AggregateClassified(rows []ClassifiedReceivable) []Bucket {
	order := ActiveStatuses()
	index := make(map[Status]int, len(order))
	buckets := make([]Bucket, len(order))
	for i, s := range order {
		index[s] = i
		buckets[i] = Bucket{Status: s, TotalAmount: decimal.Zero, Percentage: decimal.Zero}
	}

	total := decimal.Zero
	for _, row := range rows {
		i, ok := index[row.Status]
		if !ok {
			continue
		}
		buckets[i].TotalAmount = buckets[i].TotalAmount.Add(row.AmountDue)
		buckets[i].InvoiceCount++
		total = total.Add(row.AmountDue)
	}

	if total.IsZero() {
		return buckets
	}
	for i := range buckets {
		buckets[i].Percentage = buckets[i].TotalAmount.Mul(hundred).Div(total).Round(2)
	}
	return buckets
}
