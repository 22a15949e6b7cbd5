package perf

import (
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betonops/receivables/internal/aging"
	"github.com/betonops/receivables/internal/credit"
)

var benchToday = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

// syntheticPortfolio spreads n receivables over clients and every aging
// bracket, with one row in ten already terminal.
func syntheticPortfolio(n, clients int) []aging.Receivable {
	rows := make([]aging.Receivable, 0, n)
	for i := 0; i < n; i++ {
		r := aging.Receivable{
			ID:        int64(i + 1),
			ClientID:  int64(i%clients + 1),
			AmountDue: decimal.NewFromInt(int64(1000 + (i%50)*250)),
			DueDate:   benchToday.AddDate(0, 0, 30-(i%120)),
			IssuedAt:  benchToday.AddDate(0, 0, -(i % 150)),
		}
		if i%10 == 0 {
			r.Flag = aging.FlagPaid
			paid := benchToday.AddDate(0, 0, -(i % 20))
			r.PaidAt = &paid
		}
		rows = append(rows, r)
	}
	return rows
}

func BenchmarkClassifyAll(b *testing.B) {
	rows := syntheticPortfolio(10000, 200)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = aging.ClassifyAll(rows, benchToday)
	}
}

func BenchmarkPortfolioAggregates(b *testing.B) {
	classified := aging.ClassifyAll(syntheticPortfolio(10000, 200), benchToday)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = aging.AggregateClassified(classified)
		_ = aging.ComputeStatsClassified(classified, benchToday, 90*24*time.Hour)
		_ = aging.OverdueByClientClassified(classified)
	}
}

func BenchmarkComputeExposure(b *testing.B) {
	rows := syntheticPortfolio(10000, 200)
	clients := make([]credit.Client, 200)
	for i := range clients {
		clients[i] = credit.Client{ID: int64(i + 1)}
	}
	byClient := make(map[int64][]aging.Receivable, len(clients))
	for _, r := range rows {
		byClient[r.ClientID] = append(byClient[r.ClientID], r)
	}
	policy := credit.Policy{DefaultLimit: decimal.NewFromInt(50000)}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, c := range clients {
			_ = credit.ComputeExposure(c, byClient[c.ID], benchToday, policy)
		}
	}
}

func TestPortfolioLatencyBudget(t *testing.T) {
	rows := syntheticPortfolio(10000, 200)
	samples := make([]time.Duration, 0, 20)
	for i := 0; i < 20; i++ {
		start := time.Now()
		classified := aging.ClassifyAll(rows, benchToday)
		_ = aging.AggregateClassified(classified)
		_ = aging.ComputeStatsClassified(classified, benchToday, 90*24*time.Hour)
		_ = aging.OverdueByClientClassified(classified)
		samples = append(samples, time.Since(start))
	}
	if p95 := percentile95(samples); p95 > 500*time.Millisecond {
		t.Fatalf("portfolio read regression: p95=%s threshold=500ms", p95)
	}
}

func percentile95(samples []time.Duration) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	index := int(float64(len(sorted)-1) * 0.95)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
