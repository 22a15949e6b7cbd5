package aging

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func portfolio() []Receivable {
	return []Receivable{
		{ID: 1, ClientID: 10, ClientName: "Atlas BTP", AmountDue: amount("1000"), DueDate: today.AddDate(0, 0, 5), IssuedAt: daysAgo(25)},
		{ID: 2, ClientID: 10, ClientName: "Atlas BTP", AmountDue: amount("2000"), DueDate: daysAgo(3), IssuedAt: daysAgo(33)},
		{ID: 3, ClientID: 20, ClientName: "Sahara Construction", AmountDue: amount("3000"), DueDate: daysAgo(12), IssuedAt: daysAgo(42)},
		{ID: 4, ClientID: 20, ClientName: "Sahara Construction", AmountDue: amount("4000"), DueDate: daysAgo(75), IssuedAt: daysAgo(80)},
		{ID: 5, ClientID: 30, ClientName: "Rif Beton", AmountDue: amount("0"), DueDate: daysAgo(40), IssuedAt: daysAgo(70), Flag: FlagPaid},
		{ID: 6, ClientID: 30, ClientName: "Rif Beton", AmountDue: amount("900"), DueDate: daysAgo(20), IssuedAt: daysAgo(50), Flag: FlagDisputed},
	}
}

func TestAggregateOrderAndConservation(t *testing.T) {
	buckets := Aggregate(portfolio(), today)
	require.Len(t, buckets, 6)
	require.Equal(t, ActiveStatuses(), []Status{
		buckets[0].Status, buckets[1].Status, buckets[2].Status,
		buckets[3].Status, buckets[4].Status, buckets[5].Status,
	})

	sum := decimal.Zero
	pct := decimal.Zero
	for _, b := range buckets {
		sum = sum.Add(b.TotalAmount)
		pct = pct.Add(b.Percentage)
	}
	stats := ComputeStats(portfolio(), today, 0)
	require.True(t, sum.Equal(stats.TotalOutstanding), "sum=%s outstanding=%s", sum, stats.TotalOutstanding)
	require.True(t, sum.Equal(amount("10000")))
	require.InDelta(t, 100.0, pct.InexactFloat64(), 0.05)

	require.True(t, buckets[0].TotalAmount.Equal(amount("1000")))
	require.True(t, buckets[1].TotalAmount.Equal(amount("2000")))
	require.True(t, buckets[2].TotalAmount.Equal(amount("3000")))
	require.True(t, buckets[5].TotalAmount.Equal(amount("4000")))
	require.Equal(t, 1, buckets[5].InvoiceCount)
	require.True(t, buckets[5].Percentage.Equal(amount("40")))
}

func TestAggregateEmptyPortfolio(t *testing.T) {
	buckets := Aggregate(nil, today)
	require.Len(t, buckets, 6)
	for _, b := range buckets {
		require.True(t, b.TotalAmount.IsZero())
		require.True(t, b.Percentage.IsZero())
		require.Zero(t, b.InvoiceCount)
	}
}

func TestComputeStatsColdStart(t *testing.T) {
	stats := ComputeStats([]Receivable{}, today, 90*24*time.Hour)
	require.True(t, stats.TotalOutstanding.IsZero())
	require.True(t, stats.CollectionRate.IsZero())
	require.True(t, stats.DSOAverage.IsZero())
	require.Zero(t, stats.ClientsWithOverdue)
}

func TestComputeStatsPortfolio(t *testing.T) {
	stats := ComputeStats(portfolio(), today, 0)
	require.True(t, stats.TotalOutstanding.Equal(amount("10000")))
	require.True(t, stats.TotalOverdue.Equal(amount("9000")))
	require.True(t, stats.AtRiskAmount.Equal(amount("4000")))
	require.Equal(t, 2, stats.ClientsWithOverdue)
	require.Equal(t, 1, stats.PaidCount)
	require.Equal(t, 4, stats.ActiveCount)
	require.True(t, stats.CollectionRate.Equal(amount("20")))

	// (1000*0 + 2000*3 + 3000*12 + 4000*75 + 900*20) / 10900
	require.True(t, stats.DSOAverage.Equal(amount("33.03")), "dso=%s", stats.DSOAverage)
}

func TestComputeStatsWindowLimitsRateAndDSO(t *testing.T) {
	stats := ComputeStats(portfolio(), today, 45*24*time.Hour)
	require.Equal(t, 0, stats.PaidCount)
	require.Equal(t, 3, stats.ActiveCount)
	require.True(t, stats.CollectionRate.IsZero())
	require.True(t, stats.TotalOutstanding.Equal(amount("10000")))
}

func TestOverdueByClientSortedWithStableTies(t *testing.T) {
	rows := append(portfolio(),
		Receivable{ID: 7, ClientID: 40, ClientName: "Agadir Matériaux", AmountDue: amount("7000"), DueDate: daysAgo(2)},
		Receivable{ID: 8, ClientID: 41, ClientName: "Agadir Matériaux", AmountDue: amount("7000"), DueDate: daysAgo(9)},
	)
	groups := OverdueByClient(rows, today)
	require.Len(t, groups, 4)
	require.Equal(t, int64(40), groups[0].ClientID)
	require.Equal(t, "Agadir Matériaux", groups[0].ClientName)
	require.Equal(t, int64(41), groups[1].ClientID)
	require.Equal(t, int64(20), groups[2].ClientID)
	require.True(t, groups[2].Total.Equal(amount("7000")))
	require.Equal(t, 75, groups[2].MaxDaysOverdue)
	require.Equal(t, 2, groups[2].InvoiceCount)
	require.Equal(t, int64(10), groups[3].ClientID)

	again := OverdueByClient(rows, today)
	require.Equal(t, groups, again)
}
