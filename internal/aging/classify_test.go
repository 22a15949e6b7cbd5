package aging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func daysAgo(n int) time.Time {
	return today.AddDate(0, 0, -n)
}

func TestClassifyThresholdBoundaries(t *testing.T) {
	cases := []struct {
		days int
		want Status
	}{
		{0, StatusCurrent},
		{1, StatusOverdue7},
		{7, StatusOverdue7},
		{8, StatusOverdue15},
		{15, StatusOverdue15},
		{16, StatusOverdue30},
		{30, StatusOverdue30},
		{31, StatusOverdue60},
		{60, StatusOverdue60},
		{61, StatusAtRisk},
		{400, StatusAtRisk},
	}
	for _, tc := range cases {
		got := Classify(daysAgo(tc.days), today, FlagOpen)
		require.Equal(t, tc.want, got.Status, "days=%d", tc.days)
		require.Equal(t, tc.days, got.DaysOverdue)
	}
}

func TestClassifyFutureDueDateIsCurrent(t *testing.T) {
	got := Classify(today.AddDate(0, 0, 12), today, FlagOpen)
	require.Equal(t, StatusCurrent, got.Status)
	require.Zero(t, got.DaysOverdue)
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	due := time.Date(2026, 3, 14, 23, 59, 0, 0, time.UTC)
	morning := time.Date(2026, 3, 15, 0, 1, 0, 0, time.UTC)
	require.Equal(t, 1, Classify(due, morning, FlagOpen).DaysOverdue)

	sameDay := time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	require.Equal(t, 0, Classify(morning, sameDay, FlagOpen).DaysOverdue)
}

func TestClassifyTerminalFlagOverrides(t *testing.T) {
	for flag, want := range map[TerminalFlag]Status{
		FlagPaid:       StatusPaid,
		FlagDisputed:   StatusDisputed,
		FlagWrittenOff: StatusWrittenOff,
	} {
		got := Classify(daysAgo(90), today, flag)
		require.Equal(t, want, got.Status)
		require.Equal(t, 90, got.DaysOverdue)
		require.True(t, got.Status.IsTerminal())
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for n := -5; n < 120; n++ {
		due := daysAgo(n)
		first := Classify(due, today, FlagOpen)
		second := Classify(due, today, FlagOpen)
		require.Equal(t, first, second)
	}
}

func TestClassifyTenDaysOverdue(t *testing.T) {
	r := Receivable{ID: 1, AmountDue: amount("5000"), DueDate: daysAgo(10)}
	got := ClassifyReceivable(r, today)
	require.Equal(t, StatusOverdue15, got.Status)
	require.Equal(t, 10, got.DaysOverdue)
}

func TestStatusText(t *testing.T) {
	raw, err := json.Marshal(StatusOverdue30)
	require.NoError(t, err)
	require.Equal(t, `"overdue_30"`, string(raw))

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"at_risk"`), &s))
	require.Equal(t, StatusAtRisk, s)

	require.Error(t, json.Unmarshal([]byte(`"late"`), &s))
	_, err = Status(0).MarshalText()
	require.Error(t, err)
}

func TestParseTerminalFlag(t *testing.T) {
	f, err := ParseTerminalFlag("written_off")
	require.NoError(t, err)
	require.Equal(t, FlagWrittenOff, f)

	_, err = ParseTerminalFlag("cancelled")
	require.Error(t, err)
}
