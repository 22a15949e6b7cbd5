package cli

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/betonops/receivables/jobs"
)

func TestTaskFor(t *testing.T) {
	task, err := TaskFor("credit-scan")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskCreditCheckDelays, task.Type())

	task, err = TaskFor(jobs.TaskScheduledReminders)
	require.NoError(t, err)
	require.Equal(t, jobs.TaskScheduledReminders, task.Type())

	_, err = TaskFor("anomaly-scan")
	require.Error(t, err)
}

func TestNewJobsCLIRequiresAddress(t *testing.T) {
	_, err := NewJobsCLI(asynq.RedisClientOpt{})
	require.Error(t, err)
}

func TestTriggerEnqueuesCreditScan(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := NewJobsCLI(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	info, err := c.Trigger(context.Background(), "credit-scan")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskCreditCheckDelays, info.Type)
	require.Equal(t, jobs.QueueDefault, info.Queue)
	require.Equal(t, 1, info.MaxRetry)

	pending, err := mr.List("asynq:{" + jobs.QueueDefault + "}:pending")
	require.NoError(t, err)
	require.Equal(t, []string{info.ID}, pending)

	_, err = c.Trigger(context.Background(), "anomaly-scan")
	require.Error(t, err)
}
