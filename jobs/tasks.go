package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/betonops/receivables/internal/collections"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReminderEmail delivers one payment reminder by email.
	TaskReminderEmail = "collections:reminder_email"
	// TaskScheduledReminders sends due reminders across the portfolio.
	TaskScheduledReminders = "collections:scheduled_reminders"
	// TaskCreditCheckDelays runs the credit ceiling scan.
	TaskCreditCheckDelays = "credit:check_delays"
)

// NewReminderEmailTask constructs an Asynq task carrying the reminder.
func NewReminderEmailTask(msg collections.ReminderMessage) (*asynq.Task, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReminderEmail, data, asynq.MaxRetry(5)), nil
}

// NewScheduledRemindersTask constructs the periodic reminder sweep task.
func NewScheduledRemindersTask() *asynq.Task {
	return asynq.NewTask(TaskScheduledReminders, nil)
}

// NewCreditCheckTask constructs the periodic credit scan task.
func NewCreditCheckTask() *asynq.Task {
	return asynq.NewTask(TaskCreditCheckDelays, nil)
}
