package tasks

import (
	"time"

	"school_payments/internal/models"
)

// BuildScheduledTask builds a reconciliation task record. schoolID may be
// empty to scope the run to all schools; recurringInterval, when set, is an
// RRULE string and makes the task recurring.
func BuildScheduledTask(taskName, schoolID string, due time.Time, recurringInterval *string, maxAttempt int) *models.ScheduledTask {
	taskType := models.ScheduledTaskTypeOneTime
	if recurringInterval != nil && *recurringInterval != "" {
		taskType = models.ScheduledTaskTypeRecurring
	}

	return &models.ScheduledTask{
		TaskName:          taskName,
		Arguments:         map[string]interface{}{"school_id": schoolID},
		Due:               due,
		RecurringInterval: recurringInterval,
		Status:            models.ScheduledTaskStatusActive,
		TaskType:          taskType,
		MaxAttempt:        maxAttempt,
	}
}
