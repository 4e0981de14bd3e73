// Package planner translates a task into the set of notification records
// that should exist for it, and tears them down again.
package planner

import (
	"context"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/metrics"
	"github.com/taskhive/go-reminder-service/internal/occurrence"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// Offset tables are product policy, not configuration: escalating urgency
// before a deadline, persistent-but-decaying nagging after it.
var (
	oneOffReminderOffsets = []time.Duration{105 * time.Minute, 30 * time.Minute, 15 * time.Minute, 5 * time.Minute}
	oneOffOverdueOffsets  = []time.Duration{15 * time.Minute, 30 * time.Minute, 60 * time.Minute}

	// Recurring tasks get an exact-time notification too (offset 0,
	// typed reminder).
	recurringReminderOffsets = []time.Duration{60 * time.Minute, 30 * time.Minute, 15 * time.Minute, 10 * time.Minute, 5 * time.Minute, 0}
	recurringOverdueOffsets  = []time.Duration{10 * time.Minute, 30 * time.Minute, 60 * time.Minute, 90 * time.Minute}
)

// RecordStore is the slice of the notification record store the planner needs
type RecordStore interface {
	CreateIfAbsent(ctx context.Context, record *domain.NotificationRecord) (bool, error)
	DeletePendingByTask(ctx context.Context, taskID string) (int64, error)
}

// Planner computes and persists the notification plan for a task
type Planner struct {
	store RecordStore
	loc   *time.Location
	log   *logger.Logger
	now   func() time.Time
}

// NewPlanner creates a new planner. loc is the timezone occurrences are
// computed in; nil means the local zone.
func NewPlanner(store RecordStore, loc *time.Location, log *logger.Logger) *Planner {
	if loc == nil {
		loc = time.Local
	}
	return &Planner{
		store: store,
		loc:   loc,
		log:   log,
		now:   time.Now,
	}
}

// ScheduleForTask creates every reminder and overdue record the task should
// have, skipping offsets whose target instant has already passed and
// records that already exist. It returns the number of records created.
//
// Completed tasks and tasks with neither a due date nor a weekday schedule
// produce nothing.
func (p *Planner) ScheduleForTask(ctx context.Context, task *domain.Task) (int, error) {
	if task.Completed {
		return 0, nil
	}

	now := p.now()
	var occurrences []time.Time
	reminderOffsets := oneOffReminderOffsets
	overdueOffsets := oneOffOverdueOffsets

	if task.IsRecurring() {
		occurrences = occurrence.BoundedOccurrences(task, p.loc, now)
		reminderOffsets = recurringReminderOffsets
		overdueOffsets = recurringOverdueOffsets
	} else if task.DueDate != nil {
		occurrences = []time.Time{*task.DueDate}
	}

	if len(occurrences) == 0 {
		return 0, nil
	}

	created := 0
	for _, occ := range occurrences {
		for _, offset := range reminderOffsets {
			n, err := p.createRecord(ctx, task, occ, occ.Add(-offset), domain.NotificationTypeReminder, now)
			if err != nil {
				return created, err
			}
			created += n
		}
		for _, offset := range overdueOffsets {
			n, err := p.createRecord(ctx, task, occ, occ.Add(offset), domain.NotificationTypeOverdue, now)
			if err != nil {
				return created, err
			}
			created += n
		}
	}

	p.log.Info("Scheduled notifications for task", "task_id", task.ID, "created", created, "occurrences", len(occurrences))
	return created, nil
}

// createRecord persists one record unless its slot is in the past or an
// identical pending record already exists.
func (p *Planner) createRecord(ctx context.Context, task *domain.Task, due, scheduledFor time.Time, notifType domain.NotificationType, now time.Time) (int, error) {
	if !scheduledFor.After(now) {
		return 0, nil
	}

	record := &domain.NotificationRecord{
		TaskID:       task.ID,
		UserID:       task.UserID,
		UserEmail:    task.UserEmail,
		UserName:     task.UserName,
		TaskTitle:    task.Text,
		DueDate:      due,
		Type:         notifType,
		ScheduledFor: scheduledFor,
		Status:       domain.NotificationStatusPending,
	}

	created, err := p.store.CreateIfAbsent(ctx, record)
	if err != nil {
		return 0, err
	}
	if !created {
		return 0, nil
	}

	metrics.RecordsScheduled.WithLabelValues(string(notifType)).Inc()
	return 1, nil
}

// CancelForTask deletes every pending record for a task. Callers must
// invoke it before re-scheduling a task whose due date changed; records
// are never mutated in place.
func (p *Planner) CancelForTask(ctx context.Context, taskID string) (int64, error) {
	deleted, err := p.store.DeletePendingByTask(ctx, taskID)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		p.log.Info("Cancelled pending notifications", "task_id", taskID, "deleted", deleted)
	}
	return deleted, nil
}

// WithClock overrides the planner's time source. Tests only.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}
