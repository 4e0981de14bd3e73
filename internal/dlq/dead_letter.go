// Package dlq holds notifications that exhausted their delivery attempts,
// so a persistently failing recipient cannot grow a silent pending backlog.
package dlq

import (
	"context"
	"fmt"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/repository"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

// Requeuer re-creates a pending record for a retried notification
type Requeuer interface {
	CreateIfAbsent(ctx context.Context, record *domain.NotificationRecord) (bool, error)
}

// DeadLetterQueue manages failed notifications
type DeadLetterQueue struct {
	repo *repository.FailedRecordRepository
	log  *logger.Logger
}

// NewDeadLetterQueue creates a new dead letter queue
func NewDeadLetterQueue(repo *repository.FailedRecordRepository, log *logger.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{repo: repo, log: log}
}

// Add moves a notification record into the dead letter collection
func (dlq *DeadLetterQueue) Add(ctx context.Context, record *domain.NotificationRecord, cause string) error {
	dlq.log.Warn("Dead lettering notification", "task_id", record.TaskID, "type", record.Type, "attempts", record.Attempts+1, "cause", cause)

	failed := &domain.FailedNotification{
		OriginalID: record.ID,
		TaskID:     record.TaskID,
		UserEmail:  record.UserEmail,
		UserName:   record.UserName,
		TaskTitle:  record.TaskTitle,
		DueDate:    record.DueDate,
		Type:       record.Type,
		Error:      cause,
		Attempts:   record.Attempts + 1,
		FailedAt:   time.Now(),
	}

	return dlq.repo.Create(ctx, failed)
}

// GetAll retrieves failed notifications with pagination
func (dlq *DeadLetterQueue) GetAll(ctx context.Context, page, pageSize int) ([]*domain.FailedNotification, int64, error) {
	return dlq.repo.FindAll(ctx, page, pageSize)
}

// Retry re-queues a failed notification as a pending record due
// immediately, then removes it from the dead letter collection.
func (dlq *DeadLetterQueue) Retry(ctx context.Context, id string, store Requeuer) error {
	failed, err := dlq.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find dead lettered notification: %w", err)
	}

	record := &domain.NotificationRecord{
		TaskID:       failed.TaskID,
		UserEmail:    failed.UserEmail,
		UserName:     failed.UserName,
		TaskTitle:    failed.TaskTitle,
		DueDate:      failed.DueDate,
		Type:         failed.Type,
		ScheduledFor: time.Now(),
		Status:       domain.NotificationStatusPending,
	}

	created, err := store.CreateIfAbsent(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to requeue notification: %w", err)
	}
	if !created {
		dlq.log.Warn("Identical pending record already exists, not requeuing", "task_id", failed.TaskID)
	}

	dlq.log.Info("Requeued dead lettered notification", "id", id, "task_id", failed.TaskID)
	return dlq.repo.Delete(ctx, id)
}
