package consumer

import (
	"context"
	"encoding/json"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/planner"
	"github.com/taskhive/go-reminder-service/internal/scheduler"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
	"github.com/taskhive/go-reminder-service/internal/shared/rabbitmq"
)

const (
	taskExchange   = "tasks"
	taskQueue      = "task_reminder_queue"
	taskRoutingKey = "task.*"
	consumerTag    = "reminder-service"
)

// TaskEventConsumer listens for task lifecycle events and keeps the
// notification plan in sync with them.
type TaskEventConsumer struct {
	client  *rabbitmq.RabbitMQClient
	planner *planner.Planner
	driver  *scheduler.SweepDriver
	log     *logger.Logger
}

// NewTaskEventConsumer creates a new task event consumer
func NewTaskEventConsumer(client *rabbitmq.RabbitMQClient, pl *planner.Planner, driver *scheduler.SweepDriver, log *logger.Logger) *TaskEventConsumer {
	return &TaskEventConsumer{
		client:  client,
		planner: pl,
		driver:  driver,
		log:     log,
	}
}

// Start declares the topology and consumes task events until the channel
// closes
func (c *TaskEventConsumer) Start() error {
	c.log.Info("Starting task event consumer", "queue", taskQueue)

	if err := c.client.DeclareExchange(taskExchange, "topic"); err != nil {
		return err
	}
	if err := c.client.DeclareQueue(taskQueue); err != nil {
		return err
	}
	if err := c.client.BindQueue(taskQueue, taskRoutingKey, taskExchange); err != nil {
		return err
	}

	messages, err := c.client.Consume(taskQueue, consumerTag)
	if err != nil {
		return err
	}

	for msg := range messages {
		var event domain.TaskEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			c.log.Error("Failed to unmarshal task event", "error", err, "routing_key", msg.RoutingKey)
			msg.Nack(false, false) // Don't requeue invalid messages
			continue
		}

		ctx := context.Background()
		if err := c.handleEvent(ctx, &event); err != nil {
			c.log.Error("Failed to process task event", "error", err, "type", event.Type, "task_id", event.TaskID)
			msg.Nack(false, true) // Requeue for retry
			continue
		}

		msg.Ack(false)
	}

	return nil
}

// handleEvent maps a task lifecycle event to schedule mutations. Create
// and update tear down stale pending records first, then re-plan; a
// completion re-plans recurring tasks so their horizon extends one step.
// After any event that may have made a notification due, a sweep runs
// inline so delivery is not delayed by up to a full polling interval.
func (c *TaskEventConsumer) handleEvent(ctx context.Context, event *domain.TaskEvent) error {
	c.log.Info("Processing task event", "type", event.Type, "task_id", event.TaskID)

	switch event.Type {
	case domain.EventTaskCreated, domain.EventTaskUpdated:
		if event.Task == nil {
			c.log.Warn("Task event missing task payload", "type", event.Type, "task_id", event.TaskID)
			return nil
		}
		if _, err := c.planner.CancelForTask(ctx, event.TaskID); err != nil {
			return err
		}
		if _, err := c.planner.ScheduleForTask(ctx, event.Task); err != nil {
			return err
		}

	case domain.EventTaskCompleted:
		if _, err := c.planner.CancelForTask(ctx, event.TaskID); err != nil {
			return err
		}
		// Recurring-forever tasks are scheduled one step ahead at a
		// time; completion is what extends the horizon.
		if event.Task != nil && event.Task.IsRecurring() {
			if _, err := c.planner.ScheduleForTask(ctx, event.Task); err != nil {
				return err
			}
		}

	case domain.EventTaskDeleted:
		if _, err := c.planner.CancelForTask(ctx, event.TaskID); err != nil {
			return err
		}
		return nil

	default:
		c.log.Warn("Unknown task event type", "type", event.Type)
		return nil
	}

	if err := c.driver.RunNow(ctx, "event"); err != nil {
		// The cron cadence will pick the work up on its next tick.
		c.log.Error("Inline sweep after task event failed", "error", err)
	}
	return nil
}
