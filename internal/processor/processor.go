// Package processor runs the periodic due-notification sweep: delivering
// pre-scheduled records and reconciling live overdue tasks.
package processor

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/taskhive/go-reminder-service/internal/delivery"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/metrics"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Overdue reconciliation targets, in minutes past due. The tolerance
// exists because the sweep cadence is driven externally (typically once a
// minute) and is not guaranteed to land exactly on a target minute.
var overdueTargets = []float64{15, 30, 60}

const (
	// toleranceMinutes makes each target a [target-5, target+5] band.
	toleranceMinutes = 5
	// dedupeWindowMinutes is the looser interval-match used to suppress
	// a second send for the same target. It is a heuristic, not an exact
	// key match; near band boundaries it may under- or over-suppress.
	dedupeWindowMinutes = 10
)

// RecordStore is the slice of the notification record store the sweep needs
type RecordStore interface {
	Create(ctx context.Context, record *domain.NotificationRecord) error
	FindDuePending(ctx context.Context, now time.Time) ([]*domain.NotificationRecord, error)
	FindSentOverdueByTask(ctx context.Context, taskID string) ([]*domain.NotificationRecord, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error
	RecordFailure(ctx context.Context, id primitive.ObjectID, errMsg string) error
}

// TaskSource reads tasks owned by the external task CRUD service
type TaskSource interface {
	FindIncompleteWithDueDate(ctx context.Context) ([]*domain.Task, error)
}

// Channel delivers a single notification
type Channel interface {
	Send(ctx context.Context, record *domain.NotificationRecord) (delivery.Outcome, error)
}

// DeadLetter receives records that exhausted their delivery attempts
type DeadLetter interface {
	Add(ctx context.Context, record *domain.NotificationRecord, cause string) error
}

// Processor executes one sweep at a time. It keeps no schedule state
// between sweeps; every run re-derives its work set from storage, so the
// processor is stateless and safely restartable.
type Processor struct {
	records     RecordStore
	tasks       TaskSource
	channel     Channel
	deadLetter  DeadLetter
	log         *logger.Logger
	sendTimeout time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewProcessor creates a new sweep processor
func NewProcessor(records RecordStore, tasks TaskSource, channel Channel, deadLetter DeadLetter, sendTimeout time.Duration, maxAttempts int, log *logger.Logger) *Processor {
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Processor{
		records:     records,
		tasks:       tasks,
		channel:     channel,
		deadLetter:  deadLetter,
		log:         log,
		sendTimeout: sendTimeout,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// Run executes one sweep: first the pre-scheduled records that have come
// due, then the live overdue reconciliation. Failures for individual
// records or tasks never abort the sweep; Run only returns an error when a
// whole pass could not read its work set.
func (p *Processor) Run(ctx context.Context) error {
	sweepID := uuid.NewString()[:8]
	now := p.now()
	start := time.Now()

	p.log.Debug("Sweep starting", "sweep_id", sweepID)

	errA := p.deliverScheduled(ctx, sweepID, now)
	errB := p.reconcileOverdue(ctx, sweepID, now)

	metrics.SweepDuration.Observe(time.Since(start).Seconds())

	if errA != nil {
		return errA
	}
	return errB
}

// deliverScheduled is the scheduled-records pass: every pending record
// whose scheduled_for has elapsed is sent and resolved.
func (p *Processor) deliverScheduled(ctx context.Context, sweepID string, now time.Time) error {
	due, err := p.records.FindDuePending(ctx, now)
	if err != nil {
		p.log.Error("Failed to query due records", "sweep_id", sweepID, "error", err)
		return err
	}

	metrics.PendingBacklog.Set(float64(len(due)))
	if len(due) == 0 {
		return nil
	}

	p.log.Info("Processing due notification records", "sweep_id", sweepID, "count", len(due))

	for _, record := range due {
		p.deliverRecord(ctx, sweepID, record, now)
	}
	return nil
}

// deliverRecord sends one pre-scheduled record and applies its terminal
// state. Reminders are deleted once sent; overdue records are flipped to
// sent so the reconciliation pass can see them when deduplicating.
func (p *Processor) deliverRecord(ctx context.Context, sweepID string, record *domain.NotificationRecord, now time.Time) {
	if !domain.Deliverable(record.UserEmail) {
		p.log.Debug("Recipient has no deliverable address, dropping record", "sweep_id", sweepID, "task_id", record.TaskID)
		if err := p.records.Delete(ctx, record.ID); err != nil {
			p.log.Error("Failed to drop undeliverable record", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
		}
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	outcome, sendErr := p.channel.Send(sendCtx, record)
	cancel()

	metrics.NotificationsSent.WithLabelValues(string(record.Type), string(outcome)).Inc()

	switch outcome {
	case delivery.OutcomeSent:
		p.resolveSent(ctx, sweepID, record, now)

	case delivery.OutcomeSkipped:
		// Best effort: an unconfigured or misconfigured channel must
		// not grow an unbounded backlog of pending records.
		if err := p.records.Delete(ctx, record.ID); err != nil {
			p.log.Error("Failed to delete skipped record", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
		}

	default:
		p.resolveFailed(ctx, sweepID, record, sendErr)
	}
}

// resolveSent applies the pending-to-sent transition exactly once
func (p *Processor) resolveSent(ctx context.Context, sweepID string, record *domain.NotificationRecord, now time.Time) {
	var err error
	if record.Type == domain.NotificationTypeOverdue {
		err = p.records.MarkSent(ctx, record.ID, now)
	} else {
		err = p.records.Delete(ctx, record.ID)
	}
	if err != nil {
		p.log.Error("Failed to resolve sent record", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
	}
}

// resolveFailed counts a hard failure against the record, dead-lettering
// it once the attempt budget is spent, otherwise leaving it pending for
// the next sweep.
func (p *Processor) resolveFailed(ctx context.Context, sweepID string, record *domain.NotificationRecord, sendErr error) {
	errMsg := "delivery failed"
	if sendErr != nil {
		errMsg = sendErr.Error()
	}

	p.log.Error("Notification delivery failed", "sweep_id", sweepID, "task_id", record.TaskID, "type", record.Type, "attempt", record.Attempts+1, "error", sendErr)

	if record.Attempts+1 >= p.maxAttempts {
		if err := p.deadLetter.Add(ctx, record, errMsg); err != nil {
			p.log.Error("Failed to dead letter record", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
			return
		}
		if err := p.records.Delete(ctx, record.ID); err != nil {
			p.log.Error("Failed to remove dead lettered record", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
		}
		metrics.DeadLettered.Inc()
		return
	}

	if err := p.records.RecordFailure(ctx, record.ID, errMsg); err != nil {
		p.log.Error("Failed to record delivery failure", "sweep_id", sweepID, "id", record.ID.Hex(), "error", err)
	}
}

// reconcileOverdue is the live pass: it re-derives currently-overdue tasks
// straight from the task store, catching tasks whose due date changed
// without re-planning or whose scheduling step was missed entirely.
func (p *Processor) reconcileOverdue(ctx context.Context, sweepID string, now time.Time) error {
	tasks, err := p.tasks.FindIncompleteWithDueDate(ctx)
	if err != nil {
		p.log.Error("Failed to query overdue tasks", "sweep_id", sweepID, "error", err)
		return err
	}

	for _, task := range tasks {
		p.reconcileTask(ctx, sweepID, task, now)
	}
	return nil
}

// reconcileTask sends at most one overdue notice for a task, when its
// minutes-overdue falls inside a target's tolerance band and no earlier
// send is recorded near the same target.
func (p *Processor) reconcileTask(ctx context.Context, sweepID string, task *domain.Task, now time.Time) {
	if task.DueDate == nil {
		return
	}

	minutesOverdue := now.Sub(*task.DueDate).Minutes()
	if minutesOverdue <= 0 {
		return
	}

	target, ok := matchOverdueTarget(minutesOverdue)
	if !ok {
		return
	}

	if !domain.Deliverable(task.UserEmail) {
		return
	}

	sent, err := p.records.FindSentOverdueByTask(ctx, task.ID)
	if err != nil {
		p.log.Error("Failed to query sent overdue records", "sweep_id", sweepID, "task_id", task.ID, "error", err)
		return
	}
	if alreadyNotified(sent, *task.DueDate, target) {
		return
	}

	record := &domain.NotificationRecord{
		TaskID:       task.ID,
		UserID:       task.UserID,
		UserEmail:    task.UserEmail,
		UserName:     task.UserName,
		TaskTitle:    task.Text,
		DueDate:      *task.DueDate,
		Type:         domain.NotificationTypeOverdue,
		ScheduledFor: now,
	}

	sendCtx, cancel := context.WithTimeout(ctx, p.sendTimeout)
	outcome, sendErr := p.channel.Send(sendCtx, record)
	cancel()

	metrics.NotificationsSent.WithLabelValues(string(record.Type), string(outcome)).Inc()

	if outcome == delivery.OutcomeFailed {
		// Not recorded as sent, so the interval match naturally
		// retries while still inside the tolerance band.
		p.log.Error("Overdue notice delivery failed", "sweep_id", sweepID, "task_id", task.ID, "target_minutes", target, "error", sendErr)
		return
	}

	if outcome != delivery.OutcomeSent {
		return
	}

	p.log.Info("Sent reconciled overdue notice", "sweep_id", sweepID, "task_id", task.ID, "target_minutes", target, "minutes_overdue", int(minutesOverdue))

	// Persist a sent marker so later sweeps in the same band skip.
	sentAt := now
	record.Status = domain.NotificationStatusSent
	record.SentAt = &sentAt
	if err := p.records.Create(ctx, record); err != nil {
		p.log.Error("Failed to record overdue send", "sweep_id", sweepID, "task_id", task.ID, "error", err)
	}
}

// matchOverdueTarget returns the target band that minutesOverdue falls in
func matchOverdueTarget(minutesOverdue float64) (float64, bool) {
	for _, target := range overdueTargets {
		if math.Abs(minutesOverdue-target) <= toleranceMinutes {
			return target, true
		}
	}
	return 0, false
}

// alreadyNotified reports whether any prior sent overdue record lands
// within the dedupe window of the given target.
func alreadyNotified(sent []*domain.NotificationRecord, due time.Time, target float64) bool {
	for _, record := range sent {
		if record.SentAt == nil {
			continue
		}
		minutesAtSend := record.SentAt.Sub(due).Minutes()
		if math.Abs(minutesAtSend-target) <= dedupeWindowMinutes {
			return true
		}
	}
	return false
}

// WithClock overrides the processor's time source. Tests only.
func (p *Processor) WithClock(now func() time.Time) *Processor {
	p.now = now
	return p
}
