package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskhive/go-reminder-service/internal/delivery"
	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRecordStore struct {
	due      []*domain.NotificationRecord
	sent     map[string][]*domain.NotificationRecord
	created  []*domain.NotificationRecord
	deleted  []primitive.ObjectID
	marked   []primitive.ObjectID
	failures []primitive.ObjectID
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{sent: make(map[string][]*domain.NotificationRecord)}
}

func (s *fakeRecordStore) Create(_ context.Context, record *domain.NotificationRecord) error {
	record.ID = primitive.NewObjectID()
	s.created = append(s.created, record)
	if record.Type == domain.NotificationTypeOverdue && record.Status == domain.NotificationStatusSent {
		s.sent[record.TaskID] = append(s.sent[record.TaskID], record)
	}
	return nil
}

func (s *fakeRecordStore) FindDuePending(_ context.Context, _ time.Time) ([]*domain.NotificationRecord, error) {
	return s.due, nil
}

func (s *fakeRecordStore) FindSentOverdueByTask(_ context.Context, taskID string) ([]*domain.NotificationRecord, error) {
	return s.sent[taskID], nil
}

func (s *fakeRecordStore) Delete(_ context.Context, id primitive.ObjectID) error {
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeRecordStore) MarkSent(_ context.Context, id primitive.ObjectID, _ time.Time) error {
	s.marked = append(s.marked, id)
	return nil
}

func (s *fakeRecordStore) RecordFailure(_ context.Context, id primitive.ObjectID, _ string) error {
	s.failures = append(s.failures, id)
	return nil
}

type fakeTaskSource struct {
	tasks []*domain.Task
	err   error
}

func (s *fakeTaskSource) FindIncompleteWithDueDate(_ context.Context) ([]*domain.Task, error) {
	return s.tasks, s.err
}

type fakeChannel struct {
	outcome delivery.Outcome
	err     error
	sent    []*domain.NotificationRecord
}

func (c *fakeChannel) Send(_ context.Context, record *domain.NotificationRecord) (delivery.Outcome, error) {
	c.sent = append(c.sent, record)
	return c.outcome, c.err
}

type fakeDeadLetter struct {
	added []*domain.NotificationRecord
}

func (d *fakeDeadLetter) Add(_ context.Context, record *domain.NotificationRecord, _ string) error {
	d.added = append(d.added, record)
	return nil
}

var sweepNow = time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

func newTestProcessor(store *fakeRecordStore, tasks *fakeTaskSource, channel *fakeChannel, dl *fakeDeadLetter) *Processor {
	return NewProcessor(store, tasks, channel, dl, 5*time.Second, 3, logger.NewLogger()).
		WithClock(func() time.Time { return sweepNow })
}

func dueRecord(taskID string, notifType domain.NotificationType, email string) *domain.NotificationRecord {
	return &domain.NotificationRecord{
		ID:           primitive.NewObjectID(),
		TaskID:       taskID,
		UserEmail:    email,
		TaskTitle:    "a task",
		DueDate:      sweepNow.Add(-5 * time.Minute),
		Type:         notifType,
		ScheduledFor: sweepNow.Add(-time.Minute),
		Status:       domain.NotificationStatusPending,
	}
}

func TestSweepDeliversAndDeletesReminder(t *testing.T) {
	store := newFakeRecordStore()
	record := dueRecord("t1", domain.NotificationTypeReminder, "user@example.org")
	store.due = []*domain.NotificationRecord{record}
	channel := &fakeChannel{outcome: delivery.OutcomeSent}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(channel.sent) != 1 {
		t.Fatalf("channel received %d sends, want 1", len(channel.sent))
	}
	if len(store.deleted) != 1 || store.deleted[0] != record.ID {
		t.Errorf("sent reminder was not deleted")
	}
	if len(store.marked) != 0 {
		t.Errorf("reminder was marked sent instead of deleted")
	}
}

func TestSweepMarksOverdueRecordSent(t *testing.T) {
	store := newFakeRecordStore()
	record := dueRecord("t1", domain.NotificationTypeOverdue, "user@example.org")
	store.due = []*domain.NotificationRecord{record}
	channel := &fakeChannel{outcome: delivery.OutcomeSent}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.marked) != 1 || store.marked[0] != record.ID {
		t.Errorf("sent overdue record was not marked sent")
	}
	if len(store.deleted) != 0 {
		t.Errorf("overdue record was deleted instead of marked")
	}
}

func TestSweepDeletesSkippedRecords(t *testing.T) {
	// An unconfigured channel must not grow a pending backlog.
	store := newFakeRecordStore()
	record := dueRecord("t1", domain.NotificationTypeReminder, "user@example.org")
	store.due = []*domain.NotificationRecord{record}
	channel := &fakeChannel{outcome: delivery.OutcomeSkipped}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.deleted) != 1 {
		t.Errorf("skipped record was not deleted")
	}
}

func TestSweepLeavesFailedRecordPending(t *testing.T) {
	store := newFakeRecordStore()
	record := dueRecord("t1", domain.NotificationTypeReminder, "user@example.org")
	store.due = []*domain.NotificationRecord{record}
	channel := &fakeChannel{outcome: delivery.OutcomeFailed, err: errors.New("connection reset")}
	dl := &fakeDeadLetter{}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, dl)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.failures) != 1 || store.failures[0] != record.ID {
		t.Errorf("failure was not counted against the record")
	}
	if len(store.deleted) != 0 {
		t.Errorf("failed record was deleted; it should stay pending for retry")
	}
	if len(dl.added) != 0 {
		t.Errorf("record was dead lettered before exhausting attempts")
	}
}

func TestSweepDeadLettersAfterMaxAttempts(t *testing.T) {
	store := newFakeRecordStore()
	record := dueRecord("t1", domain.NotificationTypeReminder, "user@example.org")
	record.Attempts = 2 // two prior failures, budget of three
	store.due = []*domain.NotificationRecord{record}
	channel := &fakeChannel{outcome: delivery.OutcomeFailed, err: errors.New("connection reset")}
	dl := &fakeDeadLetter{}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, dl)
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(dl.added) != 1 {
		t.Fatalf("record was not dead lettered after exhausting attempts")
	}
	if len(store.deleted) != 1 || store.deleted[0] != record.ID {
		t.Errorf("dead lettered record was not removed from the pending set")
	}
}

func TestSweepDropsUndeliverableRecipients(t *testing.T) {
	tests := []struct {
		name  string
		email string
	}{
		{name: "discord synthetic address", email: "foo@discord.local"},
		{name: "placeholder sentinel", email: "unknown@example.com"},
		{name: "not an address", email: "not-an-email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeRecordStore()
			store.due = []*domain.NotificationRecord{dueRecord("t1", domain.NotificationTypeReminder, tt.email)}
			channel := &fakeChannel{outcome: delivery.OutcomeSent}

			p := newTestProcessor(store, &fakeTaskSource{}, channel, &fakeDeadLetter{})
			if err := p.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(channel.sent) != 0 {
				t.Errorf("record for %q reached the delivery channel", tt.email)
			}
			if len(store.deleted) != 1 {
				t.Errorf("undeliverable record was not dropped")
			}
		})
	}
}

func TestSweepContinuesAfterPerItemFailure(t *testing.T) {
	store := newFakeRecordStore()
	first := dueRecord("t1", domain.NotificationTypeReminder, "a@example.org")
	second := dueRecord("t2", domain.NotificationTypeReminder, "b@example.org")
	store.due = []*domain.NotificationRecord{first, second}
	channel := &fakeChannel{outcome: delivery.OutcomeFailed, err: errors.New("boom")}

	p := newTestProcessor(store, &fakeTaskSource{}, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(channel.sent) != 2 {
		t.Errorf("sweep stopped after the first failure: %d sends, want 2", len(channel.sent))
	}
}

func overdueTask(id string, minutesOverdue int) *domain.Task {
	due := sweepNow.Add(-time.Duration(minutesOverdue) * time.Minute)
	return &domain.Task{
		ID:        id,
		Text:      "a task",
		DueDate:   &due,
		UserEmail: "user@example.org",
	}
}

func TestReconcileMatchesToleranceBand(t *testing.T) {
	// 32 minutes overdue falls only in the 30-minute band [25, 35].
	store := newFakeRecordStore()
	channel := &fakeChannel{outcome: delivery.OutcomeSent}
	tasks := &fakeTaskSource{tasks: []*domain.Task{overdueTask("t1", 32)}}

	p := newTestProcessor(store, tasks, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(channel.sent) != 1 {
		t.Fatalf("reconciliation sent %d notices, want 1", len(channel.sent))
	}
	if channel.sent[0].Type != domain.NotificationTypeOverdue {
		t.Errorf("notice type = %s, want overdue", channel.sent[0].Type)
	}
	if len(store.created) != 1 || store.created[0].Status != domain.NotificationStatusSent {
		t.Errorf("no sent marker record was persisted")
	}
}

func TestReconcileIgnoresTasksOutsideBands(t *testing.T) {
	tests := []struct {
		name           string
		minutesOverdue int
	}{
		{name: "not yet due", minutesOverdue: -10},
		{name: "between bands", minutesOverdue: 45},
		{name: "long past the last band", minutesOverdue: 120},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeRecordStore()
			channel := &fakeChannel{outcome: delivery.OutcomeSent}
			tasks := &fakeTaskSource{tasks: []*domain.Task{overdueTask("t1", tt.minutesOverdue)}}

			p := newTestProcessor(store, tasks, channel, &fakeDeadLetter{})
			if err := p.Run(context.Background()); err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			if len(channel.sent) != 0 {
				t.Errorf("reconciliation sent a notice for a task %d minutes overdue", tt.minutesOverdue)
			}
		})
	}
}

func TestReconcileSuppressesDuplicateSends(t *testing.T) {
	// A notice already went out near the 30-minute target; at 33 minutes
	// overdue the task is still in the same band and must not fire again.
	store := newFakeRecordStore()
	task := overdueTask("t1", 33)
	sentAt := task.DueDate.Add(30 * time.Minute)
	store.sent["t1"] = []*domain.NotificationRecord{{
		TaskID:  "t1",
		Type:    domain.NotificationTypeOverdue,
		Status:  domain.NotificationStatusSent,
		DueDate: *task.DueDate,
		SentAt:  &sentAt,
	}}
	channel := &fakeChannel{outcome: delivery.OutcomeSent}
	tasks := &fakeTaskSource{tasks: []*domain.Task{task}}

	p := newTestProcessor(store, tasks, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(channel.sent) != 0 {
		t.Errorf("duplicate overdue notice was sent")
	}
}

func TestReconcileSkipsUndeliverableRecipients(t *testing.T) {
	store := newFakeRecordStore()
	task := overdueTask("t1", 30)
	task.UserEmail = "foo@discord.local"
	channel := &fakeChannel{outcome: delivery.OutcomeSent}
	tasks := &fakeTaskSource{tasks: []*domain.Task{task}}

	p := newTestProcessor(store, tasks, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(channel.sent) != 0 {
		t.Errorf("overdue notice was sent to an undeliverable address")
	}
}

func TestReconcileDoesNotRecordFailedSends(t *testing.T) {
	// A failed live notice leaves no sent marker, so the next sweep
	// retries while the task is still inside the tolerance band.
	store := newFakeRecordStore()
	channel := &fakeChannel{outcome: delivery.OutcomeFailed, err: errors.New("boom")}
	tasks := &fakeTaskSource{tasks: []*domain.Task{overdueTask("t1", 30)}}

	p := newTestProcessor(store, tasks, channel, &fakeDeadLetter{})
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(store.created) != 0 {
		t.Errorf("failed send left a sent marker record")
	}
}

func TestMatchOverdueTarget(t *testing.T) {
	tests := []struct {
		minutes float64
		target  float64
		ok      bool
	}{
		{minutes: 10, target: 15, ok: true},
		{minutes: 15, target: 15, ok: true},
		{minutes: 20, target: 15, ok: true},
		{minutes: 21, ok: false},
		{minutes: 32, target: 30, ok: true},
		{minutes: 36, ok: false},
		{minutes: 55, target: 60, ok: true},
		{minutes: 66, ok: false},
		{minutes: 4, ok: false},
	}

	for _, tt := range tests {
		target, ok := matchOverdueTarget(tt.minutes)
		if ok != tt.ok || (ok && target != tt.target) {
			t.Errorf("matchOverdueTarget(%v) = (%v, %v), want (%v, %v)", tt.minutes, target, ok, tt.target, tt.ok)
		}
	}
}
