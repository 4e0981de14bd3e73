package domain

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeReminder NotificationType = "reminder"
	NotificationTypeOverdue  NotificationType = "overdue"
)

// NotificationStatus represents the lifecycle state of a notification record
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusSent      NotificationStatus = "sent"
	NotificationStatusCancelled NotificationStatus = "cancelled"
)

// NotificationRecord is one planned notification for one task occurrence.
// Recipient fields are denormalized at schedule time and are not re-fetched
// at send time, so the record describes the plan as it was made.
type NotificationRecord struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TaskID       string             `json:"task_id" bson:"task_id"`
	UserID       string             `json:"user_id" bson:"user_id"`
	UserEmail    string             `json:"user_email" bson:"user_email"`
	UserName     string             `json:"user_name" bson:"user_name"`
	TaskTitle    string             `json:"task_title" bson:"task_title"`
	DueDate      time.Time          `json:"due_date" bson:"due_date"`
	Type         NotificationType   `json:"type" bson:"type"`
	ScheduledFor time.Time          `json:"scheduled_for" bson:"scheduled_for"`
	Status       NotificationStatus `json:"status" bson:"status"`
	Attempts     int                `json:"attempts" bson:"attempts"`
	Error        string             `json:"error,omitempty" bson:"error,omitempty"`
	SentAt       *time.Time         `json:"sent_at,omitempty" bson:"sent_at,omitempty"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
}

// Task is the external task entity. This service only reads tasks; the
// task CRUD API owns them.
type Task struct {
	ID                string         `json:"id" bson:"_id"`
	Text              string         `json:"text" bson:"text"`
	Completed         bool           `json:"completed" bson:"completed"`
	DueDate           *time.Time     `json:"due_date,omitempty" bson:"due_date,omitempty"`
	AvailableDays     []time.Weekday `json:"available_days,omitempty" bson:"available_days,omitempty"`
	AvailableDaysTime string         `json:"available_days_time,omitempty" bson:"available_days_time,omitempty"`
	RepeatWeeks       int            `json:"repeat_weeks,omitempty" bson:"repeat_weeks,omitempty"`
	RepeatStartDate   *time.Time     `json:"repeat_start_date,omitempty" bson:"repeat_start_date,omitempty"`
	UserID            string         `json:"user_id" bson:"user_id"`
	UserEmail         string         `json:"user_email" bson:"user_email"`
	UserName          string         `json:"user_name" bson:"user_name"`
}

// IsRecurring reports whether the task repeats by weekday rather than
// having a single fixed due date.
func (t *Task) IsRecurring() bool {
	return len(t.AvailableDays) > 0
}

// FailedNotification is a notification moved to the dead letter collection
// after exhausting its delivery attempts.
type FailedNotification struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OriginalID primitive.ObjectID `json:"original_id" bson:"original_id"`
	TaskID     string             `json:"task_id" bson:"task_id"`
	UserEmail  string             `json:"user_email" bson:"user_email"`
	UserName   string             `json:"user_name" bson:"user_name"`
	TaskTitle  string             `json:"task_title" bson:"task_title"`
	DueDate    time.Time          `json:"due_date" bson:"due_date"`
	Type       NotificationType   `json:"type" bson:"type"`
	Error      string             `json:"error" bson:"error"`
	Attempts   int                `json:"attempts" bson:"attempts"`
	FailedAt   time.Time          `json:"failed_at" bson:"failed_at"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}

// TaskEventType represents the type of task lifecycle event
type TaskEventType string

const (
	EventTaskCreated   TaskEventType = "task.created"
	EventTaskUpdated   TaskEventType = "task.updated"
	EventTaskCompleted TaskEventType = "task.completed"
	EventTaskDeleted   TaskEventType = "task.deleted"
)

// TaskEvent represents a task lifecycle event from RabbitMQ
type TaskEvent struct {
	Type      TaskEventType `json:"type"`
	TaskID    string        `json:"task_id"`
	Task      *Task         `json:"task,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// placeholderEmail is stored for accounts that never provided an address.
const placeholderEmail = "unknown@example.com"

// Deliverable reports whether an email address can actually receive mail.
// OAuth-only identities come through with synthetic discord addresses or
// the placeholder sentinel; those are skipped without error.
func Deliverable(email string) bool {
	if !strings.Contains(email, "@") {
		return false
	}
	if strings.Contains(email, "discord.local") || strings.Contains(email, "@discord") {
		return false
	}
	return email != placeholderEmail
}
