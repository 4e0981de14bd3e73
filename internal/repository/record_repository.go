package repository

import (
	"context"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const recordsCollection = "notification_records"

// NotificationRecordRepository handles notification record persistence
type NotificationRecordRepository struct {
	client *mongodb.MongoClient
}

// NewNotificationRecordRepository creates a new notification record repository
func NewNotificationRecordRepository(client *mongodb.MongoClient) *NotificationRecordRepository {
	return &NotificationRecordRepository{client: client}
}

// EnsureIndexes creates the indexes the sweep queries rely on. The partial
// unique index backs idempotent scheduling: pre-query-then-insert is not
// atomic against concurrent writers, so the index closes the race window.
func (r *NotificationRecordRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "task_id", Value: 1},
				{Key: "type", Value: 1},
				{Key: "scheduled_for", Value: 1},
			},
			Options: options.Index().
				SetName("pending_triple_idx").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.NotificationStatusPending}),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "scheduled_for", Value: 1},
			},
			Options: options.Index().SetName("status_due_idx"),
		},
		{
			Keys: bson.D{
				{Key: "task_id", Value: 1},
				{Key: "status", Value: 1},
			},
			Options: options.Index().SetName("task_status_idx"),
		},
	}

	return r.client.CreateIndexes(ctx, recordsCollection, indexes)
}

// Create inserts a notification record unconditionally
func (r *NotificationRecordRepository) Create(ctx context.Context, record *domain.NotificationRecord) error {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()

	_, err := r.client.Collection(recordsCollection).InsertOne(ctx, record)
	return err
}

// CreateIfAbsent inserts a record unless a pending record with the same
// (task_id, type, scheduled_for) triple already exists. It reports whether
// a record was created. A duplicate key error from the partial unique
// index is treated the same as finding an existing record.
func (r *NotificationRecordRepository) CreateIfAbsent(ctx context.Context, record *domain.NotificationRecord) (bool, error) {
	filter := bson.M{
		"task_id":       record.TaskID,
		"type":          record.Type,
		"scheduled_for": record.ScheduledFor,
		"status":        domain.NotificationStatusPending,
	}

	err := r.client.Collection(recordsCollection).FindOne(ctx, filter).Err()
	if err == nil {
		return false, nil
	}
	if err != mongo.ErrNoDocuments {
		return false, err
	}

	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	record.Status = domain.NotificationStatusPending

	_, err = r.client.Collection(recordsCollection).InsertOne(ctx, record)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// FindDuePending returns all pending records whose scheduled_for has passed
func (r *NotificationRecordRepository) FindDuePending(ctx context.Context, now time.Time) ([]*domain.NotificationRecord, error) {
	filter := bson.M{
		"status":        domain.NotificationStatusPending,
		"scheduled_for": bson.M{"$lte": now},
	}

	cursor, err := r.client.Collection(recordsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.NotificationRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// FindSentOverdueByTask returns sent overdue records for a task. The
// reconciliation pass compares their send instants against its tolerance
// targets to suppress duplicate overdue notices.
func (r *NotificationRecordRepository) FindSentOverdueByTask(ctx context.Context, taskID string) ([]*domain.NotificationRecord, error) {
	filter := bson.M{
		"task_id": taskID,
		"type":    domain.NotificationTypeOverdue,
		"status":  domain.NotificationStatusSent,
	}

	cursor, err := r.client.Collection(recordsCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*domain.NotificationRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}

// DeletePendingByTask removes every pending record for a task and returns
// the number removed. Called on task deletion and before re-scheduling a
// task whose due date changed.
func (r *NotificationRecordRepository) DeletePendingByTask(ctx context.Context, taskID string) (int64, error) {
	filter := bson.M{
		"task_id": taskID,
		"status":  domain.NotificationStatusPending,
	}

	result, err := r.client.Collection(recordsCollection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Delete removes a single record
func (r *NotificationRecordRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.client.Collection(recordsCollection).DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// MarkSent flips a record from pending to sent
func (r *NotificationRecordRepository) MarkSent(ctx context.Context, id primitive.ObjectID, sentAt time.Time) error {
	filter := bson.M{"_id": id, "status": domain.NotificationStatusPending}
	update := bson.M{
		"$set": bson.M{
			"status":  domain.NotificationStatusSent,
			"sent_at": sentAt,
		},
	}

	_, err := r.client.Collection(recordsCollection).UpdateOne(ctx, filter, update)
	return err
}

// RecordFailure increments a record's attempt counter and stores the last
// delivery error, leaving the record pending for the next sweep.
func (r *NotificationRecordRepository) RecordFailure(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$inc": bson.M{"attempts": 1},
		"$set": bson.M{"error": errMsg},
	}

	_, err := r.client.Collection(recordsCollection).UpdateOne(ctx, filter, update)
	return err
}

// Find returns records matching the listing filters with pagination
func (r *NotificationRecordRepository) Find(ctx context.Context, req *domain.GetNotificationsRequest) ([]*domain.NotificationRecord, int64, error) {
	filter := bson.M{}
	if req.TaskID != "" {
		filter["task_id"] = req.TaskID
	}
	if req.Status != "" {
		filter["status"] = req.Status
	}
	if req.Type != "" {
		filter["type"] = req.Type
	}

	total, err := r.client.Collection(recordsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (req.Page - 1) * req.PageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(req.PageSize)).
		SetSort(bson.M{"scheduled_for": 1})

	cursor, err := r.client.Collection(recordsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var records []*domain.NotificationRecord
	if err = cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
