package repository

import (
	"context"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const failedRecordsCollection = "failed_notifications"

// FailedRecordRepository stores notifications that exhausted their
// delivery attempts
type FailedRecordRepository struct {
	client *mongodb.MongoClient
}

// NewFailedRecordRepository creates a new failed record repository
func NewFailedRecordRepository(client *mongodb.MongoClient) *FailedRecordRepository {
	return &FailedRecordRepository{client: client}
}

// Create inserts a failed notification
func (r *FailedRecordRepository) Create(ctx context.Context, failed *domain.FailedNotification) error {
	failed.ID = primitive.NewObjectID()
	failed.CreatedAt = time.Now()

	_, err := r.client.Collection(failedRecordsCollection).InsertOne(ctx, failed)
	return err
}

// FindByID finds a failed notification by ID
func (r *FailedRecordRepository) FindByID(ctx context.Context, id string) (*domain.FailedNotification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var failed domain.FailedNotification
	err = r.client.Collection(failedRecordsCollection).FindOne(ctx, bson.M{"_id": objectID}).Decode(&failed)
	if err != nil {
		return nil, err
	}

	return &failed, nil
}

// FindAll returns failed notifications with pagination
func (r *FailedRecordRepository) FindAll(ctx context.Context, page, pageSize int) ([]*domain.FailedNotification, int64, error) {
	filter := bson.M{}

	total, err := r.client.Collection(failedRecordsCollection).CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize)).
		SetSort(bson.M{"failed_at": -1})

	cursor, err := r.client.Collection(failedRecordsCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var failed []*domain.FailedNotification
	if err = cursor.All(ctx, &failed); err != nil {
		return nil, 0, err
	}

	return failed, total, nil
}

// Delete removes a failed notification
func (r *FailedRecordRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.client.Collection(failedRecordsCollection).DeleteOne(ctx, bson.M{"_id": objectID})
	return err
}
