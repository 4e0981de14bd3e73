package repository

import (
	"context"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/mongodb"
	"go.mongodb.org/mongo-driver/bson"
)

const tasksCollection = "tasks"

// TaskRepository reads tasks from the collection owned by the task CRUD
// service. This service never mutates tasks.
type TaskRepository struct {
	client *mongodb.MongoClient
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(client *mongodb.MongoClient) *TaskRepository {
	return &TaskRepository{client: client}
}

// FindIncompleteWithDueDate returns all incomplete tasks that carry a due
// date. The overdue reconciliation pass re-derives its work set from this
// query every sweep instead of keeping schedule state in memory.
func (r *TaskRepository) FindIncompleteWithDueDate(ctx context.Context) ([]*domain.Task, error) {
	filter := bson.M{
		"completed": false,
		"due_date":  bson.M{"$ne": nil},
	}

	cursor, err := r.client.Collection(tasksCollection).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tasks []*domain.Task
	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}
