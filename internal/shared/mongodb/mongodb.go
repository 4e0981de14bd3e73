package mongodb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoClient wraps the MongoDB client
type MongoClient struct {
	client   *mongo.Client
	database *mongo.Database
}

// ValidateMongoURI checks that a MongoDB connection URI has a known scheme
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return fmt.Errorf("mongodb URI is empty")
	}
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return fmt.Errorf("mongodb URI must start with mongodb:// or mongodb+srv://")
	}
	return nil
}

// NewMongoClient creates a new MongoDB client
func NewMongoClient(uri, database string) (*MongoClient, error) {
	if err := ValidateMongoURI(uri); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the database
	if err = client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &MongoClient{
		client:   client,
		database: client.Database(database),
	}, nil
}

// Collection returns a collection handle
func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

// CreateIndexes creates indexes on a collection
func (c *MongoClient) CreateIndexes(ctx context.Context, collection string, indexes []mongo.IndexModel) error {
	_, err := c.database.Collection(collection).Indexes().CreateMany(ctx, indexes)
	return err
}

// Disconnect closes the MongoDB connection
func (c *MongoClient) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// Database returns the database handle
func (c *MongoClient) Database() *mongo.Database {
	return c.database
}
