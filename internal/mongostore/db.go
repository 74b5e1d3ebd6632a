// Package mongostore implements the storage repositories on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/diyassist/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	projectsCollection      = "projects"
	conversationsCollection = "conversations"
	apiKeysCollection       = "api_keys"
)

// Connect opens a client for uri and verifies the deployment answers.
func Connect(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the tenant lookup indexes. It is idempotent.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	models := map[string][]mongo.IndexModel{
		projectsCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		conversationsCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "project_id", Value: 1}}},
		},
		apiKeysCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}}},
		},
	}
	for name, indexes := range models {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

// NewStore wires every MongoDB repository over db. Close disconnects client.
func NewStore(client *mongo.Client, db *mongo.Database) *storage.Store {
	return &storage.Store{
		Projects:      NewProjectRepository(db),
		Steps:         NewStepRepository(db),
		Conversations: NewConversationRepository(db),
		APIKeys:       NewAPIKeyRepository(db),
		Close:         client.Disconnect,
	}
}
