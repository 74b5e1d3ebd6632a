package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/diyassist/internal/repository"
	"github.com/rpggio/diyassist/internal/storage"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type apiKeyDoc struct {
	Hash        string     `bson:"_id"`
	TenantID    string     `bson:"tenant_id"`
	Description string     `bson:"description,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	LastUsed    *time.Time `bson:"last_used,omitempty"`
}

// APIKeyRepository stores hashed bearer tokens keyed by hash
type APIKeyRepository struct {
	keys *mongo.Collection
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *mongo.Database) *APIKeyRepository {
	return &APIKeyRepository{keys: db.Collection(apiKeysCollection)}
}

// Create stores the hash of token for tenantID
func (r *APIKeyRepository) Create(ctx context.Context, tenantID, token, description string) error {
	doc := apiKeyDoc{
		Hash:        storage.HashToken(token),
		TenantID:    tenantID,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := r.keys.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

// ResolveTenant returns the tenant owning token and stamps its last use
func (r *APIKeyRepository) ResolveTenant(ctx context.Context, token string) (string, error) {
	var doc apiKeyDoc
	err := r.keys.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: storage.HashToken(token)}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "last_used", Value: time.Now().UTC()}}}},
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}
	if doc.TenantID == "" {
		return "", repository.ErrNotFound
	}
	return doc.TenantID, nil
}
