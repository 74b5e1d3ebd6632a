// Package storage names the repository contracts a storage backend provides.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
)

// ProjectRepository manages project persistence
type ProjectRepository interface {
	Create(ctx context.Context, tenantID string, proj *project.Project) error
	Get(ctx context.Context, tenantID, id string) (*project.Project, error)
	List(ctx context.Context, tenantID string) ([]project.ProjectSummary, error)
}

// StepRepository manages the ordered step plan of a project
type StepRepository interface {
	List(ctx context.Context, tenantID, projectID string) ([]project.Step, error)
	Replace(ctx context.Context, tenantID, projectID string, steps []project.Step) error
}

// ConversationRepository manages conversation threads and their messages
type ConversationRepository interface {
	Create(ctx context.Context, tenantID string, conv *conversation.Conversation) error
	Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error)
	AppendTurn(ctx context.Context, tenantID, id string, expectedVersion int64, update conversation.TurnUpdate) error
}

// APIKeyRepository manages hashed API keys mapped to tenants
type APIKeyRepository interface {
	Create(ctx context.Context, tenantID, token, description string) error
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// Store bundles the repositories of one storage backend.
type Store struct {
	Projects      ProjectRepository
	Steps         StepRepository
	Conversations ConversationRepository
	APIKeys       APIKeyRepository
	Close         func(ctx context.Context) error
}

// HashToken returns the hex SHA-256 digest stored in place of an API key.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
