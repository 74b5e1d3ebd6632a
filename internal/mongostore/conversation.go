package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type messageDoc struct {
	Role          string    `bson:"role"`
	Content       string    `bson:"content"`
	ImageMIMEType string    `bson:"image_mime_type,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

type conversationDoc struct {
	ID             string       `bson:"_id"`
	TenantID       string       `bson:"tenant_id"`
	ProjectID      string       `bson:"project_id"`
	Agent          string       `bson:"agent"`
	ParentThreadID *string      `bson:"parent_thread_id,omitempty"`
	StepNumber     *int         `bson:"step_number,omitempty"`
	Status         string       `bson:"status"`
	Messages       []messageDoc `bson:"messages"`
	Version        int64        `bson:"version"`
	CreatedAt      time.Time    `bson:"created_at"`
	UpdatedAt      time.Time    `bson:"updated_at"`
}

func toMessageDocs(messages []conversation.Message) []messageDoc {
	docs := make([]messageDoc, 0, len(messages))
	for _, msg := range messages {
		docs = append(docs, messageDoc{
			Role:          string(msg.Role),
			Content:       msg.Content,
			ImageMIMEType: msg.ImageMIMEType,
			CreatedAt:     msg.CreatedAt,
		})
	}
	return docs
}

func (d conversationDoc) toConversation() (*conversation.Conversation, error) {
	status, err := conversation.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	conv := &conversation.Conversation{
		ID:             d.ID,
		TenantID:       d.TenantID,
		ProjectID:      d.ProjectID,
		Agent:          conversation.AgentKind(d.Agent),
		ParentThreadID: d.ParentThreadID,
		StepNumber:     d.StepNumber,
		Status:         status,
		Messages:       make([]conversation.Message, 0, len(d.Messages)),
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	for _, msg := range d.Messages {
		conv.Messages = append(conv.Messages, conversation.Message{
			Role:          conversation.Role(msg.Role),
			Content:       msg.Content,
			ImageMIMEType: msg.ImageMIMEType,
			CreatedAt:     msg.CreatedAt,
		})
	}
	return conv, nil
}

// ConversationRepository implements storage.ConversationRepository. A thread
// and its messages are one document, so every turn is a single atomic update.
type ConversationRepository struct {
	conversations *mongo.Collection
	projects      *mongo.Collection
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{
		conversations: db.Collection(conversationsCollection),
		projects:      db.Collection(projectsCollection),
	}
}

// Create inserts a new thread. The project must exist for the tenant.
func (r *ConversationRepository) Create(ctx context.Context, tenantID string, conv *conversation.Conversation) error {
	n, err := r.projects.CountDocuments(ctx, bson.D{{Key: "_id", Value: conv.ProjectID}, {Key: "tenant_id", Value: tenantID}})
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if n == 0 {
		return repository.ErrForeignKeyViolation
	}

	doc := conversationDoc{
		ID:             conv.ID,
		TenantID:       tenantID,
		ProjectID:      conv.ProjectID,
		Agent:          string(conv.Agent),
		ParentThreadID: conv.ParentThreadID,
		StepNumber:     conv.StepNumber,
		Status:         string(conv.Status),
		Messages:       toMessageDocs(conv.Messages),
		Version:        conv.Version,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
	}
	if _, err := r.conversations.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// Get retrieves a thread with its messages
func (r *ConversationRepository) Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error) {
	var doc conversationDoc
	err := r.conversations.FindOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "tenant_id", Value: tenantID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return doc.toConversation()
}

// AppendTurn pushes the turn's messages and bumps the version only when the
// stored version still equals expectedVersion.
func (r *ConversationRepository) AppendTurn(ctx context.Context, tenantID, id string, expectedVersion int64, update conversation.TurnUpdate) error {
	set := bson.D{
		{Key: "status", Value: string(update.Status)},
		{Key: "updated_at", Value: update.UpdatedAt},
	}
	if update.StepNumber != nil {
		set = append(set, bson.E{Key: "step_number", Value: *update.StepNumber})
	}

	result, err := r.conversations.UpdateOne(ctx,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "tenant_id", Value: tenantID},
			{Key: "version", Value: expectedVersion},
		},
		bson.D{
			{Key: "$push", Value: bson.D{{Key: "messages", Value: bson.D{{Key: "$each", Value: toMessageDocs(update.Messages)}}}}},
			{Key: "$set", Value: set},
			{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	n, err := r.conversations.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}, {Key: "tenant_id", Value: tenantID}})
	if err != nil {
		return fmt.Errorf("failed to check conversation: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrConflict
}
