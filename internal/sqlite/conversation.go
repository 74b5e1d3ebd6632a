package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/repository"
)

// ConversationRepository implements storage.ConversationRepository for SQLite
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create stores a new thread together with its initial messages
func (r *ConversationRepository) Create(ctx context.Context, tenantID string, conv *conversation.Conversation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO conversations (
			id, tenant_id, project_id, agent, parent_thread,
			step_number, status, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		conv.ID,
		tenantID,
		conv.ProjectID,
		conv.Agent,
		conv.ParentThreadID,
		conv.StepNumber,
		conv.Status,
		conv.Version,
		conv.CreatedAt,
		conv.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	if err := insertMessages(ctx, tx, conv.ID, 1, conv.Messages); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Get retrieves a thread with its messages in append order
func (r *ConversationRepository) Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error) {
	query := `
		SELECT
			id, tenant_id, project_id, agent, parent_thread,
			step_number, status, version, created_at, updated_at
		FROM conversations
		WHERE id = ? AND tenant_id = ?
	`

	var conv conversation.Conversation
	var parent sql.NullString
	var stepNumber sql.NullInt64
	var status string
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&conv.ID,
		&conv.TenantID,
		&conv.ProjectID,
		&conv.Agent,
		&parent,
		&stepNumber,
		&status,
		&conv.Version,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if conv.Status, err = conversation.ParseStatus(status); err != nil {
		return nil, err
	}
	if parent.Valid {
		conv.ParentThreadID = &parent.String
	}
	if stepNumber.Valid {
		n := int(stepNumber.Int64)
		conv.StepNumber = &n
	}

	messages, err := r.messages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	conv.Messages = messages

	return &conv, nil
}

// AppendTurn records one chat turn if the stored version still equals
// expectedVersion.
func (r *ConversationRepository) AppendTurn(ctx context.Context, tenantID, id string, expectedVersion int64, update conversation.TurnUpdate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE conversations
		SET status = ?, step_number = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND tenant_id = ? AND version = ?
	`
	result, err := tx.ExecContext(ctx, query,
		update.Status,
		update.StepNumber,
		update.UpdatedAt,
		id,
		tenantID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM conversations WHERE id = ? AND tenant_id = ?`,
			id, tenantID,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check conversation: %w", err)
		}
		if exists == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}

	var next int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_messages WHERE conversation_id = ?`,
		id,
	).Scan(&next)
	if err != nil {
		return fmt.Errorf("failed to get next message sequence: %w", err)
	}

	if err := insertMessages(ctx, tx, id, next, update.Messages); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *ConversationRepository) messages(ctx context.Context, conversationID string) ([]conversation.Message, error) {
	query := `
		SELECT role, content, image_mime_type, created_at
		FROM conversation_messages
		WHERE conversation_id = ?
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := []conversation.Message{}
	for rows.Next() {
		var msg conversation.Message
		if err := rows.Scan(&msg.Role, &msg.Content, &msg.ImageMIMEType, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return messages, nil
}

func insertMessages(ctx context.Context, tx *sql.Tx, conversationID string, firstSeq int64, messages []conversation.Message) error {
	query := `
		INSERT INTO conversation_messages (conversation_id, seq, role, content, image_mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	for i, msg := range messages {
		_, err := tx.ExecContext(ctx, query,
			conversationID,
			firstSeq+int64(i),
			msg.Role,
			msg.Content,
			msg.ImageMIMEType,
			msg.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return nil
}
