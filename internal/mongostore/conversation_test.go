package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/repository"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func sampleTurn() conversation.TurnUpdate {
	now := time.Now().UTC()
	return conversation.TurnUpdate{
		Messages: []conversation.Message{
			{Role: conversation.RoleUser, Content: "The tap drips", CreatedAt: now},
			{Role: conversation.RoleAgent, Content: "Which room?", CreatedAt: now},
		},
		Status:    conversation.StatusInProgress,
		UpdatedAt: now,
	}
}

func TestConversationRepository_Create(t *testing.T) {
	mt := newMock(t)

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
			mtest.CreateSuccessResponse(),
		)
		repo := NewConversationRepository(mt.DB)

		err := repo.Create(context.Background(), "tenant1", &conversation.Conversation{
			ID:        "c1",
			ProjectID: "p1",
			Agent:     conversation.AgentInformationGathering,
			Status:    conversation.StatusPending,
			Messages:  []conversation.Message{{Role: conversation.RoleAgent, Content: "Hi"}},
			Version:   1,
		})
		require.NoError(mt, err)
	})

	mt.Run("unknown project", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch))
		repo := NewConversationRepository(mt.DB)

		err := repo.Create(context.Background(), "tenant1", &conversation.Conversation{ID: "c1", ProjectID: "missing"})
		require.ErrorIs(mt, err, repository.ErrForeignKeyViolation)
	})
}

func TestConversationRepository_Get(t *testing.T) {
	mt := newMock(t)

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "c1"},
			{Key: "tenant_id", Value: "tenant1"},
			{Key: "project_id", Value: "p1"},
			{Key: "agent", Value: "project_assistant"},
			{Key: "parent_thread_id", Value: "c0"},
			{Key: "step_number", Value: 0},
			{Key: "status", Value: "IN_PROGRESS"},
			{Key: "version", Value: int64(4)},
			{Key: "messages", Value: bson.A{
				bson.D{{Key: "role", Value: "agent"}, {Key: "content", Value: "Hi"}},
				bson.D{{Key: "role", Value: "user"}, {Key: "content", Value: "Photo"}, {Key: "image_mime_type", Value: "image/png"}},
			}},
		}))
		repo := NewConversationRepository(mt.DB)

		conv, err := repo.Get(context.Background(), "tenant1", "c1")
		require.NoError(mt, err)
		require.Equal(mt, conversation.StatusInProgress, conv.Status)
		require.Equal(mt, conversation.AgentProjectAssistant, conv.Agent)
		require.Equal(mt, "c0", *conv.ParentThreadID)
		require.Equal(mt, 0, *conv.StepNumber)
		require.Equal(mt, int64(4), conv.Version)
		require.Len(mt, conv.Messages, 2)
		require.Equal(mt, conversation.RoleUser, conv.Messages[1].Role)
		require.Equal(mt, "image/png", conv.Messages[1].ImageMIMEType)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch))
		repo := NewConversationRepository(mt.DB)

		_, err := repo.Get(context.Background(), "tenant1", "nope")
		require.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("corrupt status", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "c1"},
			{Key: "status", Value: "ARCHIVED"},
		}))
		repo := NewConversationRepository(mt.DB)

		_, err := repo.Get(context.Background(), "tenant1", "c1")
		require.Error(mt, err)
	})
}

func TestConversationRepository_AppendTurn(t *testing.T) {
	mt := newMock(t)

	mt.Run("applied", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewConversationRepository(mt.DB)

		err := repo.AppendTurn(context.Background(), "tenant1", "c1", 2, sampleTurn())
		require.NoError(mt, err)
	})

	mt.Run("stale version", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		repo := NewConversationRepository(mt.DB)

		err := repo.AppendTurn(context.Background(), "tenant1", "c1", 1, sampleTurn())
		require.ErrorIs(mt, err, repository.ErrConflict)
	})

	mt.Run("missing thread", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch),
		)
		repo := NewConversationRepository(mt.DB)

		err := repo.AppendTurn(context.Background(), "tenant1", "nope", 1, sampleTurn())
		require.ErrorIs(mt, err, repository.ErrNotFound)
	})
}
