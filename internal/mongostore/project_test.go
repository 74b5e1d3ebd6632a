package mongostore

import (
	"context"
	"testing"
	"time"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/repository"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	t.Helper()
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func TestProjectRepository_Create(t *testing.T) {
	mt := newMock(t)

	mt.Run("success", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())
		repo := NewProjectRepository(mt.DB)

		err := repo.Create(context.Background(), "tenant1", &project.Project{
			ID:        "p1",
			Name:      "Deck",
			Tools:     []string{"Drill"},
			CreatedAt: time.Now(),
		})
		require.NoError(mt, err)
	})

	mt.Run("duplicate", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))
		repo := NewProjectRepository(mt.DB)

		err := repo.Create(context.Background(), "tenant1", &project.Project{ID: "p1", Name: "Deck"})
		require.ErrorIs(mt, err, repository.ErrDuplicate)
	})
}

func TestProjectRepository_Get(t *testing.T) {
	mt := newMock(t)

	mt.Run("found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "tenant_id", Value: "tenant1"},
			{Key: "name", Value: "Deck"},
			{Key: "tools", Value: bson.A{"Drill", "Saw"}},
		}))
		repo := NewProjectRepository(mt.DB)

		proj, err := repo.Get(context.Background(), "tenant1", "p1")
		require.NoError(mt, err)
		require.Equal(mt, "p1", proj.ID)
		require.Equal(mt, "Deck", proj.Name)
		require.Equal(mt, []string{"Drill", "Saw"}, proj.Tools)
	})

	mt.Run("missing", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch))
		repo := NewProjectRepository(mt.DB)

		_, err := repo.Get(context.Background(), "tenant1", "nope")
		require.ErrorIs(mt, err, repository.ErrNotFound)
	})
}

func TestProjectRepository_List(t *testing.T) {
	mt := newMock(t)

	mt.Run("totals", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch,
				bson.D{
					{Key: "_id", Value: "p2"},
					{Key: "tenant_id", Value: "tenant1"},
					{Key: "name", Value: "Fence"},
					{Key: "steps", Value: bson.A{}},
				},
				bson.D{
					{Key: "_id", Value: "p1"},
					{Key: "tenant_id", Value: "tenant1"},
					{Key: "name", Value: "Deck"},
					{Key: "steps", Value: bson.A{
						bson.D{{Key: "number", Value: 1}, {Key: "title", Value: "Measure"}, {Key: "estimated_minutes", Value: 30}},
						bson.D{{Key: "number", Value: 2}, {Key: "title", Value: "Cut"}, {Key: "estimated_minutes", Value: 45}},
					}},
				},
			),
			mtest.CreateCursorResponse(0, "test.conversations", mtest.FirstBatch,
				bson.D{{Key: "_id", Value: "p1"}, {Key: "count", Value: 3}},
			),
		)
		repo := NewProjectRepository(mt.DB)

		summaries, err := repo.List(context.Background(), "tenant1")
		require.NoError(mt, err)
		require.Len(mt, summaries, 2)
		require.Equal(mt, "p2", summaries[0].ID)
		require.Equal(mt, 0, summaries[0].StepCount)
		require.Equal(mt, 0, summaries[0].Conversations)
		require.Equal(mt, 2, summaries[1].StepCount)
		require.Equal(mt, 75, summaries[1].TotalMinutes)
		require.Equal(mt, 3, summaries[1].Conversations)
	})

	mt.Run("empty", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch))
		repo := NewProjectRepository(mt.DB)

		summaries, err := repo.List(context.Background(), "tenant1")
		require.NoError(mt, err)
		require.Empty(mt, summaries)
	})
}

func TestStepRepository(t *testing.T) {
	mt := newMock(t)

	mt.Run("list orders by number", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "p1"},
			{Key: "steps", Value: bson.A{
				bson.D{{Key: "number", Value: 2}, {Key: "title", Value: "Paint"}},
				bson.D{{Key: "number", Value: 1}, {Key: "title", Value: "Sand"}, {Key: "tools", Value: bson.A{"Sander"}}},
			}},
		}))
		repo := NewStepRepository(mt.DB)

		steps, err := repo.List(context.Background(), "tenant1", "p1")
		require.NoError(mt, err)
		require.Len(mt, steps, 2)
		require.Equal(mt, "Sand", steps[0].Title)
		require.Equal(mt, []string{"Sander"}, steps[0].Tools)
		require.Equal(mt, "p1", steps[1].ProjectID)
	})

	mt.Run("list missing project", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.projects", mtest.FirstBatch))
		repo := NewStepRepository(mt.DB)

		steps, err := repo.List(context.Background(), "tenant1", "nope")
		require.NoError(mt, err)
		require.Empty(mt, steps)
	})

	mt.Run("replace", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewStepRepository(mt.DB)

		err := repo.Replace(context.Background(), "tenant1", "p1", []project.Step{{Number: 1, Title: "Sand"}})
		require.NoError(mt, err)
	})

	mt.Run("replace missing project", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}))
		repo := NewStepRepository(mt.DB)

		err := repo.Replace(context.Background(), "tenant1", "nope", []project.Step{{Number: 1, Title: "Sand"}})
		require.ErrorIs(mt, err, repository.ErrNotFound)
	})

	mt.Run("replace duplicate numbers", func(mt *mtest.T) {
		repo := NewStepRepository(mt.DB)

		err := repo.Replace(context.Background(), "tenant1", "p1", []project.Step{{Number: 1, Title: "A"}, {Number: 1, Title: "B"}})
		require.ErrorIs(mt, err, repository.ErrDuplicate)
	})
}
