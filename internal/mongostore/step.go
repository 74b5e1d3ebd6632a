package mongostore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StepRepository implements storage.StepRepository on the steps array
// embedded in each project document.
type StepRepository struct {
	projects *mongo.Collection
}

// NewStepRepository creates a new StepRepository
func NewStepRepository(db *mongo.Database) *StepRepository {
	return &StepRepository{projects: db.Collection(projectsCollection)}
}

// List returns a project's steps ordered by number. A missing project has no steps.
func (r *StepRepository) List(ctx context.Context, tenantID, projectID string) ([]project.Step, error) {
	var doc projectDoc
	opts := options.FindOne().SetProjection(bson.D{{Key: "steps", Value: 1}})
	err := r.projects.FindOne(ctx, bson.D{{Key: "_id", Value: projectID}, {Key: "tenant_id", Value: tenantID}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list steps: %w", err)
	}

	steps := make([]project.Step, 0, len(doc.Steps))
	for _, st := range doc.Steps {
		steps = append(steps, project.Step{
			ProjectID:        projectID,
			Number:           st.Number,
			Title:            st.Title,
			Instructions:     st.Instructions,
			EstimatedMinutes: st.EstimatedMinutes,
			Tools:            st.Tools,
		})
	}
	slices.SortFunc(steps, func(a, b project.Step) int { return cmp.Compare(a.Number, b.Number) })
	return steps, nil
}

// Replace overwrites the whole plan in a single document update.
func (r *StepRepository) Replace(ctx context.Context, tenantID, projectID string, steps []project.Step) error {
	docs := make([]stepDoc, 0, len(steps))
	seen := make(map[int]bool, len(steps))
	for _, st := range steps {
		if seen[st.Number] {
			return repository.ErrDuplicate
		}
		seen[st.Number] = true
		docs = append(docs, stepDoc{
			Number:           st.Number,
			Title:            st.Title,
			Instructions:     st.Instructions,
			EstimatedMinutes: st.EstimatedMinutes,
			Tools:            st.Tools,
		})
	}

	result, err := r.projects.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: projectID}, {Key: "tenant_id", Value: tenantID}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "steps", Value: docs}}}},
	)
	if err != nil {
		return fmt.Errorf("failed to replace steps: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
