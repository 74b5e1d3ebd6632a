package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stepDoc struct {
	Number           int      `bson:"number"`
	Title            string   `bson:"title"`
	Instructions     string   `bson:"instructions,omitempty"`
	EstimatedMinutes int      `bson:"estimated_minutes"`
	Tools            []string `bson:"tools,omitempty"`
}

type projectDoc struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenant_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description,omitempty"`
	Tools       []string  `bson:"tools,omitempty"`
	Steps       []stepDoc `bson:"steps"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d projectDoc) toProject() *project.Project {
	return &project.Project{
		ID:          d.ID,
		TenantID:    d.TenantID,
		Name:        d.Name,
		Description: d.Description,
		Tools:       d.Tools,
		CreatedAt:   d.CreatedAt,
	}
}

// ProjectRepository implements storage.ProjectRepository on a projects
// collection. Steps live embedded in the project document.
type ProjectRepository struct {
	projects      *mongo.Collection
	conversations *mongo.Collection
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *mongo.Database) *ProjectRepository {
	return &ProjectRepository{
		projects:      db.Collection(projectsCollection),
		conversations: db.Collection(conversationsCollection),
	}
}

// Create inserts a project with an empty plan
func (r *ProjectRepository) Create(ctx context.Context, tenantID string, proj *project.Project) error {
	doc := projectDoc{
		ID:          proj.ID,
		TenantID:    tenantID,
		Name:        proj.Name,
		Description: proj.Description,
		Tools:       proj.Tools,
		Steps:       []stepDoc{},
		CreatedAt:   proj.CreatedAt,
	}
	if _, err := r.projects.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// Get retrieves a project by ID
func (r *ProjectRepository) Get(ctx context.Context, tenantID, id string) (*project.Project, error) {
	var doc projectDoc
	err := r.projects.FindOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "tenant_id", Value: tenantID}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return doc.toProject(), nil
}

// List returns the tenant's projects newest first with plan and
// conversation totals.
func (r *ProjectRepository) List(ctx context.Context, tenantID string) ([]project.ProjectSummary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.projects.Find(ctx, bson.D{{Key: "tenant_id", Value: tenantID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	var docs []projectDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	counts, err := r.conversationCounts(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summaries := make([]project.ProjectSummary, 0, len(docs))
	for _, doc := range docs {
		minutes := 0
		for _, st := range doc.Steps {
			minutes += st.EstimatedMinutes
		}
		summaries = append(summaries, project.ProjectSummary{
			ID:            doc.ID,
			Name:          doc.Name,
			Description:   doc.Description,
			StepCount:     len(doc.Steps),
			TotalMinutes:  minutes,
			Conversations: counts[doc.ID],
			CreatedAt:     doc.CreatedAt,
		})
	}
	return summaries, nil
}

func (r *ProjectRepository) conversationCounts(ctx context.Context, tenantID string) (map[string]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "tenant_id", Value: tenantID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$project_id"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to count conversations: %w", err)
	}
	var rows []struct {
		ProjectID string `bson:"_id"`
		Count     int    `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode conversation counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.ProjectID] = row.Count
	}
	return counts, nil
}
