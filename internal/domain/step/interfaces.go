package step

import (
	"context"

	"github.com/rpggio/diyassist/internal/domain/project"
)

// Repository provides persistence for ordered project steps.
type Repository interface {
	List(ctx context.Context, tenantID, projectID string) ([]project.Step, error)
	Replace(ctx context.Context, tenantID, projectID string, steps []project.Step) error
}

// ProjectRepository provides project lookups for overviews.
type ProjectRepository interface {
	Get(ctx context.Context, tenantID, id string) (*project.Project, error)
}
