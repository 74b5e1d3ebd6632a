package step

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/repository"
)

// Service resolves step numbers against stored project plans.
type Service struct {
	steps    Repository
	projects ProjectRepository
	logger   *slog.Logger
}

// NewService creates a new step service.
func NewService(steps Repository, projects ProjectRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{steps: steps, projects: projects, logger: logger}
}

// Summary is the overview line for one step.
type Summary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Time   string `json:"time"`
}

// Overview describes a whole plan.
type Overview struct {
	Project      project.Project `json:"project"`
	TotalSteps   int             `json:"total_steps"`
	TotalMinutes int             `json:"total_minutes"`
	TotalTime    string          `json:"total_time"`
	Complexity   Complexity      `json:"complexity"`
	Steps        []Summary       `json:"steps"`
}

// View is the content addressed by a step number. Exactly one of Overview,
// Tools or Step is populated, matching Target.Kind.
type View struct {
	Target   Target        `json:"target"`
	Overview *Overview     `json:"overview,omitempty"`
	Tools    []string      `json:"tools"`
	Step     *project.Step `json:"step,omitempty"`
}

// Resolve classifies stepNumber and loads the addressed content.
func (s *Service) Resolve(ctx context.Context, tenantID, projectID string, stepNumber int) (*View, error) {
	target, err := Classify(stepNumber)
	if err != nil {
		return nil, err
	}

	proj, err := s.projects.Get(ctx, tenantID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}

	steps, err := s.steps.List(ctx, tenantID, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}

	view := &View{Target: target}
	switch target.Kind {
	case KindOverview:
		view.Overview = Summarize(*proj, steps)
	case KindToolList:
		view.Tools = CollectTools(*proj, steps)
		if view.Tools == nil {
			view.Tools = []string{}
		}
	case KindStep:
		found := Find(steps, target.Number)
		if found == nil {
			return nil, fmt.Errorf("%w: %d of %d", ErrStepNotFound, target.Number, len(steps))
		}
		view.Step = found
	}
	return view, nil
}

// List returns the ordered plan for a project.
func (s *Service) List(ctx context.Context, tenantID, projectID string) ([]project.Step, error) {
	if _, err := s.projects.Get(ctx, tenantID, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("loading project: %w", err)
	}
	steps, err := s.steps.List(ctx, tenantID, projectID)
	if err != nil {
		return nil, fmt.Errorf("loading steps: %w", err)
	}
	return steps, nil
}

// ReplaceSteps stores a new ordered plan, renumbering steps from 1 in the
// order given.
func (s *Service) ReplaceSteps(ctx context.Context, tenantID, projectID string, steps []project.Step) ([]project.Step, error) {
	plan := make([]project.Step, 0, len(steps))
	for i, st := range steps {
		if strings.TrimSpace(st.Title) == "" {
			return nil, fmt.Errorf("%w: step %d has no title", ErrInvalidInput, i+1)
		}
		if st.EstimatedMinutes < 0 {
			return nil, fmt.Errorf("%w: step %d has negative duration", ErrInvalidInput, i+1)
		}
		plan = append(plan, project.Step{
			ProjectID:        projectID,
			Number:           i + 1,
			Title:            strings.TrimSpace(st.Title),
			Instructions:     st.Instructions,
			EstimatedMinutes: st.EstimatedMinutes,
			Tools:            project.NormalizeTools(st.Tools),
		})
	}

	if err := s.steps.Replace(ctx, tenantID, projectID, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrForeignKeyViolation) {
			return nil, project.ErrProjectNotFound
		}
		return nil, fmt.Errorf("replacing steps: %w", err)
	}

	s.logger.Info("step plan replaced", "tenant_id", tenantID, "project_id", projectID, "steps", len(plan))
	return plan, nil
}

// Summarize builds the overview for a plan.
func Summarize(proj project.Project, steps []project.Step) *Overview {
	total := 0
	summaries := make([]Summary, 0, len(steps))
	for _, st := range steps {
		total += st.EstimatedMinutes
		summaries = append(summaries, Summary{
			Number: st.Number,
			Title:  st.Title,
			Time:   MinutesToHuman(st.EstimatedMinutes),
		})
	}
	return &Overview{
		Project:      proj,
		TotalSteps:   len(steps),
		TotalMinutes: total,
		TotalTime:    MinutesToHuman(total),
		Complexity:   AssessComplexity(total, len(steps)),
		Steps:        summaries,
	}
}

// CollectTools merges project-level tools with every step's tools.
func CollectTools(proj project.Project, steps []project.Step) []string {
	all := append([]string{}, proj.Tools...)
	for _, st := range steps {
		all = append(all, st.Tools...)
	}
	return project.NormalizeTools(all)
}

// Find returns the step with the given number, or nil.
func Find(steps []project.Step, number int) *project.Step {
	for i := range steps {
		if steps[i].Number == number {
			st := steps[i]
			return &st
		}
	}
	return nil
}
