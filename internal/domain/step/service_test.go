package step_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/rpggio/diyassist/internal/repository"
	"github.com/rpggio/diyassist/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func deckPlan() []project.Step {
	return []project.Step{
		{ProjectID: "p1", Number: 1, Title: "Remove boards", EstimatedMinutes: 45, Tools: []string{"Pry bar"}},
		{ProjectID: "p1", Number: 2, Title: "Replace joists", EstimatedMinutes: 90, Tools: []string{"Circular saw", "pry bar"}},
	}
}

func TestStepService_ResolveOverview(t *testing.T) {
	ctx := context.Background()
	steps := &mocks.StepRepository{}
	projects := &mocks.ProjectRepository{}

	projects.On("Get", ctx, "tenant1", "p1").Return(&project.Project{ID: "p1", Name: "Deck"}, nil)
	steps.On("List", ctx, "tenant1", "p1").Return(deckPlan(), nil)

	svc := step.NewService(steps, projects, nil)
	view, err := svc.Resolve(ctx, "tenant1", "p1", -1)
	require.NoError(t, err)
	require.Equal(t, step.KindOverview, view.Target.Kind)
	require.NotNil(t, view.Overview)
	require.Equal(t, 135, view.Overview.TotalMinutes)
	require.Equal(t, "2 hr 15 min", view.Overview.TotalTime)
	require.Equal(t, step.ComplexityModerate, view.Overview.Complexity)
	require.Len(t, view.Overview.Steps, 2)
	require.Equal(t, "45 min", view.Overview.Steps[0].Time)
}

func TestStepService_ResolveToolList(t *testing.T) {
	ctx := context.Background()
	steps := &mocks.StepRepository{}
	projects := &mocks.ProjectRepository{}

	projects.On("Get", ctx, "tenant1", "p1").Return(&project.Project{ID: "p1", Tools: []string{"Gloves"}}, nil)
	steps.On("List", ctx, "tenant1", "p1").Return(deckPlan(), nil)

	svc := step.NewService(steps, projects, nil)
	view, err := svc.Resolve(ctx, "tenant1", "p1", 0)
	require.NoError(t, err)
	require.Equal(t, []string{"Gloves", "Pry bar", "Circular saw"}, view.Tools)
	require.Nil(t, view.Overview)
	require.Nil(t, view.Step)
}

func TestStepService_ResolveEmptyToolList(t *testing.T) {
	ctx := context.Background()
	steps := &mocks.StepRepository{}
	projects := &mocks.ProjectRepository{}

	projects.On("Get", ctx, "tenant1", "p1").Return(&project.Project{ID: "p1"}, nil)
	steps.On("List", ctx, "tenant1", "p1").Return([]project.Step{{ProjectID: "p1", Number: 1, Title: "Look"}}, nil)

	svc := step.NewService(steps, projects, nil)
	view, err := svc.Resolve(ctx, "tenant1", "p1", 0)
	require.NoError(t, err)
	require.NotNil(t, view.Tools)
	require.Empty(t, view.Tools)

	data, err := json.Marshal(view)
	require.NoError(t, err)
	require.Contains(t, string(data), `"tools":[]`)
}

func TestStepService_ResolveStep(t *testing.T) {
	ctx := context.Background()
	steps := &mocks.StepRepository{}
	projects := &mocks.ProjectRepository{}

	projects.On("Get", ctx, "tenant1", "p1").Return(&project.Project{ID: "p1"}, nil)
	steps.On("List", ctx, "tenant1", "p1").Return(deckPlan(), nil)

	svc := step.NewService(steps, projects, nil)
	view, err := svc.Resolve(ctx, "tenant1", "p1", 2)
	require.NoError(t, err)
	require.Equal(t, "Replace joists", view.Step.Title)

	_, err = svc.Resolve(ctx, "tenant1", "p1", 3)
	require.ErrorIs(t, err, step.ErrStepNotFound)
}

func TestStepService_ResolveInvalidNumber(t *testing.T) {
	svc := step.NewService(&mocks.StepRepository{}, &mocks.ProjectRepository{}, nil)
	_, err := svc.Resolve(context.Background(), "tenant1", "p1", -2)
	require.ErrorIs(t, err, step.ErrInvalidStepNumber)
}

func TestStepService_ResolveUnknownProject(t *testing.T) {
	ctx := context.Background()
	projects := &mocks.ProjectRepository{}
	projects.On("Get", ctx, "tenant1", "nope").Return(nil, repository.ErrNotFound)

	svc := step.NewService(&mocks.StepRepository{}, projects, nil)
	_, err := svc.Resolve(ctx, "tenant1", "nope", 1)
	require.ErrorIs(t, err, project.ErrProjectNotFound)
}

func TestStepService_ReplaceStepsRenumbers(t *testing.T) {
	ctx := context.Background()
	steps := &mocks.StepRepository{}
	steps.On("Replace", ctx, "tenant1", "p1", mock.MatchedBy(func(plan []project.Step) bool {
		return len(plan) == 2 && plan[0].Number == 1 && plan[1].Number == 2 && plan[1].ProjectID == "p1"
	})).Return(nil)

	svc := step.NewService(steps, &mocks.ProjectRepository{}, nil)
	plan, err := svc.ReplaceSteps(ctx, "tenant1", "p1", []project.Step{
		{Number: 7, Title: " Sand "},
		{Number: 3, Title: "Stain", EstimatedMinutes: 30},
	})
	require.NoError(t, err)
	require.Equal(t, "Sand", plan[0].Title)
	steps.AssertExpectations(t)
}

func TestStepService_ReplaceStepsValidation(t *testing.T) {
	svc := step.NewService(&mocks.StepRepository{}, &mocks.ProjectRepository{}, nil)
	_, err := svc.ReplaceSteps(context.Background(), "tenant1", "p1", []project.Step{{Title: ""}})
	require.ErrorIs(t, err, step.ErrInvalidInput)

	_, err = svc.ReplaceSteps(context.Background(), "tenant1", "p1", []project.Step{{Title: "x", EstimatedMinutes: -1}})
	require.ErrorIs(t, err, step.ErrInvalidInput)
}
