package mocks

import (
	"context"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/stretchr/testify/mock"
)

// ProjectRepository is a mock for repository.ProjectRepository.
type ProjectRepository struct {
	mock.Mock
}

func (m *ProjectRepository) Create(ctx context.Context, tenantID string, proj *project.Project) error {
	args := m.Called(ctx, tenantID, proj)
	return args.Error(0)
}

func (m *ProjectRepository) Get(ctx context.Context, tenantID, id string) (*project.Project, error) {
	args := m.Called(ctx, tenantID, id)
	if proj, ok := args.Get(0).(*project.Project); ok {
		return proj, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProjectRepository) List(ctx context.Context, tenantID string) ([]project.ProjectSummary, error) {
	args := m.Called(ctx, tenantID)
	if list, ok := args.Get(0).([]project.ProjectSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// StepRepository is a mock for repository.StepRepository.
type StepRepository struct {
	mock.Mock
}

func (m *StepRepository) List(ctx context.Context, tenantID, projectID string) ([]project.Step, error) {
	args := m.Called(ctx, tenantID, projectID)
	if list, ok := args.Get(0).([]project.Step); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StepRepository) Replace(ctx context.Context, tenantID, projectID string, steps []project.Step) error {
	args := m.Called(ctx, tenantID, projectID, steps)
	return args.Error(0)
}

// ConversationRepository is a mock for repository.ConversationRepository.
type ConversationRepository struct {
	mock.Mock
}

func (m *ConversationRepository) Create(ctx context.Context, tenantID string, conv *conversation.Conversation) error {
	args := m.Called(ctx, tenantID, conv)
	return args.Error(0)
}

func (m *ConversationRepository) Get(ctx context.Context, tenantID, id string) (*conversation.Conversation, error) {
	args := m.Called(ctx, tenantID, id)
	if conv, ok := args.Get(0).(*conversation.Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConversationRepository) AppendTurn(ctx context.Context, tenantID, id string, expectedVersion int64, update conversation.TurnUpdate) error {
	args := m.Called(ctx, tenantID, id, expectedVersion, update)
	return args.Error(0)
}

// Agent is a mock for conversation.Agent.
type Agent struct {
	mock.Mock
}

func (m *Agent) Invoke(ctx context.Context, inv conversation.Invocation) (conversation.Reply, error) {
	args := m.Called(ctx, inv)
	if reply, ok := args.Get(0).(conversation.Reply); ok {
		return reply, args.Error(1)
	}
	return conversation.Reply{}, args.Error(1)
}
