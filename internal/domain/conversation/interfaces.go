package conversation

import (
	"context"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

// Repository provides persistence for conversations.
type Repository interface {
	Create(ctx context.Context, tenantID string, conv *Conversation) error
	Get(ctx context.Context, tenantID, id string) (*Conversation, error)
	// AppendTurn applies update only if the stored version equals
	// expectedVersion, and bumps the version. It returns
	// repository.ErrConflict when the version moved.
	AppendTurn(ctx context.Context, tenantID, id string, expectedVersion int64, update TurnUpdate) error
}

// ProjectRepository provides project lookups.
type ProjectRepository interface {
	Get(ctx context.Context, tenantID, id string) (*project.Project, error)
}

// StepRepository provides the ordered plan for greetings and agent context.
type StepRepository interface {
	List(ctx context.Context, tenantID, projectID string) ([]project.Step, error)
}

// Turn is the user's new input for one chat turn.
type Turn struct {
	Text          string
	Image         []byte
	ImageMIMEType string
}

// Invocation is everything an agent sees for one turn.
type Invocation struct {
	Agent   AgentKind
	Project project.Project
	Target  *step.Target
	Step    *project.Step
	Steps   []project.Step
	History []Message
	Turn    Turn
}

// Reply is an agent's answer to one turn.
type Reply struct {
	Text   string
	Signal Signal
}

// Agent produces replies and completion signals. How it decides a
// conversation is complete is its own business.
type Agent interface {
	Invoke(ctx context.Context, inv Invocation) (Reply, error)
}

// TurnObserver receives per-turn measurements.
type TurnObserver interface {
	ObserveTurn(agent AgentKind, status Status, outcome string, seconds float64)
}
