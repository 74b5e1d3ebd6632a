package conversation

import (
	"fmt"
	"time"
)

// Status is the lifecycle position of a conversation. Statuses are ordered
// PENDING < IN_PROGRESS < COMPLETED and never move backward.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// ParseStatus validates a stored or wire status value.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown conversation status %q", s)
	}
}

func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 1
	case StatusInProgress:
		return 2
	case StatusCompleted:
		return 3
	default:
		return 0
	}
}

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// AgentKind selects which conversational agent drives a thread.
type AgentKind string

const (
	AgentInformationGathering AgentKind = "information_gathering"
	AgentProjectAssistant     AgentKind = "project_assistant"
)

// ParseAgentKind validates an agent kind. Empty selects information gathering.
func ParseAgentKind(s string) (AgentKind, error) {
	switch AgentKind(s) {
	case "":
		return AgentInformationGathering, nil
	case AgentInformationGathering, AgentProjectAssistant:
		return AgentKind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown agent %q", ErrInvalidArgument, s)
	}
}

// Message is one turn in a conversation history.
type Message struct {
	Role          Role      `json:"role"`
	Content       string    `json:"content"`
	ImageMIMEType string    `json:"image_mime_type,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Conversation is a thread of messages between a user and one agent.
type Conversation struct {
	ID             string    `json:"thread_id"`
	TenantID       string    `json:"tenant_id"`
	ProjectID      string    `json:"project_id"`
	Agent          AgentKind `json:"agent"`
	ParentThreadID *string   `json:"parent_thread_id,omitempty"`
	StepNumber     *int      `json:"step_number,omitempty"`
	Status         Status    `json:"status"`
	Messages       []Message `json:"messages"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TurnUpdate is the single write that records one completed chat turn.
type TurnUpdate struct {
	Messages   []Message
	Status     Status
	StepNumber *int
	UpdatedAt  time.Time
}
