package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/rpggio/diyassist/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("diyassist/conversation")

// Service drives the conversation lifecycle.
type Service struct {
	conversations Repository
	projects      ProjectRepository
	steps         StepRepository
	agent         Agent
	observer      TurnObserver
	locks         *threadLocks
	logger        *slog.Logger
	now           func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithObserver reports each turn's outcome.
func WithObserver(observer TurnObserver) Option {
	return func(s *Service) { s.observer = observer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new conversation service.
func NewService(
	conversations Repository,
	projects ProjectRepository,
	steps StepRepository,
	agent Agent,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		conversations: conversations,
		projects:      projects,
		steps:         steps,
		agent:         agent,
		locks:         newThreadLocks(),
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeRequest opens a new thread.
type InitializeRequest struct {
	ProjectID string
	Agent     AgentKind
	// ThreadID and StepNumber are required for the project assistant.
	ThreadID   string
	StepNumber *int
}

// InitializeResult describes the new thread.
type InitializeResult struct {
	ThreadID string    `json:"thread_id"`
	Message  string    `json:"message"`
	Status   Status    `json:"status"`
	Agent    AgentKind `json:"agent"`
}

// SendMessageRequest is one user turn.
type SendMessageRequest struct {
	ThreadID      string
	Text          string
	ImageBase64   string
	ImageMIMEType string
	StepNumber    *int
}

// SendMessageResult is the agent's reply and the resulting status.
type SendMessageResult struct {
	Response string `json:"response"`
	Status   Status `json:"status"`
}

// Initialize creates a new PENDING thread seeded with the agent's greeting.
func (s *Service) Initialize(ctx context.Context, tenantID string, req InitializeRequest) (*InitializeResult, error) {
	ctx, span := tracer.Start(ctx, "conversation.Initialize")
	defer span.End()

	kind, err := ParseAgentKind(string(req.Agent))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.ProjectID) == "" {
		return nil, fmt.Errorf("%w: project_id is required", ErrInvalidArgument)
	}

	var target *step.Target
	if kind == AgentProjectAssistant {
		if strings.TrimSpace(req.ThreadID) == "" {
			return nil, fmt.Errorf("%w: thread_id is required for the project assistant", ErrInvalidArgument)
		}
		if req.StepNumber == nil {
			return nil, fmt.Errorf("%w: step_number is required for the project assistant", ErrInvalidArgument)
		}
		t, err := step.Classify(*req.StepNumber)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		target = &t
	}
	span.SetAttributes(attribute.String("agent", string(kind)), attribute.String("project_id", req.ProjectID))

	var (
		proj   *project.Project
		parent *Conversation
		steps  []project.Step
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.projects.Get(gctx, tenantID, req.ProjectID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("%w: loading project: %w", ErrUpstream, err)
		}
		proj = p
		return nil
	})
	if kind == AgentProjectAssistant {
		g.Go(func() error {
			c, err := s.conversations.Get(gctx, tenantID, req.ThreadID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrThreadNotFound
				}
				return fmt.Errorf("%w: loading thread: %w", ErrUpstream, err)
			}
			parent = c
			return nil
		})
		g.Go(func() error {
			list, err := s.steps.List(gctx, tenantID, req.ProjectID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				return fmt.Errorf("%w: loading steps: %w", ErrUpstream, err)
			}
			steps = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if parent != nil && parent.ProjectID != proj.ID {
		return nil, fmt.Errorf("%w: thread %s belongs to another project", ErrInvalidArgument, parent.ID)
	}

	var current *project.Step
	if target != nil && target.Kind == step.KindStep {
		current = step.Find(steps, target.Number)
		if current == nil {
			return nil, fmt.Errorf("%w: step %d", step.ErrStepNotFound, target.Number)
		}
	}

	now := s.now()
	conv := &Conversation{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ProjectID: proj.ID,
		Agent:     kind,
		Status:    StatusPending,
		Messages: []Message{{
			Role:      RoleAgent,
			Content:   greeting(kind, *proj, target, current),
			CreatedAt: now,
		}},
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parent != nil {
		conv.ParentThreadID = &parent.ID
	}
	if target != nil {
		n := target.StepNumber()
		conv.StepNumber = &n
	}

	if err := s.conversations.Create(ctx, tenantID, conv); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%w: creating conversation: %w", ErrUpstream, err)
	}

	s.logger.Info("conversation initialized",
		"tenant_id", tenantID,
		"thread_id", conv.ID,
		"project_id", conv.ProjectID,
		"agent", kind,
	)
	return &InitializeResult{
		ThreadID: conv.ID,
		Message:  conv.Messages[0].Content,
		Status:   conv.Status,
		Agent:    kind,
	}, nil
}

// SendMessage appends a user turn, asks the agent for a reply and persists
// both turns together with the next status. Nothing is written when any
// step fails.
func (s *Service) SendMessage(ctx context.Context, tenantID string, req SendMessageRequest) (*SendMessageResult, error) {
	ctx, span := tracer.Start(ctx, "conversation.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("thread_id", req.ThreadID))

	started := time.Now()
	result, kind, err := s.sendMessage(ctx, tenantID, req)
	if err != nil {
		recordSpanError(span, err)
		s.observe(kind, "", outcomeFor(err), started)
		return nil, err
	}
	s.observe(kind, result.Status, "ok", started)
	return result, nil
}

func (s *Service) sendMessage(ctx context.Context, tenantID string, req SendMessageRequest) (*SendMessageResult, AgentKind, error) {
	if strings.TrimSpace(req.ThreadID) == "" {
		return nil, "", fmt.Errorf("%w: thread_id is required", ErrInvalidArgument)
	}
	turn, err := parseTurn(req.Text, req.ImageBase64, req.ImageMIMEType)
	if err != nil {
		return nil, "", err
	}
	var target *step.Target
	if req.StepNumber != nil {
		t, err := step.Classify(*req.StepNumber)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}
		target = &t
	}

	unlock := s.locks.lock(req.ThreadID)
	defer unlock()

	conv, err := s.conversations.Get(ctx, tenantID, req.ThreadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrThreadNotFound
		}
		return nil, "", fmt.Errorf("%w: loading thread: %w", ErrUpstream, err)
	}
	if target != nil && conv.Agent != AgentProjectAssistant {
		return nil, conv.Agent, fmt.Errorf("%w: step_number applies to %s threads only", ErrInvalidArgument, AgentProjectAssistant)
	}

	proj, err := s.projects.Get(ctx, tenantID, conv.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, conv.Agent, ErrProjectNotFound
		}
		return nil, conv.Agent, fmt.Errorf("%w: loading project: %w", ErrUpstream, err)
	}
	steps, err := s.steps.List(ctx, tenantID, conv.ProjectID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, conv.Agent, fmt.Errorf("%w: loading steps: %w", ErrUpstream, err)
	}

	stepNumber := conv.StepNumber
	if target != nil {
		n := target.StepNumber()
		stepNumber = &n
	} else if stepNumber != nil {
		if t, err := step.Classify(*stepNumber); err == nil {
			target = &t
		}
	}
	var current *project.Step
	if target != nil && target.Kind == step.KindStep {
		current = step.Find(steps, target.Number)
	}

	now := s.now()
	userMsg := Message{
		Role:          RoleUser,
		Content:       turn.Text,
		ImageMIMEType: turn.ImageMIMEType,
		CreatedAt:     now,
	}

	reply, err := s.agent.Invoke(ctx, Invocation{
		Agent:   conv.Agent,
		Project: *proj,
		Target:  target,
		Step:    current,
		Steps:   steps,
		History: append([]Message(nil), conv.Messages...),
		Turn:    turn,
	})
	if err != nil {
		return nil, conv.Agent, fmt.Errorf("%w: invoking agent: %w", ErrUpstream, err)
	}
	signal, err := ParseSignal(string(reply.Signal))
	if err != nil {
		return nil, conv.Agent, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	next := NextStatus(conv.Status, signal)
	if conv.Status == StatusCompleted && signal != SignalComplete {
		s.logger.Debug("ignoring continue signal on completed thread", "thread_id", conv.ID)
	}

	if err := ctx.Err(); err != nil {
		return nil, conv.Agent, fmt.Errorf("turn abandoned before saving: %w", err)
	}

	update := TurnUpdate{
		Messages: []Message{
			userMsg,
			{Role: RoleAgent, Content: reply.Text, CreatedAt: s.now()},
		},
		Status:     next,
		StepNumber: stepNumber,
		UpdatedAt:  s.now(),
	}
	if err := s.conversations.AppendTurn(ctx, tenantID, conv.ID, conv.Version, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, conv.Agent, ErrConcurrentUpdate
		case errors.Is(err, repository.ErrNotFound):
			return nil, conv.Agent, ErrThreadNotFound
		default:
			return nil, conv.Agent, fmt.Errorf("%w: saving turn: %w", ErrUpstream, err)
		}
	}

	if next != conv.Status {
		s.logger.Info("conversation status changed",
			"tenant_id", tenantID,
			"thread_id", conv.ID,
			"from", conv.Status,
			"to", next,
		)
	}
	return &SendMessageResult{Response: reply.Text, Status: next}, conv.Agent, nil
}

// GetHistory returns a thread's messages in order.
func (s *Service) GetHistory(ctx context.Context, tenantID, threadID string) ([]Message, error) {
	conv, err := s.Get(ctx, tenantID, threadID)
	if err != nil {
		return nil, err
	}
	return conv.Messages, nil
}

// Get returns a thread with its messages.
func (s *Service) Get(ctx context.Context, tenantID, threadID string) (*Conversation, error) {
	if strings.TrimSpace(threadID) == "" {
		return nil, fmt.Errorf("%w: thread_id is required", ErrInvalidArgument)
	}
	conv, err := s.conversations.Get(ctx, tenantID, threadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, fmt.Errorf("%w: loading thread: %w", ErrUpstream, err)
	}
	return conv, nil
}

func (s *Service) observe(kind AgentKind, status Status, outcome string, started time.Time) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveTurn(kind, status, outcome, time.Since(started).Seconds())
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrThreadNotFound), errors.Is(err, ErrProjectNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentUpdate):
		return "conflict"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "upstream_error"
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
