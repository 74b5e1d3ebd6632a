package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

// InitializeConversationParams opens a thread.
type InitializeConversationParams struct {
	ProjectID  string `json:"project_id" jsonschema:"project the conversation is about"`
	Agent      string `json:"agent,omitempty" jsonschema:"information_gathering (default) or project_assistant"`
	ThreadID   string `json:"thread_id,omitempty" jsonschema:"parent thread, required for project_assistant"`
	StepNumber *int   `json:"step_number,omitempty" jsonschema:"step to focus: -1 overview, 0 tool list, n for step n"`
}

// SendMessageParams is one user turn.
type SendMessageParams struct {
	ThreadID      string `json:"thread_id"`
	Text          string `json:"text,omitempty"`
	ImageBase64   string `json:"image_base64,omitempty" jsonschema:"base64 encoded photo"`
	ImageMIMEType string `json:"image_mime_type,omitempty" jsonschema:"MIME type of the photo, required with image_base64"`
	StepNumber    *int   `json:"step_number,omitempty" jsonschema:"project_assistant threads only: refocus on this step before replying"`
}

// GetHistoryParams selects a thread.
type GetHistoryParams struct {
	ThreadID string `json:"thread_id"`
}

// HistoryResponse lists a thread's messages in order.
type HistoryResponse struct {
	ThreadID string                 `json:"thread_id"`
	Messages []conversation.Message `json:"messages"`
}

// GetStepParams addresses part of a project plan.
type GetStepParams struct {
	ProjectID  string `json:"project_id"`
	StepNumber int    `json:"step_number" jsonschema:"-1 overview, 0 tool list, n for step n"`
}

// StepResponse is the content at a step number. Kind tells which of the
// optional fields is set.
type StepResponse struct {
	Kind     string         `json:"kind"`
	Number   int            `json:"number,omitempty"`
	Overview *step.Overview `json:"overview,omitempty"`
	Tools    []string       `json:"tools"`
	Step     *project.Step  `json:"step,omitempty"`
}

// ListProjectsParams is empty.
type ListProjectsParams struct{}

// ListProjectsResponse lists a tenant's projects.
type ListProjectsResponse struct {
	Projects []project.ProjectSummary `json:"projects"`
}

// CreateProjectParams creates a project.
type CreateProjectParams struct {
	ID          string   `json:"id,omitempty" jsonschema:"optional id, generated when omitted"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tools       []string `json:"tools,omitempty" jsonschema:"tools the whole project needs"`
}

func registerTools(server *sdkmcp.Server, svc Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "initialize_conversation",
		Description: "Start a conversation thread with the information gathering or project assistant agent",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in InitializeConversationParams) (*sdkmcp.CallToolResult, conversation.InitializeResult, error) {
		res, err := svc.Conversations.Initialize(ctx, getTenantID(ctx), conversation.InitializeRequest{
			ProjectID:  in.ProjectID,
			Agent:      conversation.AgentKind(in.Agent),
			ThreadID:   in.ThreadID,
			StepNumber: in.StepNumber,
		})
		if err != nil {
			return nil, conversation.InitializeResult{}, toolError(err)
		}
		return nil, *res, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "send_message",
		Description: "Send text and optionally a photo to a thread and get the agent's reply",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in SendMessageParams) (*sdkmcp.CallToolResult, conversation.SendMessageResult, error) {
		res, err := svc.Conversations.SendMessage(ctx, getTenantID(ctx), conversation.SendMessageRequest{
			ThreadID:      in.ThreadID,
			Text:          in.Text,
			ImageBase64:   in.ImageBase64,
			ImageMIMEType: in.ImageMIMEType,
			StepNumber:    in.StepNumber,
		})
		if err != nil {
			return nil, conversation.SendMessageResult{}, toolError(err)
		}
		return nil, *res, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_history",
		Description: "List every message in a thread, oldest first",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetHistoryParams) (*sdkmcp.CallToolResult, HistoryResponse, error) {
		messages, err := svc.Conversations.GetHistory(ctx, getTenantID(ctx), in.ThreadID)
		if err != nil {
			return nil, HistoryResponse{}, toolError(err)
		}
		if messages == nil {
			messages = []conversation.Message{}
		}
		return nil, HistoryResponse{ThreadID: in.ThreadID, Messages: messages}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_step",
		Description: "Read a project's overview (-1), tool list (0) or a numbered step",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetStepParams) (*sdkmcp.CallToolResult, StepResponse, error) {
		view, err := svc.Steps.Resolve(ctx, getTenantID(ctx), in.ProjectID, in.StepNumber)
		if err != nil {
			return nil, StepResponse{}, toolError(err)
		}
		tools := view.Tools
		if tools == nil {
			tools = []string{}
		}
		return nil, StepResponse{
			Kind:     view.Target.Kind.String(),
			Number:   view.Target.Number,
			Overview: view.Overview,
			Tools:    tools,
			Step:     view.Step,
		}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List all projects for the current tenant",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsParams) (*sdkmcp.CallToolResult, ListProjectsResponse, error) {
		projects, err := svc.Projects.List(ctx, getTenantID(ctx))
		if err != nil {
			return nil, ListProjectsResponse{}, toolError(err)
		}
		if projects == nil {
			projects = []project.ProjectSummary{}
		}
		return nil, ListProjectsResponse{Projects: projects}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "create_project",
		Description: "Create a home-improvement project",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in CreateProjectParams) (*sdkmcp.CallToolResult, project.Project, error) {
		proj, err := svc.Projects.Create(ctx, getTenantID(ctx), project.CreateRequest{
			ID:          in.ID,
			Name:        in.Name,
			Description: in.Description,
			Tools:       in.Tools,
		})
		if err != nil {
			return nil, project.Project{}, toolError(err)
		}
		return nil, *proj, nil
	})
}
