package mcp

import (
	"context"
	"errors"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
	"github.com/rpggio/diyassist/internal/repository"
)

type conversationStub struct {
	initFn    func(context.Context, string, conversation.InitializeRequest) (*conversation.InitializeResult, error)
	sendFn    func(context.Context, string, conversation.SendMessageRequest) (*conversation.SendMessageResult, error)
	historyFn func(context.Context, string, string) ([]conversation.Message, error)
}

func (c conversationStub) Initialize(ctx context.Context, tenantID string, req conversation.InitializeRequest) (*conversation.InitializeResult, error) {
	return c.initFn(ctx, tenantID, req)
}
func (c conversationStub) SendMessage(ctx context.Context, tenantID string, req conversation.SendMessageRequest) (*conversation.SendMessageResult, error) {
	return c.sendFn(ctx, tenantID, req)
}
func (c conversationStub) GetHistory(ctx context.Context, tenantID, threadID string) ([]conversation.Message, error) {
	return c.historyFn(ctx, tenantID, threadID)
}

type projectStub struct {
	createFn func(context.Context, string, project.CreateRequest) (*project.Project, error)
	listFn   func(context.Context, string) ([]project.ProjectSummary, error)
}

func (p projectStub) Create(ctx context.Context, tenantID string, req project.CreateRequest) (*project.Project, error) {
	return p.createFn(ctx, tenantID, req)
}
func (p projectStub) List(ctx context.Context, tenantID string) ([]project.ProjectSummary, error) {
	return p.listFn(ctx, tenantID)
}

type stepStub struct {
	resolveFn func(context.Context, string, string, int) (*step.View, error)
}

func (s stepStub) Resolve(ctx context.Context, tenantID, projectID string, n int) (*step.View, error) {
	return s.resolveFn(ctx, tenantID, projectID, n)
}

func defaultServices() Services {
	return Services{
		Conversations: conversationStub{
			initFn: func(_ context.Context, tenantID string, req conversation.InitializeRequest) (*conversation.InitializeResult, error) {
				if req.ProjectID == "missing" {
					return nil, conversation.ErrProjectNotFound
				}
				return &conversation.InitializeResult{
					ThreadID: "t1",
					Message:  "Hi from " + tenantID,
					Status:   conversation.StatusPending,
					Agent:    conversation.AgentInformationGathering,
				}, nil
			},
			sendFn: func(_ context.Context, _ string, req conversation.SendMessageRequest) (*conversation.SendMessageResult, error) {
				if req.ThreadID == "gone" {
					return nil, conversation.ErrThreadNotFound
				}
				return &conversation.SendMessageResult{Response: "got " + req.Text, Status: conversation.StatusInProgress}, nil
			},
			historyFn: func(_ context.Context, _ string, threadID string) ([]conversation.Message, error) {
				if threadID == "empty" {
					return nil, nil
				}
				return []conversation.Message{
					{Role: conversation.RoleAgent, Content: "Hi"},
					{Role: conversation.RoleUser, Content: "hello"},
				}, nil
			},
		},
		Projects: projectStub{
			createFn: func(_ context.Context, tenantID string, req project.CreateRequest) (*project.Project, error) {
				if req.Name == "" {
					return nil, project.ErrInvalidInput
				}
				return &project.Project{ID: "p1", TenantID: tenantID, Name: req.Name, Tools: req.Tools}, nil
			},
			listFn: func(context.Context, string) ([]project.ProjectSummary, error) {
				return nil, nil
			},
		},
		Steps: stepStub{
			resolveFn: func(_ context.Context, _ string, projectID string, n int) (*step.View, error) {
				target, err := step.Classify(n)
				if err != nil {
					return nil, err
				}
				proj := project.Project{ID: projectID, Name: "Deck"}
				steps := []project.Step{{ProjectID: projectID, Number: 1, Title: "Measure", EstimatedMinutes: 90, Tools: []string{"tape"}}}
				if projectID == "bare" {
					steps[0].Tools = nil
				}
				view := &step.View{Target: target}
				switch target.Kind {
				case step.KindOverview:
					view.Overview = step.Summarize(proj, steps)
				case step.KindToolList:
					view.Tools = step.CollectTools(proj, steps)
				default:
					view.Step = step.Find(steps, target.Number)
					if view.Step == nil {
						return nil, step.ErrStepNotFound
					}
				}
				return view, nil
			},
		},
	}
}

func connect(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(cfg)
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()

	ss, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func structured(t *testing.T, res *sdkmcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, res.IsError, "tool error: %v", res.Content)
	out, ok := res.StructuredContent.(map[string]any)
	require.True(t, ok, "structured content is %T", res.StructuredContent)
	return out
}

func errorText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	require.True(t, res.IsError)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestServer_ListsTools(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices(), TransportMode: "stdio"})

	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"initialize_conversation", "send_message", "get_history",
		"get_step", "list_projects", "create_project",
	}, names)
}

func TestServer_InitializeConversation(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices(), DefaultTenant: "home"})

	out := structured(t, callTool(t, cs, "initialize_conversation", map[string]any{"project_id": "p1"}))
	assert.Equal(t, "t1", out["thread_id"])
	assert.Equal(t, "Hi from home", out["message"])
	assert.Equal(t, "PENDING", out["status"])

	text := errorText(t, callTool(t, cs, "initialize_conversation", map[string]any{"project_id": "missing"}))
	assert.Contains(t, text, "PROJECT_NOT_FOUND")
}

func TestServer_SendMessage(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices()})

	out := structured(t, callTool(t, cs, "send_message", map[string]any{"thread_id": "t1", "text": "hi", "step_number": 0}))
	assert.Equal(t, "got hi", out["response"])
	assert.Equal(t, "IN_PROGRESS", out["status"])

	text := errorText(t, callTool(t, cs, "send_message", map[string]any{"thread_id": "gone", "text": "hi"}))
	assert.Contains(t, text, "THREAD_NOT_FOUND")
}

func TestServer_GetHistory(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices()})

	out := structured(t, callTool(t, cs, "get_history", map[string]any{"thread_id": "t1"}))
	assert.Len(t, out["messages"], 2)

	out = structured(t, callTool(t, cs, "get_history", map[string]any{"thread_id": "empty"}))
	assert.Equal(t, []any{}, out["messages"])
}

func TestServer_GetStep(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices()})

	out := structured(t, callTool(t, cs, "get_step", map[string]any{"project_id": "p1", "step_number": -1}))
	assert.Equal(t, "overview", out["kind"])
	overview := out["overview"].(map[string]any)
	assert.Equal(t, "1 hr 30 min", overview["total_time"])

	out = structured(t, callTool(t, cs, "get_step", map[string]any{"project_id": "p1", "step_number": 0}))
	assert.Equal(t, "tool_list", out["kind"])
	assert.Equal(t, []any{"tape"}, out["tools"])

	out = structured(t, callTool(t, cs, "get_step", map[string]any{"project_id": "bare", "step_number": 0}))
	assert.Equal(t, "tool_list", out["kind"])
	assert.Equal(t, []any{}, out["tools"])

	out = structured(t, callTool(t, cs, "get_step", map[string]any{"project_id": "p1", "step_number": 1}))
	assert.Equal(t, "step", out["kind"])

	text := errorText(t, callTool(t, cs, "get_step", map[string]any{"project_id": "p1", "step_number": -3}))
	assert.Contains(t, text, "INVALID_ARGUMENT")

	text = errorText(t, callTool(t, cs, "get_step", map[string]any{"project_id": "p1", "step_number": 9}))
	assert.Contains(t, text, "STEP_NOT_FOUND")
}

func TestServer_Projects(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices()})

	out := structured(t, callTool(t, cs, "create_project", map[string]any{"name": "Shed"}))
	assert.Equal(t, "p1", out["id"])
	assert.Equal(t, "default", out["tenant_id"])

	text := errorText(t, callTool(t, cs, "create_project", map[string]any{"name": ""}))
	assert.Contains(t, text, "INVALID_ARGUMENT")

	out = structured(t, callTool(t, cs, "list_projects", map[string]any{}))
	assert.Equal(t, []any{}, out["projects"])
}

func TestServer_DocResources(t *testing.T) {
	cs := connect(t, Config{Services: defaultServices()})

	res, err := cs.ReadResource(context.Background(), &sdkmcp.ReadResourceParams{URI: "diyassist://docs/step-addressing"})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Contains(t, res.Contents[0].Text, "tool list")
}

type staticResolver map[string]string

func (r staticResolver) ResolveTenant(_ context.Context, token string) (string, error) {
	if tenant, ok := r[token]; ok {
		return tenant, nil
	}
	return "", repository.ErrNotFound
}

type failingResolver struct{}

func (failingResolver) ResolveTenant(context.Context, string) (string, error) {
	return "", errors.New("database is locked")
}

func TestAuthMiddleware(t *testing.T) {
	var seen string
	next := func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		seen = getTenantID(ctx)
		return &sdkmcp.CallToolResult{}, nil
	}
	handler := authMiddleware(staticResolver{"secret": "acme"})(next)

	withHeader := func(value string) *sdkmcp.CallToolRequest {
		h := http.Header{}
		if value != "" {
			h.Set("Authorization", value)
		}
		return &sdkmcp.CallToolRequest{Extra: &sdkmcp.RequestExtra{Header: h}}
	}

	_, err := handler(context.Background(), "tools/call", withHeader("Bearer secret"))
	require.NoError(t, err)
	assert.Equal(t, "acme", seen)

	_, err = handler(context.Background(), "tools/call", withHeader("Bearer wrong"))
	require.ErrorContains(t, err, "unauthorized")

	_, err = handler(context.Background(), "tools/call", withHeader(""))
	require.ErrorContains(t, err, "missing bearer token")

	_, err = authMiddleware(failingResolver{})(next)(context.Background(), "tools/call", withHeader("Bearer secret"))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "UPSTREAM_ERROR", apiErr.Code)
	assert.NotContains(t, err.Error(), "unauthorized")

	_, err = handler(context.Background(), "tools/call", &sdkmcp.CallToolRequest{})
	require.ErrorContains(t, err, "missing headers")

	seen = ""
	_, err = handler(context.Background(), "initialize", &sdkmcp.CallToolRequest{})
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code string
	}{
		{conversation.ErrInvalidArgument, "INVALID_ARGUMENT"},
		{step.ErrInvalidStepNumber, "INVALID_ARGUMENT"},
		{conversation.ErrThreadNotFound, "THREAD_NOT_FOUND"},
		{project.ErrProjectNotFound, "PROJECT_NOT_FOUND"},
		{conversation.ErrConcurrentUpdate, "CONFLICT"},
		{conversation.ErrUpstream, "UPSTREAM_ERROR"},
		{context.Canceled, "CANCELED"},
		{errors.New("disk on fire"), "INTERNAL"},
	}
	for _, tt := range tests {
		mapped := MapError(tt.err)
		require.NotNil(t, mapped)
		assert.Equal(t, tt.code, mapped.Code)
		assert.ErrorIs(t, mapped, tt.err)
	}
	assert.Nil(t, MapError(nil))
	assert.NoError(t, toolError(nil))
}
