// Package transport exposes the assistant over HTTP with gin.
package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rpggio/diyassist/internal/agent"
	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

// ConversationService drives chat threads.
type ConversationService interface {
	Initialize(ctx context.Context, tenantID string, req conversation.InitializeRequest) (*conversation.InitializeResult, error)
	SendMessage(ctx context.Context, tenantID string, req conversation.SendMessageRequest) (*conversation.SendMessageResult, error)
	GetHistory(ctx context.Context, tenantID, threadID string) ([]conversation.Message, error)
	Get(ctx context.Context, tenantID, threadID string) (*conversation.Conversation, error)
}

// ProjectService manages projects.
type ProjectService interface {
	Create(ctx context.Context, tenantID string, req project.CreateRequest) (*project.Project, error)
	Get(ctx context.Context, tenantID, id string) (*project.Project, error)
	List(ctx context.Context, tenantID string) ([]project.ProjectSummary, error)
}

// StepService resolves and stores step plans.
type StepService interface {
	Resolve(ctx context.Context, tenantID, projectID string, stepNumber int) (*step.View, error)
	List(ctx context.Context, tenantID, projectID string) ([]project.Step, error)
	ReplaceSteps(ctx context.Context, tenantID, projectID string, steps []project.Step) ([]project.Step, error)
}

// ToolDetector recognizes tools in a photo.
type ToolDetector interface {
	Detect(ctx context.Context, image []byte) ([]agent.DetectedTool, error)
}

// ImageGenerator renders an illustration from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*agent.GeneratedImage, error)
}

// Deps is everything the router needs. Detector, Images, Metrics, MCP and
// Resolver are optional.
type Deps struct {
	Conversations ConversationService
	Projects      ProjectService
	Steps         StepService
	Detector      ToolDetector
	Images        ImageGenerator

	// Resolver enables bearer auth; without it every request belongs to
	// DefaultTenant.
	Resolver      TenantResolver
	DefaultTenant string

	RateLimitRPS   float64
	RateLimitBurst int

	Metrics     RequestRecorder
	MetricsPage http.Handler
	MCP         http.Handler

	ServiceName string
	Logger      *slog.Logger
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

// NewRouter builds the HTTP API.
func NewRouter(deps Deps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	serviceName := deps.ServiceName
	if serviceName == "" {
		serviceName = "diyassist"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(RequestLogger(logger))
	if deps.Metrics != nil {
		r.Use(RequestMetrics(deps.Metrics))
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	if deps.MetricsPage != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsPage))
	}
	if deps.MCP != nil {
		// The MCP server authenticates its own requests.
		r.Any("/mcp", gin.WrapH(deps.MCP))
	}

	h := &handlers{deps: deps, logger: logger}

	api := r.Group("/")
	if deps.Resolver != nil {
		api.Use(AuthMiddleware(deps.Resolver))
	} else {
		api.Use(StaticTenant(deps.DefaultTenant))
	}
	api.Use(RateLimit(deps.RateLimitRPS, deps.RateLimitBurst, deps.Metrics))

	api.POST("/initialize", h.initialize)
	api.POST("/message", h.sendMessage)
	api.GET("/history/:threadID", h.history)

	v1 := api.Group("/v1")
	{
		conv := v1.Group("/conversations")
		conv.POST("/initialize", h.initialize)
		conv.POST("/message", h.sendMessage)
		conv.GET("/:threadID", h.getConversation)
		conv.GET("/:threadID/history", h.history)

		projects := v1.Group("/projects")
		projects.POST("", h.createProject)
		projects.GET("", h.listProjects)
		projects.GET("/:projectID", h.getProject)
		projects.GET("/:projectID/steps", h.listSteps)
		projects.PUT("/:projectID/steps", h.replaceSteps)
		projects.GET("/:projectID/steps/:stepNumber", h.getStep)

		if deps.Detector != nil {
			v1.POST("/tools/detect", h.detectTools)
		}
		if deps.Images != nil {
			v1.POST("/images/generate", h.generateImage)
		}
	}

	return r
}
