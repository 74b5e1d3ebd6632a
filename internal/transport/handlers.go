package transport

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rpggio/diyassist/internal/domain/conversation"
)

// bind decodes the JSON body into req and validates it. On failure the
// error response has already been written.
func (h *handlers) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.respondError(c, fmt.Errorf("%w: malformed JSON body: %v", conversation.ErrInvalidArgument, err))
		return false
	}
	if err := validateRequest(req); err != nil {
		h.respondError(c, err)
		return false
	}
	return true
}

func (h *handlers) initialize(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	var req InitializeRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.deps.Conversations.Initialize(c.Request.Context(), tenantID, req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) sendMessage(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.deps.Conversations.SendMessage(c.Request.Context(), tenantID, req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) history(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	threadID := c.Param("threadID")

	messages, err := h.deps.Conversations.GetHistory(c.Request.Context(), tenantID, threadID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	c.JSON(http.StatusOK, gin.H{"thread_id": threadID, "messages": messages})
}

func (h *handlers) getConversation(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	conv, err := h.deps.Conversations.Get(c.Request.Context(), tenantID, c.Param("threadID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *handlers) createProject(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	var req CreateProjectRequest
	if !h.bind(c, &req) {
		return
	}

	proj, err := h.deps.Projects.Create(c.Request.Context(), tenantID, req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, proj)
}

func (h *handlers) listProjects(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	projects, err := h.deps.Projects.List(c.Request.Context(), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

func (h *handlers) getProject(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	proj, err := h.deps.Projects.Get(c.Request.Context(), tenantID, c.Param("projectID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, proj)
}

func (h *handlers) listSteps(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	steps, err := h.deps.Steps.List(c.Request.Context(), tenantID, c.Param("projectID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

func (h *handlers) replaceSteps(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	var req ReplaceStepsRequest
	if !h.bind(c, &req) {
		return
	}

	steps, err := h.deps.Steps.ReplaceSteps(c.Request.Context(), tenantID, c.Param("projectID"), req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"steps": steps})
}

func (h *handlers) getStep(c *gin.Context) {
	tenantID, ok := tenantOf(c)
	if !ok {
		return
	}
	number, err := strconv.Atoi(c.Param("stepNumber"))
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: step number %q is not an integer", conversation.ErrInvalidArgument, c.Param("stepNumber")))
		return
	}

	view, err := h.deps.Steps.Resolve(c.Request.Context(), tenantID, c.Param("projectID"), number)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) detectTools(c *gin.Context) {
	var req DetectRequest
	if !h.bind(c, &req) {
		return
	}
	image, err := req.decode()
	if err != nil {
		h.respondError(c, err)
		return
	}

	tools, err := h.deps.Detector.Detect(c.Request.Context(), image)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

func (h *handlers) generateImage(c *gin.Context) {
	var req GenerateImageRequest
	if !h.bind(c, &req) {
		return
	}

	image, err := h.deps.Images.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		h.respondError(c, fmt.Errorf("%w: %w", conversation.ErrUpstream, err))
		return
	}
	c.JSON(http.StatusOK, image)
}
