package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rpggio/diyassist/internal/agent"
	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

// statusClientClosedRequest is the non-standard status for a caller that
// went away before the response was ready.
const statusClientClosedRequest = 499

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusFor maps a domain error to an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, conversation.ErrInvalidArgument),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, step.ErrInvalidStepNumber),
		errors.Is(err, step.ErrInvalidInput),
		errors.Is(err, agent.ErrEmptyPrompt),
		errors.Is(err, agent.ErrNotAnImage):
		return http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, conversation.ErrThreadNotFound),
		errors.Is(err, project.ErrProjectNotFound),
		errors.Is(err, step.ErrStepNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, conversation.ErrConcurrentUpdate):
		return http.StatusConflict, "conflict"
	case errors.Is(err, conversation.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, errorBody{Error: code, Message: message})
}

// respondError writes err with its mapped status. Server-side failures are
// logged and their detail is withheld from the client.
func (h *handlers) respondError(c *gin.Context, err error) {
	status, code := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	}
	_ = c.Error(err)
	abortWithError(c, status, code, message)
}
