package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

// APIError is the error a tool call reports back to the client.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
	cause        error
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	mapped := func(code, hint string) *APIError {
		return &APIError{Code: code, Message: err.Error(), RecoveryHint: hint, cause: err}
	}
	switch {
	case errors.Is(err, conversation.ErrInvalidArgument),
		errors.Is(err, project.ErrInvalidInput),
		errors.Is(err, step.ErrInvalidInput):
		return mapped("INVALID_ARGUMENT", "Fix the arguments and retry")
	case errors.Is(err, step.ErrInvalidStepNumber):
		return mapped("INVALID_ARGUMENT", "Use -1 for the overview, 0 for tools, or a step number from 1")
	case errors.Is(err, conversation.ErrThreadNotFound):
		return mapped("THREAD_NOT_FOUND", "Call initialize_conversation to start a thread")
	case errors.Is(err, project.ErrProjectNotFound):
		return mapped("PROJECT_NOT_FOUND", "Call list_projects to find a valid id")
	case errors.Is(err, step.ErrStepNotFound):
		return mapped("STEP_NOT_FOUND", "Call get_step with -1 to see the plan")
	case errors.Is(err, conversation.ErrConcurrentUpdate):
		return mapped("CONFLICT", "Fetch the history and resend")
	case errors.Is(err, conversation.ErrUpstream):
		return mapped("UPSTREAM_ERROR", "Retry later")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return mapped("CANCELED", "")
	default:
		return &APIError{Code: "INTERNAL", Message: "internal error", cause: err}
	}
}

// toolError converts err for return from a tool handler.
func toolError(err error) error {
	if err == nil {
		return nil
	}
	return MapError(err)
}
