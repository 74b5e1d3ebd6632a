package transport

import (
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

const (
	// MaxTextBytes bounds a single chat message.
	MaxTextBytes = 32 * 1024
	// MaxImageBase64Bytes bounds an encoded image upload.
	MaxImageBase64Bytes = 8 * 1024 * 1024
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
	_ = validate.RegisterValidation("maximage", validateMaxImage)
	_ = validate.RegisterValidation("stepnumber", validateStepNumber)
}

func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxTextBytes
}

func validateMaxImage(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxImageBase64Bytes
}

// validateStepNumber accepts the overview (-1), the tool list (0) and any
// positive step.
func validateStepNumber(fl validator.FieldLevel) bool {
	return fl.Field().Int() >= int64(step.OverviewNumber)
}

// InitializeRequest is the body of POST /initialize.
type InitializeRequest struct {
	ProjectID  string `json:"project_id" validate:"required,max=128"`
	Agent      string `json:"agent" validate:"omitempty,oneof=information_gathering project_assistant"`
	ThreadID   string `json:"thread_id" validate:"omitempty,max=128"`
	StepNumber *int   `json:"step_number" validate:"omitempty,stepnumber"`
}

func (r InitializeRequest) toDomain() conversation.InitializeRequest {
	return conversation.InitializeRequest{
		ProjectID:  strings.TrimSpace(r.ProjectID),
		Agent:      conversation.AgentKind(r.Agent),
		ThreadID:   strings.TrimSpace(r.ThreadID),
		StepNumber: r.StepNumber,
	}
}

// SendMessageRequest is the body of POST /message.
type SendMessageRequest struct {
	ThreadID      string `json:"thread_id" validate:"required,max=128"`
	Text          string `json:"text" validate:"required_without=ImageBase64,maxbytes"`
	ImageBase64   string `json:"image_base64" validate:"omitempty,maximage"`
	ImageMIMEType string `json:"image_mime_type" validate:"required_with=ImageBase64,max=255"`
	StepNumber    *int   `json:"step_number" validate:"omitempty,stepnumber"`
}

func (r SendMessageRequest) toDomain() conversation.SendMessageRequest {
	return conversation.SendMessageRequest{
		ThreadID:      strings.TrimSpace(r.ThreadID),
		Text:          r.Text,
		ImageBase64:   r.ImageBase64,
		ImageMIMEType: r.ImageMIMEType,
		StepNumber:    r.StepNumber,
	}
}

// CreateProjectRequest is the body of POST /v1/projects.
type CreateProjectRequest struct {
	ID          string   `json:"id" validate:"omitempty,max=128"`
	Name        string   `json:"name" validate:"required,max=256"`
	Description string   `json:"description" validate:"maxbytes"`
	Tools       []string `json:"tools" validate:"max=200,dive,max=128"`
}

func (r CreateProjectRequest) toDomain() project.CreateRequest {
	return project.CreateRequest{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Tools:       r.Tools,
	}
}

// StepInput is one step in a replacement plan. Steps are numbered by
// position.
type StepInput struct {
	Title            string   `json:"title" validate:"required,max=256"`
	Instructions     string   `json:"instructions" validate:"maxbytes"`
	EstimatedMinutes int      `json:"estimated_minutes" validate:"gte=0"`
	Tools            []string `json:"tools" validate:"max=200,dive,max=128"`
}

// ReplaceStepsRequest is the body of PUT /v1/projects/:projectID/steps.
type ReplaceStepsRequest struct {
	Steps []StepInput `json:"steps" validate:"max=500,dive"`
}

func (r ReplaceStepsRequest) toDomain() []project.Step {
	steps := make([]project.Step, 0, len(r.Steps))
	for _, s := range r.Steps {
		steps = append(steps, project.Step{
			Title:            s.Title,
			Instructions:     s.Instructions,
			EstimatedMinutes: s.EstimatedMinutes,
			Tools:            s.Tools,
		})
	}
	return steps
}

// DetectRequest is the body of POST /v1/tools/detect.
type DetectRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required,base64,maximage"`
}

func (r DetectRequest) decode() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: image_base64 is not valid base64", conversation.ErrInvalidArgument)
	}
	return data, nil
}

// GenerateImageRequest is the body of POST /v1/images/generate.
type GenerateImageRequest struct {
	Prompt string `json:"prompt" validate:"required,maxbytes"`
}

// validateRequest runs struct validation and reports the first failing
// field as an invalid argument.
func validateRequest(r any) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %q", conversation.ErrInvalidArgument, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", conversation.ErrInvalidArgument, err)
}
