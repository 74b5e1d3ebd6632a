package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ErrEmptyPrompt is returned when an image is requested without a prompt.
var ErrEmptyPrompt = errors.New("prompt is required")

// GeneratedImage is one generated picture, as a URL or base64 data.
type GeneratedImage struct {
	URL           string `json:"url,omitempty"`
	Base64        string `json:"b64_json,omitempty"`
	RevisedPrompt string `json:"revised_prompt,omitempty"`
}

// ImageGenerator renders reference pictures through the OpenAI images API.
type ImageGenerator struct {
	client *openai.Client
	model  string
	size   string
	logger *slog.Logger
}

// NewImageGenerator creates a generator. Empty model and size pick dall-e-3
// at 1024x1024.
func NewImageGenerator(client *openai.Client, model, size string, logger *slog.Logger) *ImageGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	if size == "" {
		size = openai.CreateImageSize1024x1024
	}
	return &ImageGenerator{client: client, model: model, size: size, logger: logger}
}

// Generate renders one image for prompt and returns it base64 encoded.
func (g *ImageGenerator) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, ErrEmptyPrompt
	}

	ctx, span := tracer.Start(ctx, "agent.ImageGenerator.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", g.model), attribute.String("size", g.size))

	resp, err := g.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          g.model,
		N:              1,
		Size:           g.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("image generation returned no data")
	}

	data := resp.Data[0]
	g.logger.Debug("generated image", "model", g.model, "revised", data.RevisedPrompt != "")
	return &GeneratedImage{
		URL:           data.URL,
		Base64:        data.B64JSON,
		RevisedPrompt: data.RevisedPrompt,
	}, nil
}
