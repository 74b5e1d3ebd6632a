// Package agent provides the conversational agents and the image and tool
// capabilities behind the conversation service.
package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("diyassist/agent")

// ErrEmptyReply is returned when the model produced no usable text.
var ErrEmptyReply = errors.New("agent returned an empty reply")

// NewOpenAIClient builds a client for the OpenAI API or a compatible server.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIAgent answers turns with a chat completion. The model reports
// completion in a JSON envelope alongside its reply.
type OpenAIAgent struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIAgent creates an agent using model on client.
func NewOpenAIAgent(client *openai.Client, model string, logger *slog.Logger) *OpenAIAgent {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIAgent{client: client, model: model, logger: logger}
}

type envelope struct {
	Reply  string `json:"reply"`
	Status string `json:"status"`
}

// Invoke implements conversation.Agent.
func (a *OpenAIAgent) Invoke(ctx context.Context, inv conversation.Invocation) (conversation.Reply, error) {
	ctx, span := tracer.Start(ctx, "agent.OpenAI.Invoke")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent", string(inv.Agent)),
		attribute.String("model", a.model),
		attribute.Int("history", len(inv.History)),
	)

	req := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: buildMessages(inv),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return conversation.Reply{}, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		span.SetStatus(codes.Error, "no choices")
		return conversation.Reply{}, ErrEmptyReply
	}
	a.logger.Debug("received chat completion", "model", a.model, "finish_reason", resp.Choices[0].FinishReason)

	reply := parseReply(resp.Choices[0].Message.Content)
	if reply.Text == "" {
		span.SetStatus(codes.Error, "empty reply")
		return conversation.Reply{}, ErrEmptyReply
	}
	if reply.Signal == "" {
		a.logger.Warn("model reply missing status envelope, treating as continue", "model", a.model)
		reply.Signal = conversation.SignalContinue
	}
	return reply, nil
}

// parseReply reads the JSON envelope. Plain text is taken as the reply with
// no signal.
func parseReply(content string) conversation.Reply {
	content = strings.TrimSpace(content)
	var env envelope
	if err := json.Unmarshal([]byte(content), &env); err != nil || env.Reply == "" {
		return conversation.Reply{Text: content}
	}
	return conversation.Reply{
		Text:   strings.TrimSpace(env.Reply),
		Signal: normalizeSignal(env.Status),
	}
}

// normalizeSignal accepts the lifecycle names models tend to echo back.
// Anything unrecognized is passed through for the service to reject.
func normalizeSignal(status string) conversation.Signal {
	switch s := strings.ToLower(strings.TrimSpace(status)); s {
	case "complete", "completed", "done":
		return conversation.SignalComplete
	case "continue", "in_progress", "pending":
		return conversation.SignalContinue
	default:
		return conversation.Signal(s)
	}
}

func buildMessages(inv conversation.Invocation) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(inv.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(inv),
	})
	for _, msg := range inv.History {
		role := openai.ChatMessageRoleUser
		if msg.Role == conversation.RoleAgent {
			role = openai.ChatMessageRoleAssistant
		}
		content := msg.Content
		if content == "" && msg.ImageMIMEType != "" {
			content = "[shared a photo]"
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: content})
	}

	if len(inv.Turn.Image) == 0 {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: inv.Turn.Text,
		})
		return messages
	}

	text := inv.Turn.Text
	if text == "" {
		text = "Here is a photo."
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: text},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(inv.Turn.ImageMIMEType, inv.Turn.Image),
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	})
	return messages
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
