package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rpggio/diyassist/internal/domain/conversation"
)

var completionWords = []string{"done", "finished"}

// EchoAgent is a deterministic agent for local runs and tests. It reflects
// the user's turn back and signals completion when the user says they are
// done or finished.
type EchoAgent struct{}

// NewEchoAgent creates an EchoAgent.
func NewEchoAgent() *EchoAgent { return &EchoAgent{} }

// Invoke implements conversation.Agent.
func (EchoAgent) Invoke(ctx context.Context, inv conversation.Invocation) (conversation.Reply, error) {
	if err := ctx.Err(); err != nil {
		return conversation.Reply{}, err
	}

	var b strings.Builder
	switch {
	case inv.Turn.Text != "" && len(inv.Turn.Image) > 0:
		fmt.Fprintf(&b, "You said %q and shared a %s photo.", inv.Turn.Text, inv.Turn.ImageMIMEType)
	case len(inv.Turn.Image) > 0:
		fmt.Fprintf(&b, "Thanks for the %s photo.", inv.Turn.ImageMIMEType)
	default:
		fmt.Fprintf(&b, "You said %q.", inv.Turn.Text)
	}
	if inv.Step != nil {
		fmt.Fprintf(&b, " We are on step %d: %s.", inv.Step.Number, inv.Step.Title)
	}

	signal := conversation.SignalContinue
	if saysDone(inv.Turn.Text) {
		signal = conversation.SignalComplete
		b.WriteString(" Great work, this conversation is complete.")
	}
	return conversation.Reply{Text: b.String(), Signal: signal}, nil
}

func saysDone(text string) bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z')
	})
	for _, w := range words {
		for _, done := range completionWords {
			if w == done {
				return true
			}
		}
	}
	return false
}
