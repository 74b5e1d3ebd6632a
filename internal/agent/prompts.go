package agent

import (
	"fmt"
	"strings"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/domain/step"
)

const replyContract = `Answer with a JSON object {"reply": string, "status": "continue" | "complete"}.
Use "complete" only when the user's goal for this conversation is met.`

const informationGatheringPrompt = `You are a friendly home-improvement assistant. Learn what the user wants to
build or repair: the space, the materials they have, their experience and their timeline.
Ask one focused question at a time. When you know enough to draft a plan, summarize it.`

const projectAssistantPrompt = `You are a hands-on home-improvement coach helping the user carry out an
existing project plan. Keep answers practical, safety-minded and specific to the plan below.`

// systemPrompt renders the instructions and project context for one invocation.
func systemPrompt(inv conversation.Invocation) string {
	var b strings.Builder
	if inv.Agent == conversation.AgentProjectAssistant {
		b.WriteString(projectAssistantPrompt)
	} else {
		b.WriteString(informationGatheringPrompt)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Project: %s\n", inv.Project.Name)
	if inv.Project.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", inv.Project.Description)
	}

	if len(inv.Steps) > 0 {
		overview := step.Summarize(inv.Project, inv.Steps)
		fmt.Fprintf(&b, "Plan: %d steps, about %s, %s.\n", overview.TotalSteps, overview.TotalTime, overview.Complexity)
		for _, s := range overview.Steps {
			fmt.Fprintf(&b, "  %d. %s (%s)\n", s.Number, s.Title, s.Time)
		}
	}

	if inv.Target != nil {
		switch inv.Target.Kind {
		case step.KindOverview:
			b.WriteString("The user is looking at the project overview.\n")
		case step.KindToolList:
			tools := step.CollectTools(inv.Project, inv.Steps)
			if len(tools) > 0 {
				fmt.Fprintf(&b, "The user is looking at the tool list: %s.\n", strings.Join(tools, ", "))
			} else {
				b.WriteString("The user is looking at the tool list.\n")
			}
		case step.KindStep:
			if inv.Step != nil {
				fmt.Fprintf(&b, "The user is on step %d: %s.\n", inv.Step.Number, inv.Step.Title)
				if inv.Step.Instructions != "" {
					fmt.Fprintf(&b, "Step instructions: %s\n", inv.Step.Instructions)
				}
			} else {
				fmt.Fprintf(&b, "The user is on step %d.\n", inv.Target.Number)
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(replyContract)
	return b.String()
}
