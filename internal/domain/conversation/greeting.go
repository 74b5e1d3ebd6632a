package conversation

import (
	"fmt"

	"github.com/rpggio/diyassist/internal/domain/project"
	"github.com/rpggio/diyassist/internal/domain/step"
)

const informationGatheringGreeting = "Hi! I'm here to help you plan your home-improvement project. " +
	"Tell me what you'd like to work on, and feel free to share a photo of the space."

// greeting is the agent's opening message for a new thread.
func greeting(kind AgentKind, proj project.Project, target *step.Target, st *project.Step) string {
	if kind != AgentProjectAssistant || target == nil {
		return informationGatheringGreeting
	}
	switch target.Kind {
	case step.KindOverview:
		return fmt.Sprintf("Let's look at the big picture for %q. Ask me anything about the plan as a whole.", proj.Name)
	case step.KindToolList:
		return fmt.Sprintf("Let's go over the tools and materials for %q. Ask what you need or what you could substitute.", proj.Name)
	default:
		if st != nil {
			return fmt.Sprintf("Let's work through step %d: %s. What would you like to know?", target.Number, st.Title)
		}
		return fmt.Sprintf("Let's work through step %d. What would you like to know?", target.Number)
	}
}
