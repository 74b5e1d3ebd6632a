package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `diyassist helps people plan and carry out home-improvement projects.

Model:
- Project: a job with an ordered plan of steps and a tool list.
- Thread: one conversation with an agent about a project. Status moves PENDING -> IN_PROGRESS -> COMPLETED and never goes back.
- Step number: -1 is the project overview, 0 is the tool list, n >= 1 is step n.

Workflow:
1) list_projects or create_project.
2) initialize_conversation with the project id. The information_gathering agent is the default.
3) send_message with text, a photo, or both. Keep the returned status.
4) To work through the plan, initialize_conversation with agent=project_assistant, the earlier thread_id and a step_number.
5) get_step reads the plan without talking to an agent; get_history replays a thread.

Docs:
- diyassist://docs/lifecycle
- diyassist://docs/step-addressing
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "diyassist://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Conversation lifecycle",
		Description: "How a thread's status changes and what a completed thread accepts.",
		Content: `# Conversation lifecycle

A new thread is PENDING and holds the agent's greeting.

The first accepted message moves it to IN_PROGRESS. When the agent decides the
task is done it signals completion and the thread becomes COMPLETED.

COMPLETED is terminal. Later messages are still answered and recorded, but the
status stays COMPLETED.

Every turn is stored as one write: the user message, the agent reply and the
status change land together or not at all. A failed turn leaves the history
unchanged, so it is safe to resend.
`,
	},
	{
		URI:         "diyassist://docs/step-addressing",
		Name:        "docs_step_addressing",
		Title:       "Step addressing",
		Description: "What the step_number argument means.",
		Content: `# Step addressing

| step_number | addresses |
|-------------|-----------|
| -1          | project overview: step titles, durations, total time, complexity |
| 0           | the merged tool list for the project |
| n >= 1      | the n-th step of the plan |

Anything below -1 is rejected. A number past the end of the plan is not found.

Durations are shown as "45 min", "1 hr" or "2 hr 30 min".
Complexity is Easy, Moderate, Challenging or Complex depending on total time
and step count.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
