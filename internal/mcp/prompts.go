// ABOUTME: MCP prompts for study review workflows.
// ABOUTME: Builds prompts from the current notes so agents start with context.

package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerPrompts() {
	s.server.AddPrompt(&mcp.Prompt{
		Name:        "review-mistakes",
		Description: "Review recorded mistakes and plan what to practise next",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "subject",
				Description: "Only review notes for this subject (math, science, history, literature, code, english, other)",
				Required:    false,
			},
		},
	}, s.getReviewMistakesPrompt)

	s.server.AddPrompt(&mcp.Prompt{
		Name:        "log-mistake",
		Description: "Turn a description of a mistake into a structured note",
		Arguments: []*mcp.PromptArgument{
			{
				Name:        "description",
				Description: "What went wrong, in your own words",
				Required:    true,
			},
		},
	}, s.getLogMistakePrompt)
}

func (s *Server) getReviewMistakesPrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	var f notebook.Filter
	if subject := req.Params.Arguments["subject"]; subject != "" {
		f.Subject = models.ParseSubject(subject)
	}
	notes := f.Apply(s.deps.Store.Notes())

	var sb strings.Builder
	sb.WriteString("Review my recorded study mistakes below.\n\n")
	sb.WriteString("1. Group them into recurring patterns\n")
	sb.WriteString("2. Point out which corrections I still seem to miss\n")
	sb.WriteString("3. Suggest three concrete exercises for the coming week\n\n")

	if len(notes) == 0 {
		sb.WriteString("There are no notes yet. Suggest how I could start recording mistakes with the add_note tool.")
	} else {
		for _, n := range notes {
			sb.WriteString(fmt.Sprintf("- [%s/%s] %s: %s -> %s\n",
				n.Subject.Label(), n.Difficulty.Label(), n.Lesson, oneLine(n.Mistake), oneLine(n.Correction)))
		}
		sb.WriteString("\nUse get_note for the full text of any note.")
	}

	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: sb.String()},
			},
		},
	}, nil
}

func (s *Server) getLogMistakePrompt(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	description := req.Params.Arguments["description"]
	if description == "" {
		description = "(no description given)"
	}

	template := fmt.Sprintf(`I made this mistake while studying:

%s

Create a note for it with the add_note tool:
- lesson: a short title for the topic
- mistake: what I did wrong
- correction: the right way, stated so I can reuse it
- future_note: one sentence to remember next time
- errors: the individual slips as separate items
- subject and difficulty: your best guess`, description)

	return &mcp.GetPromptResult{
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: template},
			},
		},
	}, nil
}

func oneLine(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > 120 {
		return string(r[:119]) + "…"
	}
	return s
}
