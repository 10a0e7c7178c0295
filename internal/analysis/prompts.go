// ABOUTME: Prompt text and response schema for the analysis requests.
// ABOUTME: Notes are summarized one per line to keep prompts compact.

package analysis

import (
	"fmt"
	"strings"

	"github.com/harper/eureka/internal/models"
	"google.golang.org/genai"
)

const mistakesSystemPrompt = `You are a study coach reviewing a student's mistake journal.
Answer in markdown with three short sections:
## Recurring patterns
## Likely root causes
## Suggestions
Reference specific lessons. Answer in the language the notes are written in.`

const progressSystemPrompt = `You are a study coach reviewing a student's mistake journal over time.
Return only a JSON object:
{
  "evaluation": "a short paragraph evaluating progress and trends",
  "chartDataByDifficulty": [{"name": "YYYY-MM", "easy": 0, "medium": 0, "hard": 0, "critical": 0}],
  "chartDataBySubject": [{"name": "YYYY-MM", "math": 0, "science": 0, "history": 0, "literature": 0, "code": 0, "english": 0, "other": 0}]
}
Each array has one entry per month that has notes, oldest first, counting notes.`

var progressSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"evaluation": {Type: genai.TypeString},
		"chartDataByDifficulty": {
			Type:  genai.TypeArray,
			Items: countSchema(difficultyKeys()),
		},
		"chartDataBySubject": {
			Type:  genai.TypeArray,
			Items: countSchema(subjectKeys()),
		},
	},
	Required: []string{"evaluation", "chartDataByDifficulty", "chartDataBySubject"},
}

func countSchema(keys []string) *genai.Schema {
	props := map[string]*genai.Schema{"name": {Type: genai.TypeString}}
	for _, k := range keys {
		props[k] = &genai.Schema{Type: genai.TypeInteger}
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: []string{"name"}}
}

func difficultyKeys() []string {
	keys := make([]string, len(models.Difficulties))
	for i, d := range models.Difficulties {
		keys[i] = string(d)
	}
	return keys
}

func subjectKeys() []string {
	keys := make([]string, len(models.Subjects))
	for i, s := range models.Subjects {
		keys[i] = string(s)
	}
	return keys
}

func buildNotesPrompt(header string, notes []models.Note) string {
	var sb strings.Builder
	sb.WriteString(header)
	sb.WriteString("\n\n")
	for _, n := range notes {
		fmt.Fprintf(&sb, "- [%s] %s/%s | %s | mistake: %s | correction: %s",
			n.CreatedAt.Format("2006-01-02"), n.Subject, n.Difficulty,
			oneLine(n.Lesson), oneLine(n.Mistake), oneLine(n.Correction))
		if n.FutureNote != "" {
			fmt.Fprintf(&sb, " | note: %s", oneLine(n.FutureNote))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
