// ABOUTME: Terminal UI formatting for eureka output.
// ABOUTME: Uses glamour for markdown and fatih/color for styling.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/models"
)

var (
	faint  = color.New(color.Faint).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
)

var difficultyColors = map[models.Difficulty]*color.Color{
	models.DifficultyEasy:     color.New(color.FgGreen),
	models.DifficultyMedium:   color.New(color.FgYellow),
	models.DifficultyHard:     color.New(color.FgRed),
	models.DifficultyCritical: color.New(color.FgMagenta, color.Bold),
}

// Difficulty returns the coloured difficulty label.
func Difficulty(d models.Difficulty) string {
	if c, ok := difficultyColors[d]; ok {
		return c.Sprint(d.Label())
	}
	return d.Label()
}

// ShortID returns the first six characters of id.
func ShortID(id string) string {
	if len(id) <= 6 {
		return id
	}
	return id[:6]
}

func FormatNoteListItem(note models.Note) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("  %s %s  %s\n",
		faint(fmt.Sprintf("#%-3d", note.DisplayID)),
		faint(ShortID(note.ID)),
		bold(note.Lesson)))

	sb.WriteString(fmt.Sprintf("             %s · %s\n",
		cyan(note.Subject.Label()),
		Difficulty(note.Difficulty)))

	if len(note.Errors) > 0 {
		sb.WriteString(fmt.Sprintf("             %s %d\n", faint("Errors:"), len(note.Errors)))
	}

	sb.WriteString(fmt.Sprintf("             %s %s\n",
		faint("Updated:"),
		faint(note.UpdatedAt.Local().Format("2006-01-02 15:04"))))

	return sb.String()
}

func FormatNoteHeader(note models.Note) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s\n", bold(note.Lesson)))
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("ID:"), faint(note.ID)))
	sb.WriteString(fmt.Sprintf("%s %s · %s\n", faint("Subject:"), cyan(note.Subject.Label()), Difficulty(note.Difficulty)))
	if note.Source != "" {
		sb.WriteString(fmt.Sprintf("%s %s\n", faint("Source:"), note.Source))
	}
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("Created:"), faint(note.CreatedAt.Local().Format("2006-01-02 15:04"))))
	sb.WriteString(fmt.Sprintf("%s %s\n", faint("Updated:"), faint(note.UpdatedAt.Local().Format("2006-01-02 15:04"))))

	sb.WriteString(Separator())
	return sb.String()
}

// NoteMarkdown renders the body of a note as markdown sections.
func NoteMarkdown(note models.Note) string {
	var sb strings.Builder
	section := func(title, body string) {
		if strings.TrimSpace(body) == "" {
			return
		}
		sb.WriteString("## " + title + "\n\n" + strings.TrimSpace(body) + "\n\n")
	}

	section("Mistake", note.Mistake)
	section("Correction", note.Correction)
	section("Remember", note.FutureNote)
	if len(note.Errors) > 0 {
		sb.WriteString("## Errors\n\n")
		for i, e := range note.Errors {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, e))
		}
		sb.WriteString("\n")
	}
	if note.ReferenceLink != "" {
		section("Reference", note.ReferenceLink)
	}
	if len(note.ImageURLs) > 0 {
		section("Images", fmt.Sprintf("%d attached", len(note.ImageURLs)))
	}
	return sb.String()
}

func RenderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fallback to raw content if renderer fails
		return content, nil //nolint:nilerr // Intentional fallback
	}

	out, err := renderer.Render(content)
	if err != nil {
		return content, nil //nolint:nilerr // Intentional fallback
	}
	return out, nil
}

// FormatProgress prints the trend evaluation and both monthly tables.
func FormatProgress(p analysis.Progress) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("%s\n%s\n", bold("Evaluation"), p.Evaluation))

	if len(p.ChartDataByDifficulty) > 0 {
		sb.WriteString(fmt.Sprintf("\n%s\n", bold("By difficulty")))
		sb.WriteString(faint(fmt.Sprintf("  %-12s", "Period")))
		for _, d := range models.Difficulties {
			sb.WriteString(faint(fmt.Sprintf("%9s", d.Label())))
		}
		sb.WriteString("\n")
		for _, row := range p.ChartDataByDifficulty {
			sb.WriteString(fmt.Sprintf("  %-12s", row.Name))
			for _, d := range models.Difficulties {
				sb.WriteString(fmt.Sprintf("%9d", row.Count(d)))
			}
			sb.WriteString("\n")
		}
	}

	if len(p.ChartDataBySubject) > 0 {
		sb.WriteString(fmt.Sprintf("\n%s\n", bold("By subject")))
		for _, row := range p.ChartDataBySubject {
			var parts []string
			for _, s := range models.Subjects {
				if n := row.Count(s); n > 0 {
					parts = append(parts, fmt.Sprintf("%s %d", s.Label(), n))
				}
			}
			if len(parts) == 0 {
				parts = append(parts, faint("none"))
			}
			sb.WriteString(fmt.Sprintf("  %-12s%s\n", row.Name, strings.Join(parts, ", ")))
		}
	}

	return sb.String()
}

// FormatExportProgress is the status line shown while exporting.
func FormatExportProgress(current, total int, lesson string) string {
	return faint(fmt.Sprintf("[%d/%d] ", current, total)) + lesson
}

func Separator() string {
	return faint(strings.Repeat("─", 50)) + "\n"
}

func Success(msg string) string {
	return color.New(color.FgGreen).Sprint("✓ ") + msg
}

func Error(msg string) string {
	return color.New(color.FgRed).Sprint("✗ ") + msg
}

func Warn(msg string) string {
	return yellow("! ") + msg
}

func FormatConfirmPrompt(msg string) string {
	return faint(msg + " (y/n) ")
}
