// ABOUTME: Export commands for PDF, JSON and markdown output.
// ABOUTME: PDF exports confirm large batches and report per-note progress.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/harper/eureka/internal/layout"
	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/pdf"
	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type ExportData struct {
	ExportedAt time.Time         `json:"exported_at"`
	Version    string            `json:"version"`
	Notes      []models.Document `json:"notes"`
}

type markdownFrontmatter struct {
	ID         string    `yaml:"id"`
	Lesson     string    `yaml:"lesson"`
	Subject    string    `yaml:"subject"`
	Difficulty string    `yaml:"difficulty"`
	Source     string    `yaml:"source,omitempty"`
	Link       string    `yaml:"link,omitempty"`
	Errors     []string  `yaml:"errors,omitempty"`
	Created    time.Time `yaml:"created"`
	Updated    time.Time `yaml:"updated"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export notes",
	Long:  `Export notes as a pocket-sized PDF, a JSON backup or markdown files.`,
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf [id-prefix...]",
	Short: "Export notes to PDF",
	Long: `Export the selected notes (all notes by default) to a 67×130mm PDF.
Use --selected-errors to limit which error items of a note are printed.`,
	Example: `  eureka export pdf --subject math
  eureka export pdf a1b2c3 d4e5f6 --selected-errors a1b2c3:1,3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		noImages, _ := cmd.Flags().GetBool("no-images")
		yes, _ := cmd.Flags().GetBool("yes")
		outputDir, _ := cmd.Flags().GetString("output")
		selFlags, _ := cmd.Flags().GetStringArray("selected-errors")

		notes, err := selectNotes(cmd, args)
		if err != nil {
			return err
		}
		selections, err := parseSelections(selFlags)
		if err != nil {
			return err
		}

		entries := make([]layout.Entry, 0, len(notes))
		for _, n := range notes {
			entries = append(entries, layout.Entry{Note: n})
		}
		for prefix, items := range selections {
			n, err := noteStore.Find(prefix)
			if err != nil {
				return fmt.Errorf("selected errors for %s: %w", prefix, err)
			}
			for i := range entries {
				if entries[i].Note.ID == n.ID {
					entries[i].Selected = items
				}
			}
		}

		if pdf.NeedsConfirmation(len(entries), cfg.Export.ConfirmThreshold) && !yes {
			if !confirm(ui.FormatConfirmPrompt(fmt.Sprintf("Export %d notes?", len(entries)))) {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		exporter := newExporter()
		data, err := exporter.ExportNotes(cmd.Context(), entries, pdf.Options{IncludeImages: !noImages}, func(p pdf.Progress) {
			fmt.Fprintln(os.Stderr, ui.FormatExportProgress(p.Current, p.Total, p.Lesson))
		})
		if err != nil {
			return err
		}

		if outputDir == "" {
			outputDir = cfg.Export.OutputDir
		}
		path, err := exporter.Save(outputDir, pdf.KindNotes, data)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Exported %d notes to %s", len(entries), path)))
		return nil
	},
}

var exportJSONCmd = &cobra.Command{
	Use:   "json [id-prefix...]",
	Short: "Export notes as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputPath, _ := cmd.Flags().GetString("output")

		notes, err := selectNotes(cmd, args)
		if err != nil {
			return err
		}

		export := ExportData{
			ExportedAt: time.Now(),
			Version:    "1.0",
			Notes:      make([]models.Document, 0, len(notes)),
		}
		for _, n := range notes {
			export.Notes = append(export.Notes, models.DocumentFromNote(n))
		}

		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return err
		}

		if outputPath == "" || outputPath == "-" {
			fmt.Println(string(data))
			return nil
		}
		return os.WriteFile(outputPath, data, 0644)
	},
}

var exportMarkdownCmd = &cobra.Command{
	Use:   "md [id-prefix...]",
	Short: "Export notes as markdown files with YAML frontmatter",
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		if outputDir == "" {
			outputDir = "export"
		}

		notes, err := selectNotes(cmd, args)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return err
		}

		for _, n := range notes {
			content, err := noteMarkdownFile(n)
			if err != nil {
				return err
			}
			filePath := filepath.Join(outputDir, sanitizeFilename(n.Lesson)+"-"+ui.ShortID(n.ID)+".md")
			if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
				return err
			}
		}

		fmt.Println(ui.Success(fmt.Sprintf("Exported %d notes to %s", len(notes), outputDir)))
		return nil
	},
}

// selectNotes returns the notes named by args, or every note matching the
// filter flags, in display order.
func selectNotes(cmd *cobra.Command, args []string) ([]models.Note, error) {
	if len(args) == 0 {
		filter := filterFromFlags(cmd)
		filter.Sort = notebook.SortCreated
		return filter.Apply(noteStore.Notes()), nil
	}
	notes := make([]models.Note, 0, len(args))
	for _, ref := range args {
		n, err := noteStore.Find(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to get note %s: %w", ref, err)
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// parseSelections reads "prefix:1,3" values into 0-based item indexes.
func parseSelections(values []string) (map[string][]int, error) {
	out := map[string][]int{}
	for _, v := range values {
		prefix, list, ok := strings.Cut(v, ":")
		prefix = strings.TrimSpace(prefix)
		if !ok || prefix == "" {
			return nil, fmt.Errorf("invalid --selected-errors %q (want id:1,2)", v)
		}
		items := []int{}
		for _, part := range strings.Split(list, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid error item %q in %q", part, v)
			}
			items = append(items, n-1)
		}
		out[prefix] = append(out[prefix], items...)
	}
	return out, nil
}

func noteMarkdownFile(n models.Note) (string, error) {
	fm := markdownFrontmatter{
		ID:         n.ID,
		Lesson:     n.Lesson,
		Subject:    string(n.Subject),
		Difficulty: string(n.Difficulty),
		Source:     n.Source,
		Link:       n.ReferenceLink,
		Errors:     n.Errors,
		Created:    n.CreatedAt,
		Updated:    n.UpdatedAt,
	}
	frontmatter, err := yaml.Marshal(fm)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(frontmatter)
	sb.WriteString("---\n\n")
	sb.WriteString("# " + n.Lesson + "\n\n")
	sb.WriteString(ui.NoteMarkdown(n))
	return sb.String(), nil
}

func sanitizeFilename(name string) string {
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-",
		"?", "-", "\"", "-", "<", "-", ">", "-", "|", "-",
	)
	name = replacer.Replace(strings.TrimSpace(name))
	if r := []rune(name); len(r) > 100 {
		name = string(r[:100])
	}
	return name
}

func init() {
	for _, c := range []*cobra.Command{exportPDFCmd, exportJSONCmd, exportMarkdownCmd} {
		addFilterFlags(c)
		exportCmd.AddCommand(c)
	}
	exportPDFCmd.Flags().StringArray("selected-errors", nil, "only print these error items of a note (id:1,2; repeatable)")
	exportPDFCmd.Flags().Bool("no-images", false, "leave images out")
	exportPDFCmd.Flags().BoolP("yes", "y", false, "skip the confirmation for large exports")
	exportPDFCmd.Flags().StringP("output", "o", "", "output directory (default: export.output_dir or .)")
	exportJSONCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	exportMarkdownCmd.Flags().StringP("output", "o", "", "output directory (default: export)")
	rootCmd.AddCommand(exportCmd)
}
