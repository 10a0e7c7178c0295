// ABOUTME: Show command for displaying a single note.
// ABOUTME: Renders the note sections as markdown.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id-prefix>",
	Short: "Show a note",
	Long:  `Display a note with its mistake, correction and error items.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, err := noteStore.Find(args[0])
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		fmt.Print(ui.FormatNoteHeader(note))
		content, _ := ui.RenderMarkdown(ui.NoteMarkdown(note))
		fmt.Print(content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
