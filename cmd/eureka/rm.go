// ABOUTME: Remove command for deleting notes.
// ABOUTME: Deletes optimistically and reports whether the remote delete held.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm <id-prefix>",
	Short: "Remove a note",
	Long:  `Delete a note. The note disappears from the list at once and comes back if the remote delete fails.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		note, err := noteStore.Find(args[0])
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		if !force && !confirm(fmt.Sprintf("Delete note %q (%s)? [y/N] ", note.Lesson, ui.ShortID(note.ID))) {
			fmt.Println("Cancelled.")
			return nil
		}

		pending, err := noteStore.Delete(cmd.Context(), note.ID)
		if err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}
		if err := pending.Wait(cmd.Context()); err != nil {
			return fmt.Errorf("failed to delete note: %w", err)
		}

		fmt.Println(ui.Success(fmt.Sprintf("Deleted note %s", ui.ShortID(note.ID))))
		return nil
	},
}

func init() {
	rmCmd.Flags().BoolP("force", "f", false, "skip confirmation")
	rootCmd.AddCommand(rmCmd)
}
