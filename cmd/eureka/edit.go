// ABOUTME: Edit command for modifying existing notes.
// ABOUTME: Applies changed flags, or opens the mistake in $EDITOR.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit <id-prefix>",
	Short: "Edit a note",
	Long:  `Update the fields given as flags. Without flags the mistake opens in $EDITOR.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		note, err := noteStore.Find(args[0])
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		patch, err := patchFromFlags(cmd)
		if err != nil {
			return err
		}

		if patch.IsEmpty() {
			mistake, err := openEditor(note.Mistake)
			if err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}
			if mistake == note.Mistake {
				fmt.Println("No changes made.")
				return nil
			}
			patch.Mistake = &mistake
		}

		if err := noteStore.Update(cmd.Context(), note.ID, patch); err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		fmt.Println(ui.Success(fmt.Sprintf("Updated note %s", ui.ShortID(note.ID))))
		return nil
	},
}

func init() {
	addNoteFlags(editCmd)
	editCmd.Flags().StringP("lesson", "l", "", "lesson title")
	rootCmd.AddCommand(editCmd)
}
