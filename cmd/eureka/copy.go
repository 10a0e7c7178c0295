// ABOUTME: Copy command for starting a new note from an existing one.
// ABOUTME: Flags override the copied fields before it is saved.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var copyCmd = &cobra.Command{
	Use:   "copy <id-prefix>",
	Short: "Create a new note from an existing one",
	Long:  `Copy a note's content into a new note. Any note flag overrides the copied value.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := noteStore.Find(args[0])
		if err != nil {
			return fmt.Errorf("failed to get note: %w", err)
		}

		patch, err := patchFromFlags(cmd)
		if err != nil {
			return err
		}

		note, err := noteStore.Create(cmd.Context(), patch.Apply(src).Draft())
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}

		fmt.Println(ui.Success(fmt.Sprintf("Copied %s to %s", ui.ShortID(src.ID), ui.ShortID(note.ID))))
		return nil
	},
}

func init() {
	addNoteFlags(copyCmd)
	copyCmd.Flags().StringP("lesson", "l", "", "lesson title")
	rootCmd.AddCommand(copyCmd)
}
