// ABOUTME: Add command for recording a new mistake.
// ABOUTME: Fields come from flags; the mistake falls back to $EDITOR.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <lesson>",
	Short: "Record a new mistake",
	Long: `Record a mistake for the given lesson. Mistake and correction are
required; when --mistake is omitted $EDITOR opens for it.`,
	Example: `  eureka add "Quadratic formula" -s math -d hard \
    -m "Forgot the minus in -b" -c "x = (-b ± √Δ) / 2a" -e "sign of b"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := patchFromFlags(cmd)
		if err != nil {
			return err
		}
		lesson := args[0]
		patch.Lesson = &lesson

		if patch.Mistake == nil {
			mistake, err := openEditor("")
			if err != nil {
				return fmt.Errorf("failed to open editor: %w", err)
			}
			patch.Mistake = &mistake
		}

		base := models.Note{Subject: models.SubjectOther, Difficulty: models.DifficultyMedium}
		note, err := noteStore.Create(cmd.Context(), patch.Apply(base).Draft())
		if err != nil {
			return fmt.Errorf("failed to create note: %w", err)
		}

		fmt.Println(ui.Success(fmt.Sprintf("Created note %s", ui.ShortID(note.ID))))
		return nil
	},
}

func init() {
	addNoteFlags(addCmd)
	rootCmd.AddCommand(addCmd)
}
