// ABOUTME: List command for displaying notes.
// ABOUTME: Filters by subject, difficulty and text; --watch follows live changes.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/harper/eureka/internal/models"
	"github.com/harper/eureka/internal/notebook"
	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List notes",
	Long:  `List notes, optionally filtered by subject, difficulty or a search query.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := filterFromFlags(cmd)
		sortFlag, _ := cmd.Flags().GetString("sort")
		filter.Sort = notebook.ParseSortOrder(sortFlag)
		filter.Limit, _ = cmd.Flags().GetInt("limit")
		watch, _ := cmd.Flags().GetBool("watch")

		printList(filter.Apply(noteStore.Notes()))
		if !watch {
			return nil
		}

		for {
			notes, err := noteSub.Next(cmd.Context())
			if err != nil {
				return nil //nolint:nilerr // Interrupted watch is a normal exit
			}
			fmt.Print("\033[H\033[2J")
			fmt.Printf("%d notes, updated %s\n\n", len(notes), time.Now().Format("15:04:05"))
			printList(filter.Apply(notes))
		}
	},
}

func printList(notes []models.Note) {
	if len(notes) == 0 {
		fmt.Fprintln(os.Stdout, "No notes found.")
		return
	}
	for _, n := range notes {
		fmt.Print(ui.FormatNoteListItem(n))
	}
}

func init() {
	addFilterFlags(listCmd)
	listCmd.Flags().String("sort", "updated", "sort order (updated|created|difficulty)")
	listCmd.Flags().IntP("limit", "n", 0, "max notes to show (0 = all)")
	listCmd.Flags().BoolP("watch", "w", false, "keep running and redraw on every change")
	rootCmd.AddCommand(listCmd)
}
