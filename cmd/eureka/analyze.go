// ABOUTME: Analyze commands asking the AI model about recorded mistakes.
// ABOUTME: mistakes prints markdown; progress prints monthly tables or JSON.

package main

import (
	"encoding/json"
	"fmt"

	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "AI analysis of your mistakes",
	Long: `Send the selected notes to the configured Gemini model.

Set GEMINI_API_KEY (or EUREKA_API_KEY) in the environment or a .env file.`,
}

var analyzeMistakesCmd = &cobra.Command{
	Use:   "mistakes",
	Short: "Find recurring mistake patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		notes := filterFromFlags(cmd).Apply(noteStore.Notes())
		text := newAnalyst().AnalyzeMistakes(cmd.Context(), notes)
		out, _ := ui.RenderMarkdown(text)
		fmt.Print(out)
		return nil
	},
}

var analyzeProgressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Evaluate progress over time",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		notes := filterFromFlags(cmd).Apply(noteStore.Notes())
		progress := newAnalyst().AnalyzeProgress(cmd.Context(), notes)

		if asJSON {
			data, err := json.MarshalIndent(progress, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		}
		fmt.Print(ui.FormatProgress(progress))
		return nil
	},
}

func init() {
	addFilterFlags(analyzeMistakesCmd)
	addFilterFlags(analyzeProgressCmd)
	analyzeProgressCmd.Flags().Bool("json", false, "print the raw evaluation and chart data")

	analyzeCmd.AddCommand(analyzeMistakesCmd)
	analyzeCmd.AddCommand(analyzeProgressCmd)
	rootCmd.AddCommand(analyzeCmd)
}
