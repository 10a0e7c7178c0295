// ABOUTME: Report command exporting the dashboard as a PDF.
// ABOUTME: Runs both analyses concurrently, then lays out evaluation and tables.

package main

import (
	"fmt"

	"github.com/harper/eureka/internal/analysis"
	"github.com/harper/eureka/internal/pdf"
	"github.com/harper/eureka/internal/ui"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export the dashboard report to PDF",
	Long: `Export a report with the AI progress evaluation, the mistake analysis
and monthly counts by difficulty and subject.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outputDir, _ := cmd.Flags().GetString("output")
		notes := filterFromFlags(cmd).Apply(noteStore.Notes())
		analyst := newAnalyst()

		var (
			progress analysis.Progress
			mistakes string
		)
		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			progress = analyst.AnalyzeProgress(ctx, notes)
			return nil
		})
		g.Go(func() error {
			mistakes = analyst.AnalyzeMistakes(ctx, notes)
			return nil
		})
		_ = g.Wait()

		exporter := newExporter()
		data, err := exporter.ExportReport(cmd.Context(), pdf.BuildReport(notes, progress, mistakes))
		if err != nil {
			return err
		}

		if outputDir == "" {
			outputDir = cfg.Export.OutputDir
		}
		path, err := exporter.Save(outputDir, pdf.KindReport, data)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("Exported report to %s", path)))
		return nil
	},
}

func init() {
	addFilterFlags(reportCmd)
	reportCmd.Flags().StringP("output", "o", "", "output directory (default: export.output_dir or .)")
	rootCmd.AddCommand(reportCmd)
}
