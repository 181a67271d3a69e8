package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/labparse/internal/fixture"
	"github.com/jackzampolin/labparse/internal/output"
	"github.com/jackzampolin/labparse/internal/report"
)

var (
	parseSave     bool
	parseSaveTo   string
	parseGenerate bool
)

var parseCmd = &cobra.Command{
	Use:   "parse [image]",
	Short: "Extract a structured report from a lab report image",
	Long: `Recognize the text of a lab report image (PNG, JPEG, TIFF or PDF), extract a
structured record through the configured LLM, validate it and print it.

Without an argument the sample report (medical_report_test.png) is used and
generated first if it does not exist.

Failures are labeled with their kind: recognition, extraction_fatal,
extraction_exhausted, validation or cancelled.

Examples:
  labparse parse                        # Sample report
  labparse parse scan.png -o yaml       # YAML output
  labparse parse scan.pdf --save        # Also save under ~/.labparse/reports`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		cfg := a.config.Get()

		image, generate := fixture.DefaultFile, true
		if len(args) == 1 {
			image, generate = args[0], parseGenerate
		}

		driver, err := a.newDriver(cfg, generate)
		if err != nil {
			return err
		}

		res, err := driver.Run(cmd.Context(), image)
		a.flushMetrics(cfg)
		if err != nil {
			return err
		}

		counts := res.Report.Count()
		a.logger.Info("report extracted",
			"patient", res.Report.PatientName,
			"tests", len(res.Report.Tests),
			"high", counts[report.StatusHigh],
			"low", counts[report.StatusLow],
			"attempts", len(res.Attempts))

		if err := output.Write(cmd.OutOrStdout(), a.format, res.Report); err != nil {
			return err
		}

		if parseSave || parseSaveTo != "" {
			path := parseSaveTo
			if path == "" {
				path = a.home.ReportPath(res.RunID, a.format.Ext())
			}
			if err := output.WriteFile(path, a.format, res.Report); err != nil {
				return err
			}
			a.logger.Info("saved report", "path", path)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseSave, "save", false, "save the report under the home reports directory")
	parseCmd.Flags().StringVar(&parseSaveTo, "save-to", "", "save the report to this path")
	parseCmd.Flags().BoolVar(&parseGenerate, "generate", false, "generate the sample report at the given path if it is missing")

	rootCmd.AddCommand(parseCmd)
}
