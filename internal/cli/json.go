package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bundlescope/bundlescope/internal/report"
	"github.com/bundlescope/bundlescope/internal/stats"
)

var jsonCmd = &cobra.Command{
	Use:   "json <stats-file>",
	Short: "Write the chart data as a JSON report",
	Args:  cobra.ExactArgs(1),
	RunE:  runJSON,
}

func init() {
	jsonCmd.Flags().StringP("filename", "f", "report.json", "report output path, relative to the working directory")
	addReportFlags(jsonCmd)
	rootCmd.AddCommand(jsonCmd)
}

func runJSON(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("filename") {
		settings.ReportFilename = "report.json"
	}

	bundleStats, err := stats.ParseFile(args[0])
	if err != nil {
		return err
	}

	cfg := settings.Report()
	cfg.Logger = log.Logger
	return report.GenerateJSON(bundleStats, cfg)
}
