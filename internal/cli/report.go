package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/report"
	"github.com/bundlescope/bundlescope/internal/stats"
)

var reportCmd = &cobra.Command{
	Use:   "report <stats-file>",
	Short: "Write a self-contained static HTML report",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringP("filename", "f", config.DefaultReportFilename, "report output path, relative to the bundle directory")
	addReportFlags(reportCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	bundleStats, err := stats.ParseFile(args[0])
	if err != nil {
		return err
	}

	cfg := settings.Report()
	cfg.Logger = log.Logger
	return report.GenerateStatic(bundleStats, cfg)
}
