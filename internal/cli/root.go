// Package cli provides the Cobra commands for the bundlescope binary.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/bundlescope/bundlescope/internal/config"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"

	// Global flags
	debug bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "bundlescope",
	Short: "Bundlescope - visualize bundle sizes from build stats",
	Long: `Bundlescope turns a bundle stats file into a size report.

Modes:
  bundlescope serve stats.json    Interactive report server with live updates
  bundlescope report stats.json   Self-contained static HTML report
  bundlescope json stats.json     Raw chart data as JSON`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Bundlescope %s\n", Version)
		fmt.Printf("Commit: %s\n", Commit)
		fmt.Printf("Build Date: %s\n", BuildDate)
	},
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(versionCmd)
}

// loadSettings loads file/env settings and applies flag overrides from cmd.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		settings.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("host") {
		settings.Host, _ = flags.GetString("host")
	}
	if flags.Changed("no-open") {
		noOpen, _ := flags.GetBool("no-open")
		settings.OpenBrowser = !noOpen
	}
	if flags.Changed("bundle-dir") {
		settings.BundleDir, _ = flags.GetString("bundle-dir")
	}
	if flags.Changed("default-sizes") {
		settings.DefaultSizes, _ = flags.GetString("default-sizes")
	}
	if flags.Changed("compression") {
		settings.CompressionAlgorithm, _ = flags.GetString("compression")
	}
	if flags.Changed("exclude") {
		settings.ExcludeAssets, _ = flags.GetStringSlice("exclude")
	}
	if flags.Changed("title") {
		settings.ReportTitle, _ = flags.GetString("title")
	}
	if flags.Changed("filename") {
		settings.ReportFilename, _ = flags.GetString("filename")
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// addReportFlags registers the flags shared by every report mode.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("bundle-dir", "", "directory containing the emitted bundle assets (default: working directory)")
	cmd.Flags().String("default-sizes", config.DefaultSizesMetric, "size metric the viewer starts with (stat, parsed, gzip, brotli)")
	cmd.Flags().String("compression", config.DefaultCompressionAlgorithm, "compressed-size algorithm (gzip, brotli)")
	cmd.Flags().StringSlice("exclude", nil, "regular expressions for assets to exclude")
	cmd.Flags().String("title", "", "report title")
	cmd.Flags().Bool("no-open", false, "do not open the report in a browser")
}
