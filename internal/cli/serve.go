package cli

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/report"
	"github.com/bundlescope/bundlescope/internal/stats"
	"github.com/bundlescope/bundlescope/internal/watcher"
)

var serveCmd = &cobra.Command{
	Use:   "serve <stats-file>",
	Short: "Start the interactive report server",
	Long: `Start a local server rendering the bundle report. With --watch the
stats file is monitored and open viewers receive updated chart data without
a restart.`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", config.DefaultPort, "port to listen on")
	serveCmd.Flags().String("host", config.DefaultHost, "host to bind")
	serveCmd.Flags().BoolP("watch", "w", false, "watch the stats file and push updates to open viewers")
	addReportFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
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
	cfg.AnalyzerURL = displayURL

	srv, err := report.StartServer(bundleStats, cfg)
	if err != nil {
		return err
	}
	if srv == nil {
		// Nothing to report; the pipeline already logged why.
		return nil
	}
	defer srv.Close()

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		w, err := watcher.New(args[0], srv.UpdateChartData, cfg.Logger)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down report server")
	return nil
}

// displayURL builds the URL shown in the start banner and opened in the
// browser, preferring the listener's actual port so an ephemeral port
// request (0) resolves correctly.
func displayURL(u config.URLInfo) string {
	host := u.ListenHost
	port := u.ListenPort
	if addr, ok := u.BoundAddress.(*net.TCPAddr); ok {
		port = addr.Port
		if host == "0.0.0.0" || host == "::" || host == "" {
			host = "localhost"
		}
	}
	return fmt.Sprintf("http://%s", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
}
