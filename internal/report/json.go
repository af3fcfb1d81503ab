package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/stats"
)

// GenerateJSON writes the chart data alone as a JSON document to
// ReportFilename. Unlike the HTML report, the path is resolved against the
// process working directory, not BundleDir. A nil pipeline result writes
// nothing and returns nil; filesystem failures propagate.
func GenerateJSON(s *stats.BundleStats, cfg config.Report) error {
	chart := ComputeChartData(cfg, s, cfg.BundleDir)
	if chart == nil {
		return nil
	}

	data, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("failed to encode chart data: %w", err)
	}

	if dir := filepath.Dir(cfg.ReportFilename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(cfg.ReportFilename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	cfg.Logger.Info().Str("path", cfg.ReportFilename).Msg("Bundlescope saved JSON report")
	return nil
}
