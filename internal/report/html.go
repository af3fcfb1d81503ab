package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bundlescope/bundlescope/internal/browser"
	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/stats"
)

// GenerateStatic writes a self-contained, non-interactive HTML report to
// ReportFilename, resolved against BundleDir (or the working directory when
// BundleDir is empty). A nil pipeline result writes nothing and returns nil;
// filesystem failures propagate.
func GenerateStatic(s *stats.BundleStats, cfg config.Report) error {
	chart := ComputeChartData(cfg, s, cfg.BundleDir)
	if chart == nil {
		return nil
	}

	html, err := RenderPage(RenderOptions{
		Mode:                 ModeStatic,
		Title:                cfg.ReportTitle,
		Chart:                chart,
		Entrypoints:          stats.EntrypointNames(s),
		DefaultSizes:         resolveDefaultSizes(cfg.DefaultSizes, cfg.CompressionAlgorithm),
		CompressionAlgorithm: cfg.CompressionAlgorithm,
		EnableLiveUpdate:     false,
		AssetsDir:            cfg.AssetsDir,
	})
	if err != nil {
		return err
	}

	dir := cfg.BundleDir
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
	}
	path := filepath.Join(dir, cfg.ReportFilename)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.Logger.Info().Str("path", abs).Msg("Bundlescope saved report")

	if cfg.OpenBrowser {
		browser.Open("file://"+abs, cfg.Logger)
	}
	return nil
}
