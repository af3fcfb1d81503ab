// Package report turns bundle stats into reports: an interactive server with
// live updates over a websocket push channel, a static HTML file, or a JSON
// file. All three consumers share one chart-data pipeline and one error
// policy: analysis failures are logged and yield nil chart data, never an
// error.
package report

import (
	"errors"

	"github.com/bundlescope/bundlescope/internal/analyzer"
	"github.com/bundlescope/bundlescope/internal/config"
	"github.com/bundlescope/bundlescope/internal/stats"
)

// Analyzer computes chart data from bundle stats. The concrete implementation
// lives in the analyzer package; the interface exists so tests can substitute
// failing analyzers.
type Analyzer interface {
	ComputeChartData(s *stats.BundleStats, bundleDir string, cfg config.Report) (analyzer.ChartData, error)
}

// bundleAnalyzer adapts the analyzer package to the Analyzer interface.
type bundleAnalyzer struct{}

func (bundleAnalyzer) ComputeChartData(s *stats.BundleStats, bundleDir string, cfg config.Report) (analyzer.ChartData, error) {
	return analyzer.Analyze(s, bundleDir, analyzer.Options{
		ExcludeAssets:        cfg.ExcludeAssets,
		CompressionAlgorithm: cfg.CompressionAlgorithm,
	})
}

// ComputeChartData runs the analyzer and normalizes its two failure modes
// (an error, or a result with no bundles) into a nil return. Callers treat
// nil as "nothing to report": no file is written, no server starts, no
// update is broadcast.
func ComputeChartData(cfg config.Report, s *stats.BundleStats, bundleDir string) analyzer.ChartData {
	return computeChartData(bundleAnalyzer{}, cfg, s, bundleDir)
}

func computeChartData(a Analyzer, cfg config.Report, s *stats.BundleStats, bundleDir string) analyzer.ChartData {
	chart, err := a.ComputeChartData(s, bundleDir, cfg)
	if err != nil {
		if errors.Is(err, analyzer.ErrNoBundles) {
			cfg.Logger.Error().Msg("no bundles found in the provided stats")
			return nil
		}
		cfg.Logger.Error().Msg(err.Error())
		cfg.Logger.Debug().Err(err).Msg("bundle analysis failed")
		return nil
	}
	if chart == nil {
		cfg.Logger.Error().Msg("no bundles found in the provided stats")
		return nil
	}
	return chart
}

// resolveDefaultSizes maps the configured default-size metric onto what the
// viewer understands: the compressed metrics defer to the configured
// compression algorithm, everything else passes through unchanged.
func resolveDefaultSizes(defaultSizes, compressionAlgorithm string) string {
	if defaultSizes == "gzip" || defaultSizes == "brotli" {
		return compressionAlgorithm
	}
	return defaultSizes
}
