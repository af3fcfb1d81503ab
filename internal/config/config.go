// Package config defines the report configuration: the one validated
// structure, constructed at the boundary, that every report consumer
// (interactive server, HTML generator, JSON generator) reads from.
package config

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Default option values.
const (
	DefaultPort                 = 8888
	DefaultHost                 = "127.0.0.1"
	DefaultSizesMetric          = "parsed"
	DefaultCompressionAlgorithm = "gzip"
	DefaultReportFilename       = "report.html"
	DefaultAssetsDir            = "public"
)

// URLInfo describes where the report server ended up listening. BoundAddress
// is the listener's actual address, which can differ from the requested
// host/port (ephemeral port, wildcard host).
type URLInfo struct {
	ListenPort   int
	ListenHost   string
	BoundAddress net.Addr
}

// Report is the full report configuration. Construct it with Default() and
// override fields, or load it from file/env via Load().
type Report struct {
	// Port and Host are the server bind address.
	Port int
	Host string
	// OpenBrowser opens the report in the default browser once it is ready.
	OpenBrowser bool
	// BundleDir is where the emitted bundle assets live. Empty means the
	// current working directory.
	BundleDir string
	// Logger receives all report-pipeline logging.
	Logger zerolog.Logger
	// DefaultSizes is the size metric the viewer starts with: "stat",
	// "parsed", "gzip" or "brotli".
	DefaultSizes string
	// CompressionAlgorithm is the compressed-size metric: "gzip" or "brotli".
	CompressionAlgorithm string
	// ExcludeAssets holds regular expressions for assets to skip.
	ExcludeAssets []string
	// ReportTitle is the viewer page title, literal or computed.
	ReportTitle Title
	// AnalyzerURL maps bind info to the display URL. Required for server
	// mode; there is no internal validation, starting the server with a nil
	// func fails when it is invoked.
	AnalyzerURL func(URLInfo) string
	// ReportFilename is the output path for the HTML and JSON generators.
	ReportFilename string
	// AssetsDir is the directory the server's static front-end assets are
	// read from on every request.
	AssetsDir string
}

// Default returns a Report with the documented defaults and the global
// zerolog logger.
func Default() Report {
	return Report{
		Port:                 DefaultPort,
		Host:                 DefaultHost,
		OpenBrowser:          true,
		Logger:               log.Logger,
		DefaultSizes:         DefaultSizesMetric,
		CompressionAlgorithm: DefaultCompressionAlgorithm,
		ReportFilename:       DefaultReportFilename,
		AssetsDir:            DefaultAssetsDir,
	}
}

// Settings is the file/env-loadable subset of Report.
type Settings struct {
	Port                 int      `mapstructure:"port"`
	Host                 string   `mapstructure:"host"`
	OpenBrowser          bool     `mapstructure:"open_browser"`
	BundleDir            string   `mapstructure:"bundle_dir"`
	DefaultSizes         string   `mapstructure:"default_sizes"`
	CompressionAlgorithm string   `mapstructure:"compression_algorithm"`
	ExcludeAssets        []string `mapstructure:"exclude_assets"`
	ReportTitle          string   `mapstructure:"report_title"`
	ReportFilename       string   `mapstructure:"report_filename"`
	AssetsDir            string   `mapstructure:"assets_dir"`
	Debug                bool     `mapstructure:"debug"`
}

// Load reads settings from an optional bundlescope.yaml, a .env file and
// BUNDLESCOPE_* environment variables, on top of the defaults.
func Load() (*Settings, error) {
	if err := loadEnvFile(); err != nil {
		log.Debug().Err(err).Msg("No .env file loaded")
	}

	v := viper.New()
	v.SetConfigName("bundlescope")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvPrefix("BUNDLESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug().Msg("No config file found, using environment variables and defaults")
	} else {
		log.Info().Str("file", v.ConfigFileUsed()).Msg("Config file loaded")
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &s, nil
}

// loadEnvFile loads environment variables from a .env file if one exists.
func loadEnvFile() error {
	locations := []string{".env", ".env.local"}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			if err := godotenv.Load(location); err != nil {
				return fmt.Errorf("error loading .env file from %s: %w", location, err)
			}
			log.Info().Str("file", location).Msg(".env file loaded")
			return nil
		}
	}
	return fmt.Errorf("no .env file found")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", DefaultPort)
	v.SetDefault("host", DefaultHost)
	v.SetDefault("open_browser", true)
	v.SetDefault("bundle_dir", "")
	v.SetDefault("default_sizes", DefaultSizesMetric)
	v.SetDefault("compression_algorithm", DefaultCompressionAlgorithm)
	v.SetDefault("report_title", "")
	v.SetDefault("report_filename", DefaultReportFilename)
	v.SetDefault("assets_dir", DefaultAssetsDir)
	v.SetDefault("debug", false)
}

// Validate validates the settings.
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", s.Port)
	}

	switch s.DefaultSizes {
	case "stat", "parsed", "gzip", "brotli":
	default:
		return fmt.Errorf("default_sizes must be one of stat, parsed, gzip, brotli; got %q", s.DefaultSizes)
	}

	switch s.CompressionAlgorithm {
	case "gzip", "brotli":
	default:
		return fmt.Errorf("compression_algorithm must be gzip or brotli, got %q", s.CompressionAlgorithm)
	}

	return nil
}

// Report builds a Report from the loaded settings. AnalyzerURL and Logger
// remain for the caller to fill in.
func (s *Settings) Report() Report {
	r := Default()
	r.Port = s.Port
	r.Host = s.Host
	r.OpenBrowser = s.OpenBrowser
	r.BundleDir = s.BundleDir
	r.DefaultSizes = s.DefaultSizes
	r.CompressionAlgorithm = s.CompressionAlgorithm
	r.ExcludeAssets = s.ExcludeAssets
	r.ReportFilename = s.ReportFilename
	if s.AssetsDir != "" {
		r.AssetsDir = s.AssetsDir
	}
	if s.ReportTitle != "" {
		r.ReportTitle = LiteralTitle(s.ReportTitle)
	}
	return r
}
