package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	_ "embed"

	"github.com/bundlescope/bundlescope/internal/analyzer"
	"github.com/bundlescope/bundlescope/internal/config"
)

// Mode selects how the viewer page is rendered.
type Mode string

const (
	// ModeServer renders for the interactive server: assets are referenced
	// by URL and the live-update channel is available.
	ModeServer Mode = "server"
	// ModeStatic renders a self-contained HTML file with assets inlined.
	ModeStatic Mode = "static"
)

//go:embed viewer.gohtml
var viewerTemplateText string

var viewerTemplate = template.Must(template.New("viewer").Parse(viewerTemplateText))

// RenderOptions carry everything the viewer page embeds.
type RenderOptions struct {
	Mode                 Mode
	Title                config.Title
	Chart                analyzer.ChartData
	Entrypoints          []string
	DefaultSizes         string
	CompressionAlgorithm string
	EnableLiveUpdate     bool
	// AssetsDir is read for inlined assets in static mode.
	AssetsDir string
}

type viewerPage struct {
	Title                string
	Mode                 Mode
	ChartData            template.JS
	Entrypoints          template.JS
	DefaultSizes         template.JS
	CompressionAlgorithm template.JS
	EnableLiveUpdate     template.JS
	InlineJS             template.JS
	InlineCSS            template.CSS
}

// RenderPage renders the viewer HTML. The title is resolved exactly once
// here, whether literal or computed.
func RenderPage(opts RenderOptions) (string, error) {
	page := viewerPage{
		Title: opts.Title.Resolve(),
		Mode:  opts.Mode,
	}

	entrypoints := opts.Entrypoints
	if entrypoints == nil {
		entrypoints = []string{}
	}

	var err error
	if page.ChartData, err = jsValue(opts.Chart); err != nil {
		return "", fmt.Errorf("failed to encode chart data: %w", err)
	}
	if page.Entrypoints, err = jsValue(entrypoints); err != nil {
		return "", fmt.Errorf("failed to encode entrypoints: %w", err)
	}
	if page.DefaultSizes, err = jsValue(opts.DefaultSizes); err != nil {
		return "", err
	}
	if page.CompressionAlgorithm, err = jsValue(opts.CompressionAlgorithm); err != nil {
		return "", err
	}
	if page.EnableLiveUpdate, err = jsValue(opts.EnableLiveUpdate); err != nil {
		return "", err
	}

	if opts.Mode == ModeStatic {
		js, err := os.ReadFile(filepath.Join(opts.AssetsDir, "viewer.js"))
		if err != nil {
			return "", fmt.Errorf("failed to read viewer script: %w", err)
		}
		css, err := os.ReadFile(filepath.Join(opts.AssetsDir, "viewer.css"))
		if err != nil {
			return "", fmt.Errorf("failed to read viewer stylesheet: %w", err)
		}
		page.InlineJS = template.JS(js)
		page.InlineCSS = template.CSS(css)
	}

	var sb strings.Builder
	if err := viewerTemplate.Execute(&sb, page); err != nil {
		return "", fmt.Errorf("failed to render viewer page: %w", err)
	}
	return sb.String(), nil
}

// jsValue encodes v as a JSON literal safe to embed in a script element.
func jsValue(v interface{}) (template.JS, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	// Keep the literal inert inside <script>.
	escaped := strings.ReplaceAll(string(data), "</", "<\\/")
	return template.JS(escaped), nil
}
