// Package analyzer computes chart data from bundle stats: one size tree per
// emitted JavaScript asset, with stat sizes taken from the stats document and
// parsed/compressed sizes measured from the asset files on disk when the
// bundle directory is available.
package analyzer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bundlescope/bundlescope/internal/stats"
)

// ErrNoBundles is returned when the stats document describes no analyzable
// JavaScript assets. Callers treat this as "nothing to report", not a fault.
var ErrNoBundles = errors.New("stats contain no analyzable bundles")

// Options control how chart data is computed.
type Options struct {
	// ExcludeAssets holds regular expressions; assets whose name matches any
	// of them are skipped.
	ExcludeAssets []string
	// CompressionAlgorithm selects the compressed-size metric: "gzip"
	// (default) or "brotli".
	CompressionAlgorithm string
}

// ChartData is the ordered sequence of per-asset size trees consumed by the
// viewer template and the JSON report.
type ChartData []*BundleGroup

// BundleGroup is the root of one asset's size tree.
type BundleGroup struct {
	Label      string   `json:"label"`
	IsAsset    bool     `json:"isAsset"`
	StatSize   int64    `json:"statSize"`
	ParsedSize int64    `json:"parsedSize,omitempty"`
	GzipSize   int64    `json:"gzipSize,omitempty"`
	Groups     []*Group `json:"groups,omitempty"`
}

// Group is a directory or module node inside an asset's size tree.
type Group struct {
	Label    string   `json:"label"`
	Path     string   `json:"path"`
	StatSize int64    `json:"statSize"`
	Groups   []*Group `json:"groups,omitempty"`
}

var jsAssetPattern = regexp.MustCompile(`\.(js|mjs|cjs)$`)

// Analyze computes chart data for the given stats. bundleDir is where the
// emitted assets live; when empty or unreadable, parsed and compressed sizes
// are omitted and only stat sizes are reported.
func Analyze(s *stats.BundleStats, bundleDir string, opts Options) (ChartData, error) {
	if s == nil {
		return nil, errors.New("bundle stats are missing")
	}

	exclude, err := compilePatterns(opts.ExcludeAssets)
	if err != nil {
		return nil, err
	}

	assets := selectAssets(s.Assets, exclude)
	if len(assets) == 0 {
		return nil, ErrNoBundles
	}

	chart := make(ChartData, 0, len(assets))
	for _, asset := range assets {
		group := &BundleGroup{
			Label:    asset.Name,
			IsAsset:  true,
			StatSize: asset.Size,
		}

		modules := modulesForAsset(asset, s.Modules)
		if len(modules) > 0 {
			tree := buildModuleTree(modules)
			group.Groups = tree.Groups
			group.StatSize = tree.StatSize
		}

		if bundleDir != "" {
			if content, err := os.ReadFile(filepath.Join(bundleDir, asset.Name)); err == nil {
				group.ParsedSize = int64(len(content))
				size, err := compressedSize(content, opts.CompressionAlgorithm)
				if err != nil {
					return nil, fmt.Errorf("failed to measure compressed size of %s: %w", asset.Name, err)
				}
				group.GzipSize = size
			}
		}

		chart = append(chart, group)
	}
	return chart, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

func selectAssets(assets []stats.Asset, exclude []*regexp.Regexp) []stats.Asset {
	selected := make([]stats.Asset, 0, len(assets))
	for _, a := range assets {
		if !jsAssetPattern.MatchString(a.Name) {
			continue
		}
		if matchesAny(a.Name, exclude) {
			continue
		}
		selected = append(selected, a)
	}
	return selected
}

func matchesAny(name string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// modulesForAsset returns the modules sharing at least one chunk with the
// asset. Assets without chunk information claim every module, which matches
// the single-bundle case.
func modulesForAsset(asset stats.Asset, modules []stats.Module) []stats.Module {
	if len(asset.Chunks) == 0 {
		return modules
	}

	chunkSet := make(map[stats.ChunkID]struct{}, len(asset.Chunks))
	for _, id := range asset.Chunks {
		chunkSet[id] = struct{}{}
	}

	owned := make([]stats.Module, 0, len(modules))
	for _, m := range modules {
		if len(m.Chunks) == 0 {
			continue
		}
		for _, id := range m.Chunks {
			if _, ok := chunkSet[id]; ok {
				owned = append(owned, m)
				break
			}
		}
	}
	return owned
}

// buildModuleTree folds module paths into a directory tree, aggregating stat
// sizes bottom-up. Module names like "./src/app/index.js" become nested
// groups rooted at "src".
func buildModuleTree(modules []stats.Module) *BundleGroup {
	root := &BundleGroup{}
	nodes := make(map[string]*Group)

	for _, m := range modules {
		segments := splitModulePath(m.Name)
		if len(segments) == 0 {
			continue
		}
		root.StatSize += m.Size

		parentGroups := &root.Groups
		path := ""
		for i, seg := range segments {
			if path == "" {
				path = seg
			} else {
				path = path + "/" + seg
			}

			node, ok := nodes[path]
			if !ok {
				node = &Group{Label: seg, Path: path}
				nodes[path] = node
				*parentGroups = append(*parentGroups, node)
			}
			node.StatSize += m.Size

			if i < len(segments)-1 {
				parentGroups = &node.Groups
			}
		}
	}
	return root
}

func splitModulePath(name string) []string {
	name = strings.TrimPrefix(name, "./")
	parts := strings.Split(name, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		segments = append(segments, p)
	}
	return segments
}
