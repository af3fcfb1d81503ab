// Package stats models webpack-style bundle stats files: the build metadata
// (assets, chunks, modules, entrypoints) that the analyzer turns into a report.
package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// BundleStats is the decoded bundle stats document. Only the fields the
// analyzer needs are modeled; everything else in the document is ignored.
type BundleStats struct {
	Version     string         `json:"version,omitempty"`
	Hash        string         `json:"hash,omitempty"`
	Assets      []Asset        `json:"assets,omitempty"`
	Chunks      []Chunk        `json:"chunks,omitempty"`
	Modules     []Module       `json:"modules,omitempty"`
	Entrypoints *EntrypointMap `json:"entrypoints,omitempty"`
}

// Asset is an emitted output file.
type Asset struct {
	Name   string    `json:"name"`
	Size   int64     `json:"size"`
	Chunks []ChunkID `json:"chunks,omitempty"`
}

// Chunk is a group of modules emitted into one or more assets.
type Chunk struct {
	ID    ChunkID  `json:"id"`
	Names []string `json:"names,omitempty"`
	Size  int64    `json:"size"`
	Files []string `json:"files,omitempty"`
}

// Module is a single source module as recorded by the build tool.
type Module struct {
	Identifier string    `json:"identifier,omitempty"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	Chunks     []ChunkID `json:"chunks,omitempty"`
}

// Entrypoint is a named root grouping of chunks in the build output.
type Entrypoint struct {
	Name   string    `json:"name"`
	Chunks []ChunkID `json:"chunks,omitempty"`
}

// ChunkID accepts both string and numeric chunk identifiers, which vary
// between build tool major versions.
type ChunkID string

// UnmarshalJSON decodes a chunk id from either a JSON string or number.
func (c *ChunkID) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty chunk id")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = ChunkID(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = ChunkID(n.String())
	return nil
}

// MarshalJSON encodes the chunk id as a string.
func (c ChunkID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}

// Parse decodes a bundle stats document from r.
func Parse(r io.Reader) (*BundleStats, error) {
	var s BundleStats
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode bundle stats: %w", err)
	}
	return &s, nil
}

// ParseFile reads and decodes the bundle stats file at path.
func ParseFile(path string) (*BundleStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle stats file: %w", err)
	}
	defer f.Close()

	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
