package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntrypointMap is the entrypoints object of a stats document. JSON objects
// carry no order in Go maps, but the viewer lists entrypoints in document
// order, so decoding keeps the keys in the order they appear.
type EntrypointMap struct {
	keys    []string
	entries map[string]Entrypoint
}

// NewEntrypointMap builds an EntrypointMap from key/value pairs in the given
// order. Used by tests and programmatic stats construction.
func NewEntrypointMap(pairs ...EntrypointPair) *EntrypointMap {
	m := &EntrypointMap{entries: make(map[string]Entrypoint, len(pairs))}
	for _, p := range pairs {
		if _, dup := m.entries[p.Key]; !dup {
			m.keys = append(m.keys, p.Key)
		}
		m.entries[p.Key] = p.Entry
	}
	return m
}

// EntrypointPair is one key/value pair of an EntrypointMap.
type EntrypointPair struct {
	Key   string
	Entry Entrypoint
}

// Len returns the number of entrypoints.
func (m *EntrypointMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the entrypoint stored under key.
func (m *EntrypointMap) Get(key string) (Entrypoint, bool) {
	if m == nil {
		return Entrypoint{}, false
	}
	e, ok := m.entries[key]
	return e, ok
}

// Each calls fn for every entrypoint in document order.
func (m *EntrypointMap) Each(fn func(key string, e Entrypoint)) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		fn(k, m.entries[k])
	}
}

// UnmarshalJSON decodes the entrypoints object, preserving key order.
func (m *EntrypointMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		m.keys = nil
		m.entries = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("entrypoints: expected object, got %v", tok)
	}

	m.keys = nil
	m.entries = make(map[string]Entrypoint)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("entrypoints: expected string key, got %v", tok)
		}

		var e Entrypoint
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("entrypoints[%s]: %w", key, err)
		}

		if _, dup := m.entries[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.entries[key] = e
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// MarshalJSON encodes the entrypoints in document order.
func (m *EntrypointMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.entries[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// EntrypointNames projects the entrypoint records of s to their names,
// preserving document order. A nil stats value, or stats without an
// entrypoints object, yields an empty slice.
func EntrypointNames(s *BundleStats) []string {
	if s == nil || s.Entrypoints == nil {
		return []string{}
	}
	names := make([]string, 0, s.Entrypoints.Len())
	s.Entrypoints.Each(func(_ string, e Entrypoint) {
		names = append(names, e.Name)
	})
	return names
}
