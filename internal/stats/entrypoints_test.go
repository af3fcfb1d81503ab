package stats

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntrypointNamesEmptyCases(t *testing.T) {
	assert.Equal(t, []string{}, EntrypointNames(nil))
	assert.Equal(t, []string{}, EntrypointNames(&BundleStats{}))
	assert.Equal(t, []string{}, EntrypointNames(&BundleStats{Entrypoints: NewEntrypointMap()}))
}

func TestEntrypointNamesProjectsNameField(t *testing.T) {
	s := &BundleStats{
		Entrypoints: NewEntrypointMap(
			EntrypointPair{Key: "a", Entry: Entrypoint{Name: "x"}},
			EntrypointPair{Key: "b", Entry: Entrypoint{Name: "y"}},
		),
	}
	assert.Equal(t, []string{"x", "y"}, EntrypointNames(s))
}

func TestEntrypointMapPreservesDocumentOrder(t *testing.T) {
	// Keys deliberately in non-alphabetical order; a plain map would not
	// keep them stable.
	doc := `{"zeta":{"name":"zeta"},"alpha":{"name":"alpha"},"mid":{"name":"mid"}}`

	var m EntrypointMap
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	var names []string
	m.Each(func(key string, e Entrypoint) {
		names = append(names, e.Name)
	})
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
}

func TestEntrypointMapOrderHoldsForManyKeys(t *testing.T) {
	doc := "{"
	want := make([]string, 0, 32)
	for i := 0; i < 32; i++ {
		if i > 0 {
			doc += ","
		}
		name := fmt.Sprintf("entry-%02d", 31-i)
		doc += fmt.Sprintf(`"%s":{"name":"%s"}`, name, name)
		want = append(want, name)
	}
	doc += "}"

	var m EntrypointMap
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	assert.Equal(t, want, EntrypointNames(&BundleStats{Entrypoints: &m}))
}

func TestEntrypointMapRoundTrip(t *testing.T) {
	doc := `{"b":{"name":"b"},"a":{"name":"a"}}`

	var m EntrypointMap
	require.NoError(t, json.Unmarshal([]byte(doc), &m))

	out, err := json.Marshal(&m)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(out))
	// Order must survive the round trip, not just the contents.
	assert.Less(t, strings.Index(string(out), `"b"`), strings.Index(string(out), `"a"`))
}

func TestEntrypointMapGet(t *testing.T) {
	m := NewEntrypointMap(EntrypointPair{Key: "main", Entry: Entrypoint{Name: "main"}})

	e, ok := m.Get("main")
	require.True(t, ok)
	assert.Equal(t, "main", e.Name)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestEntrypointMapRejectsNonObject(t *testing.T) {
	var m EntrypointMap
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
}
