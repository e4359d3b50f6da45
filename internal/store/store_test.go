package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gihan9a/entityschema/internal/resolver"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/pkg/version"
)

var (
	entityDescription = []string{"properties", "minecraft:entity", "properties", "description", "properties"}
	entitySensor      = []string{"definitions", "components", "properties", "minecraft:entity_sensor", "properties"}
	leashable         = []string{"definitions", "components", "properties", "minecraft:leashable", "properties"}
)

func at(base []string, rest ...string) []string {
	return append(append([]string(nil), base...), rest...)
}

func resolve(t *testing.T, s *Store, v string) schema.Node {
	t.Helper()
	n, err := resolver.ResolveString(s.Baseline(), s.Patches(), v)
	require.NoError(t, err)
	return n
}

func has(n schema.Node, p []string) bool {
	_, ok := schema.Lookup(n, p)
	return ok
}

func get(t *testing.T, n schema.Node, p []string) any {
	t.Helper()
	v, ok := schema.Lookup(n, p)
	require.True(t, ok, "missing %v", p)
	return v
}

func embeddedStore(t *testing.T) *Store {
	t.Helper()
	s, err := LoadEmbedded()
	require.NoError(t, err)
	return s
}

func TestLoadEmbedded(t *testing.T) {
	s := embeddedStore(t)

	m := s.Manifest()
	assert.Equal(t, "minecraft-entity-behavior", m.Name)
	assert.Equal(t, "1.20.50", m.BaselineVersion.String())
	assert.Equal(t, []string{"**/addon/behavior_pack/entities/**/*.json"}, m.FileMatch)

	var got []string
	for _, v := range s.Versions() {
		got = append(got, v.String())
	}
	assert.Equal(t, []string{"1.20.60", "1.20.70", "1.21.10", "1.21.80", "1.21.90"}, got)
	assert.Equal(t, "1.21.90", s.Latest().String())
	assert.Equal(t, "patches/1.21.90.yaml", s.PatchesAt(version.MustParse("1.21.90"))[0].Source)
	require.NoError(t, schema.CheckRefs(s.Baseline()))
}

func TestScenario_BeforeAnyPatch(t *testing.T) {
	s := embeddedStore(t)
	n := resolve(t, s, "1.20.50")

	assert.Equal(t, s.Baseline(), n)
	assert.Equal(t, "number", get(t, n, at(entitySensor, "range", "type")))
	assert.False(t, has(n, at(entitySensor, "subsensors")))
	assert.True(t, has(n, at(entityDescription, "aliases")))
}

func TestScenario_Subsensors(t *testing.T) {
	n := resolve(t, embeddedStore(t), "1.20.60")

	assert.Equal(t, "array", get(t, n, at(entitySensor, "subsensors", "type")))
	assert.False(t, has(n, at(entitySensor, "event")))
	assert.False(t, has(n, at(entitySensor, "range")))
	assert.Equal(t, "number", get(t, n, at(entitySensor, "subsensors", "items", "properties", "range", "type")))
}

func TestScenario_SubsensorRangeArray(t *testing.T) {
	n := resolve(t, embeddedStore(t), "1.20.70")

	r := at(entitySensor, "subsensors", "items", "properties", "range")
	assert.Equal(t, "array", get(t, n, at(r, "type")))
	assert.Equal(t, float64(2), get(t, n, at(r, "minItems")))
	assert.Equal(t, float64(2), get(t, n, at(r, "maxItems")))
	assert.Equal(t, []any{float64(10), float64(10)}, get(t, n, at(r, "default")))
	assert.True(t, has(n, at(entityDescription, "aliases")))
}

func TestScenario_AliasesRemoved(t *testing.T) {
	s := embeddedStore(t)
	for _, v := range []string{"1.21.10", "1.21.50", "1.21.90", "1.22.0"} {
		n := resolve(t, s, v)
		assert.False(t, has(n, at(entityDescription, "aliases")), v)
		assert.True(t, has(n, at(entityDescription, "identifier")), v)
	}
	assert.True(t, has(resolve(t, s, "1.21.9"), at(entityDescription, "aliases")))
}

func TestScenario_Unleash(t *testing.T) {
	s := embeddedStore(t)
	before := resolve(t, s, "1.21.79")
	after := resolve(t, s, "1.21.80")

	desc := at(leashable, "on_unleash", "description")
	assert.NotEqual(t, get(t, before, desc), get(t, after, desc))
	assert.Equal(t, "#/definitions/trigger", get(t, after, at(leashable, "on_unleash", "$ref")))

	assert.False(t, has(before, at(leashable, "on_unleash_interact_only")))
	assert.Equal(t, "boolean", get(t, after, at(leashable, "on_unleash_interact_only", "type")))
	assert.Equal(t, false, get(t, after, at(leashable, "on_unleash_interact_only", "default")))
}

func TestScenario_Latest(t *testing.T) {
	s := embeddedStore(t)
	n := resolve(t, s, s.Latest().String())

	assert.Equal(t, "array", get(t, n, at(entitySensor, "subsensors", "type")))
	assert.Equal(t, "array", get(t, n, at(entitySensor, "subsensors", "items", "properties", "range", "type")))
	assert.Equal(t, float64(0), get(t, n, at(entitySensor, "subsensors", "items", "properties", "y_offset", "default")))
	assert.False(t, has(n, at(entityDescription, "aliases")))
	assert.True(t, has(n, at(leashable, "on_unleash_interact_only")))
	require.NoError(t, schema.CheckRefs(n))
}

func TestEveryVersionKeepsRefsConsistent(t *testing.T) {
	s := embeddedStore(t)
	versions := append([]version.Tag{s.Manifest().BaselineVersion}, s.Versions()...)
	for _, v := range versions {
		t.Run(v.String(), func(t *testing.T) {
			n, err := resolver.Resolve(s.Baseline(), s.Patches(), v)
			require.NoError(t, err)
			assert.NoError(t, schema.CheckRefs(n))
		})
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "baseline.json", `{"properties": {"a": {"type": "string"}}}`)
	writeFile(t, dir, "patches/b.json", `{"version": "1.1", "changes": [{"action": "add", "target": ["properties", "a", "default"], "value": "second"}]}`)
	writeFile(t, dir, "patches/a.yml", "version: \"1.1\"\nchanges:\n  - action: add\n    target: [properties, a, default]\n    value: first\n")
	writeFile(t, dir, "patches/README.md", "ignored")

	s, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, s.Patches(), 2)
	assert.True(t, s.Manifest().BaselineVersion.IsZero())

	n, err := resolver.ResolveString(s.Baseline(), s.Patches(), "1.1")
	require.NoError(t, err)
	assert.Equal(t, "second", get(t, n, []string{"properties", "a", "default"}))
}

func TestLoadDir_Errors(t *testing.T) {
	t.Run("missing baseline", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		assert.Error(t, err)
	})

	t.Run("bad patch version", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "baseline.json", `{}`)
		writeFile(t, dir, "patches/x.json", `{"version": "1.021", "changes": [{"action": "remove", "target": ["a"]}]}`)
		_, err := LoadDir(dir)
		var ive *version.InvalidVersionError
		require.True(t, errors.As(err, &ive))
		assert.Contains(t, err.Error(), "patches/x.json")
	})

	t.Run("unknown action", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "baseline.json", `{}`)
		writeFile(t, dir, "patches/x.json", `{"version": "1.2", "changes": [{"action": "merge", "target": ["a"], "value": 1}]}`)
		_, err := LoadDir(dir)
		assert.ErrorContains(t, err, "unknown action")
	})

	t.Run("patch not after baseline", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "manifest.yaml", "baseline_version: \"1.2\"\n")
		writeFile(t, dir, "baseline.json", `{}`)
		writeFile(t, dir, "patches/x.json", `{"version": "1.2", "changes": [{"action": "remove", "target": ["a"]}]}`)
		_, err := LoadDir(dir)
		assert.ErrorContains(t, err, "does not come after baseline")
	})
}

func TestParseVersion(t *testing.T) {
	s := embeddedStore(t)

	v, err := s.ParseVersion(LatestAlias)
	require.NoError(t, err)
	assert.Equal(t, "1.21.90", v.String())

	v, err = s.ParseVersion("1.21")
	require.NoError(t, err)
	assert.Equal(t, "1.21", v.String())

	var ive *version.InvalidVersionError
	_, err = s.ParseVersion("1.x")
	assert.ErrorAs(t, err, &ive)

	bare, err := New(Manifest{}, schema.Node{}, nil)
	require.NoError(t, err)
	_, err = bare.ParseVersion(LatestAlias)
	require.ErrorAs(t, err, &ive)
	assert.Equal(t, LatestAlias, ive.Input)

	pinned, err := New(Manifest{BaselineVersion: version.MustParse("1.20.50")}, schema.Node{}, nil)
	require.NoError(t, err)
	v, err = pinned.ParseVersion(LatestAlias)
	require.NoError(t, err)
	assert.Equal(t, "1.20.50", v.String())
}

func TestIsDataFile(t *testing.T) {
	for _, name := range []string{"manifest.yaml", "baseline.json", "patches/1.20.60.json", "patches/1.21.90.yaml", filepath.Join("patches", "x.yml")} {
		assert.True(t, IsDataFile(name), name)
	}
	for _, name := range []string{"README.md", "notes.yaml", "patches/README.md", "patches/old/1.0.1.json", "patches", "baseline.json.swp"} {
		assert.False(t, IsDataFile(name), name)
	}
}
