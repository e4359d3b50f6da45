package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gihan9a/entityschema/internal/config"
	"gihan9a/entityschema/internal/schema"
	"gihan9a/entityschema/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--config", ""}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func writeData(t *testing.T, dir, name, content string) {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestVersionsCommand(t *testing.T) {
	out, err := run(t, "versions")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "1.20.50\tbaseline", lines[0])
	assert.Equal(t, "1.21.90\tpatches/1.21.90.yaml", lines[5])
}

func TestResolveCommand_Stdout(t *testing.T) {
	out, err := run(t, "resolve", "1.20.50")
	require.NoError(t, err)

	st, err := store.LoadEmbedded()
	require.NoError(t, err)
	want, err := schema.Encode(st.Baseline())
	require.NoError(t, err)
	assert.Equal(t, string(want)+"\n", out)
}

func TestResolveCommand_OutputFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "schema.json")
	out, err := run(t, "resolve", "latest", "-o", p)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	doc, err := schema.Decode(data)
	require.NoError(t, err)
	_, ok := schema.Lookup(doc, []string{"definitions", "components", "properties", "minecraft:entity_sensor", "properties", "subsensors", "items", "properties", "y_offset"})
	assert.True(t, ok)
}

func TestResolveCommand_InvalidVersion(t *testing.T) {
	_, err := run(t, "resolve", "1.x")
	assert.Error(t, err)

	_, err = run(t, "resolve")
	assert.Error(t, err)
}

func TestDiffCommand(t *testing.T) {
	out, err := run(t, "diff", "1.21.80", "1.21.90")
	require.NoError(t, err)

	var ops []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &ops))
	require.Len(t, ops, 1)
	assert.Equal(t, "add", ops[0]["op"])
	assert.Equal(t, "/definitions/components/properties/minecraft:entity_sensor/properties/subsensors/items/properties/y_offset", ops[0]["path"])

	out, err = run(t, "diff", "latest", "latest")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestCheckCommand_Embedded(t *testing.T) {
	out, err := run(t, "check")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "ok\t1.20.50", lines[0])
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "ok\t"), l)
	}
}

func TestCheckCommand_Failures(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "baseline.json", `{"definitions": {"a": {}}, "properties": {"x": {"$ref": "#/definitions/a"}}}`)
	writeData(t, dir, "patches/1.0.1.json", `{"version": "1.0.1", "changes": [{"action": "remove", "target": ["definitions", "a"]}]}`)
	writeData(t, dir, "patches/1.0.2.json", `{"version": "1.0.2", "changes": [{"action": "modify", "target": ["properties", "y"], "value": {}}]}`)

	out, err := run(t, "--data-dir", dir, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3 versions failed")
	assert.Contains(t, out, "ok\tbaseline\n")
	assert.Contains(t, out, "FAIL\t1.0.1\t1 unresolved $ref(s)")
	assert.Contains(t, out, "FAIL\t1.0.2\tpatch 1.0.2 (patches/1.0.2.json)")
}

func TestCheckCommand_BaselineRepairedByLaterPatch(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "baseline.json", `{"properties": {"x": {"$ref": "#/definitions/a"}}}`)
	writeData(t, dir, "patches/1.0.1.json", `{"version": "1.0.1", "changes": [{"action": "add", "target": ["definitions"], "value": {"a": {}}}]}`)

	out, err := run(t, "--data-dir", dir, "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 versions failed")
	assert.Contains(t, out, "FAIL\tbaseline\t1 unresolved $ref(s)")
	assert.Contains(t, out, "ok\t1.0.1\n")
}

func TestCheckCommand_BaselineOnly(t *testing.T) {
	dir := t.TempDir()
	writeData(t, dir, "baseline.json", `{"properties": {"x": {"$ref": "#/definitions/a"}}}`)

	out, err := run(t, "--data-dir", dir, "check")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL\tbaseline")
}

func TestGenerateConfigCommand(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	out, err := run(t, "generate-config", "--config-path", p)
	require.NoError(t, err)
	assert.Contains(t, out, p)

	c, err := config.LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), c)
}
