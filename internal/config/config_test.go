package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	c, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 3000, c.Port)
	assert.Empty(t, c.FileMatch)
	assert.True(t, c.CacheEnabled)
	assert.Empty(t, c.DataDir)
	assert.Nil(t, c.ProxyURL)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadConfig_File(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(p, []byte(`
server:
  port: 8080
  data_dir: ./schemas
  watch: true
resolve:
  cache: false
  check_refs: true
proxy:
  url: https://schemas.example.com/base
log:
  level: debug
  format: json
`), 0644))

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, 8080, c.Port)
	assert.Equal(t, "./schemas", c.DataDir)
	assert.True(t, c.Watch)
	assert.False(t, c.CacheEnabled)
	assert.True(t, c.CheckRefs)
	require.NotNil(t, c.ProxyURL)
	assert.Equal(t, "schemas.example.com", c.ProxyURL.Host)
	assert.Equal(t, "debug", c.Log.Level)
	assert.Equal(t, "json", c.Log.Format)
	assert.Empty(t, c.FileMatch)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	p := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(p, []byte("server: [\n"), 0644))
	_, err = LoadConfig(p)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestSaveDefaultConfig_RoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, SaveDefaultConfig(p))

	c, err := LoadConfig(p)
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestFlags_Resolve(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var f Flags
	f.Register(fs)
	require.NoError(t, fs.Parse([]string{
		"--config", filepath.Join(t.TempDir(), "absent.yml"),
		"-d", "/srv/schemas",
		"-p", "9000",
		"--log-level", "warn",
		"--watch",
	}))

	c := f.Resolve()
	assert.Equal(t, "/srv/schemas", c.DataDir)
	assert.Equal(t, 9000, c.Port)
	assert.Equal(t, "warn", c.Log.Level)
	assert.True(t, c.Watch)
	assert.True(t, c.CacheEnabled)
}
