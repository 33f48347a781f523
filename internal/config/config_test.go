package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_YAML(t *testing.T) {
	p := write(t, t.TempDir(), "flagfold.yml", `schema_version: v1
options:
  observerCache: true
dialect: babel
serve:
  addr: ":7000"
  cache_size: 64
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, true, cfg.Options["observerCache"])
	assert.Equal(t, "babel", cfg.Dialect)
	assert.Equal(t, ":7000", cfg.Serve.Addr)
	assert.Equal(t, 64, cfg.Serve.CacheSize)
	assert.Empty(t, cfg.Log.Level)
}

func TestLoad_TOML(t *testing.T) {
	p := write(t, t.TempDir(), "flagfold.toml", `schema_version = "v1"
dialect = "estree"

[options]
observerCache = false

[log]
level = "debug"
json = true
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, false, cfg.Options["observerCache"])
	assert.Equal(t, "estree", cfg.Dialect)
	assert.Equal(t, LogCfg{Level: "debug", JSON: true}, cfg.Log)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Dialect)
	assert.Equal(t, ":50051", cfg.Serve.Addr)
	assert.Empty(t, cfg.Options)
}

func TestLoad_EnvOverrides(t *testing.T) {
	p := write(t, t.TempDir(), "flagfold.yml", "options:\n  observerCache: false\n")
	t.Setenv("FLAGFOLD__OPTIONS__OBSERVER_CACHE", "true")
	t.Setenv("FLAGFOLD__OPTIONS__LABEL", "'true'")
	t.Setenv("FLAGFOLD__SERVE__METRICS_ADDR", ":9090")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, true, cfg.Options["observerCache"])
	assert.Equal(t, "true", cfg.Options["label"])
	assert.Equal(t, ":9090", cfg.Serve.MetricsAddr)
}

func TestLoad_InvalidSchema(t *testing.T) {
	p := write(t, t.TempDir(), "flagfold.yml", "schema_version: v9\n")
	_, err := Load(p)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		key, value string
		wantKey    string
		wantVal    any
	}{
		{"FLAGFOLD__OPTIONS__OBSERVER_CACHE", "false", "options.observerCache", false},
		{"FLAGFOLD__OPTIONS__RETRIES", "3", "options.retries", float64(3)},
		{"FLAGFOLD__LOG__LEVEL", "warn", "log.level", "warn"},
		{"FLAGFOLD__OPTIONS__A__B", "x", "", nil},
		{"FLAGFOLD__", "x", "", nil},
	}
	for _, tt := range tests {
		k, v := envKey(tt.key, tt.value)
		assert.Equal(t, tt.wantKey, k, tt.key)
		assert.Equal(t, tt.wantVal, v, tt.key)
	}
}
