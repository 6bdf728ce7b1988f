package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv(EnvConfigDir, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadExplicitMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
[model]
path = "/models/wiki.en.vec.gz"
hnsw = true

[query]
k = 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/models/wiki.en.vec.gz", cfg.Model.Path)
	assert.True(t, cfg.Model.HNSW)
	assert.Equal(t, 5, cfg.Query.K)
	assert.Equal(t, "predict", cfg.Query.Op)
	assert.Equal(t, 4, cfg.Query.Workers)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "[model]\npth = \"x\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model.pth")
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := Load(writeConfig(t, "[model\n"))
	assert.Error(t, err)
}

func TestDirResolution(t *testing.T) {
	t.Setenv(EnvConfigDir, "/etc/ft")
	assert.Equal(t, "/etc/ft", Dir())
	assert.Equal(t, "/etc/ft/config.toml", Path())

	t.Setenv(EnvConfigDir, "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, "/xdg/fasttext", Dir())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"bad op", func(c *Config) { c.Query.Op = "train" }, false},
		{"no workers", func(c *Config) { c.Query.Workers = 0 }, false},
		{"negative ef", func(c *Config) { c.Model.EfSearch = -1 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if tt.ok {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestResolve(t *testing.T) {
	cfg := Default()
	cfg.Model.Path = "from-config.vec"

	t.Setenv(EnvModel, "")
	t.Setenv(EnvLogLevel, "")
	assert.Equal(t, "from-config.vec", ResolveModel(cfg))
	assert.Equal(t, "warn", ResolveLogLevel(cfg))

	t.Setenv(EnvModel, "from-env.vec")
	t.Setenv(EnvLogLevel, "debug")
	assert.Equal(t, "from-env.vec", ResolveModel(cfg))
	assert.Equal(t, "debug", ResolveLogLevel(cfg))

	assert.Equal(t, "from-env.vec", ResolveModel(nil))
}
