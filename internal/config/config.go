// Package config loads the fasttext CLI configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Environment overrides.
const (
	EnvModel     = "FASTTEXT_MODEL"
	EnvLogLevel  = "FASTTEXT_LOG_LEVEL"
	EnvConfigDir = "FASTTEXT_CONFIG_DIR"
)

// Config is the CLI configuration.
type Config struct {
	Model   ModelConfig   `toml:"model"`
	Query   QueryConfig   `toml:"query"`
	Logging LoggingConfig `toml:"logging"`
}

// ModelConfig selects the model file and index.
type ModelConfig struct {
	Path string `toml:"path"`
	// HNSW enables approximate neighbour search.
	HNSW     bool `toml:"hnsw"`
	EfSearch int  `toml:"ef_search"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	Op      string `toml:"op"`
	K       int    `toml:"k"`
	Workers int    `toml:"workers"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Query: QueryConfig{
			Op:      "predict",
			K:       10,
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Dir returns the config directory.
// Resolution order: $FASTTEXT_CONFIG_DIR > $XDG_CONFIG_HOME/fasttext > ~/.config/fasttext
func Dir() string {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "fasttext")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "fasttext-config")
	}
	return filepath.Join(home, ".config", "fasttext")
}

// Path returns the default config file path.
func Path() string {
	return filepath.Join(Dir(), "config.toml")
}

// Load reads the config at path, or at Path() if path is empty. A missing
// default file yields Default(); a missing explicit file is an error.
// Fields absent from the file keep their default values.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = Path()
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, keys[0].String())
	}
	return cfg, nil
}

// Validate reports configuration problems.
func (c *Config) Validate() error {
	switch c.Query.Op {
	case "predict", "nn", "analogies", "wordvec", "dim":
	default:
		return fmt.Errorf("query.op: unknown operation %q", c.Query.Op)
	}
	if c.Query.Workers < 1 {
		return fmt.Errorf("query.workers: must be at least 1, got %d", c.Query.Workers)
	}
	if c.Model.EfSearch < 0 {
		return fmt.Errorf("model.ef_search: must not be negative")
	}
	return nil
}

// ResolveModel returns the model path.
// Priority: $FASTTEXT_MODEL env > config value.
func ResolveModel(cfg *Config) string {
	if p := os.Getenv(EnvModel); p != "" {
		return p
	}
	if cfg != nil {
		return cfg.Model.Path
	}
	return ""
}

// ResolveLogLevel returns the log level.
// Priority: $FASTTEXT_LOG_LEVEL env > config value.
func ResolveLogLevel(cfg *Config) string {
	if l := os.Getenv(EnvLogLevel); l != "" {
		return l
	}
	if cfg != nil {
		return cfg.Logging.Level
	}
	return ""
}
