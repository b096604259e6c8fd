// Package config loads the grove command-line configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

const (
	defaultMeshCells   = 200
	defaultLogLevel    = "info"
	defaultEvalTimeout = 5 * time.Second
)

// Config holds the settings shared by the grove commands.
type Config struct {
	// Seed is the root seed of a generation pass.
	Seed uint64 `yaml:"seed"`

	// MeshCells is the marching-cubes resolution used for previews.
	MeshCells int `yaml:"mesh_cells"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`

	// EvalTimeout bounds a single Lisp source evaluation.
	EvalTimeout time.Duration `yaml:"eval_timeout"`

	// Entries names the modules to generate. Empty means the graph's own
	// entry list.
	Entries []string `yaml:"entries,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		MeshCells:   defaultMeshCells,
		LogLevel:    defaultLogLevel,
		EvalTimeout: defaultEvalTimeout,
	}
}

// Load reads the configuration at path. An empty path or a missing file
// yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MeshCells == 0 {
		c.MeshCells = defaultMeshCells
	}
	if c.EvalTimeout == 0 {
		c.EvalTimeout = defaultEvalTimeout
	}
	entries := c.Entries[:0]
	for _, e := range c.Entries {
		if e = strings.TrimSpace(e); e != "" {
			entries = append(entries, e)
		}
	}
	c.Entries = entries
}

// Validate reports the first setting that cannot be used.
func (c Config) Validate() error {
	if c.MeshCells < 0 {
		return fmt.Errorf("mesh_cells must be positive, got %d", c.MeshCells)
	}
	if c.EvalTimeout < 0 {
		return fmt.Errorf("eval_timeout must be positive, got %s", c.EvalTimeout)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// Logger returns the logger the configuration describes, writing to w.
func (c Config) Logger(name string, w io.Writer) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      hclog.LevelFromString(c.LogLevel),
		Output:     w,
		JSONFormat: c.LogJSON,
	})
}
