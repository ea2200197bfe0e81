// Package config loads the terminal client's configuration from
// ~/.deepwatch/config.yaml, with environment and flag overrides layered on
// top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server is the backend base URL.
	Server string `yaml:"server"`
	// TimeoutSeconds bounds every backend request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// SessionFile overrides where the session triplet is stored.
	SessionFile string `yaml:"session_file"`
}

func (c *Config) setDefaults() {
	if c.Server == "" {
		c.Server = "http://localhost:8000"
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 10
	}
}

// Dir returns the client state directory (~/.deepwatch).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".deepwatch")
}

// Path returns the default config file location.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads the config at path. A missing file yields defaults; the
// DEEPWATCH_SERVER environment variable overrides the server URL either
// way.
func Load(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	case err != nil:
		return Config{}, err
	default:
		if err := yaml.Unmarshal(data, &c); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if env := strings.TrimSpace(os.Getenv("DEEPWATCH_SERVER")); env != "" {
		c.Server = strings.TrimRight(env, "/")
	}
	c.setDefaults()
	return c, nil
}
