// Package daemon manages the minex daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all daemon configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Auth      AuthConfig      `toml:"auth"`
	Storage   StorageConfig   `toml:"storage"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// AuthConfig controls authentication and the role cache.
// Tokens maps static access tokens to subjects; Roles maps subjects to
// their role names. A production deployment replaces both with an identity
// provider.
type AuthConfig struct {
	RoleCacheTTL string              `toml:"role_cache_ttl"`
	Tokens       map[string]string   `toml:"tokens"`
	Roles        map[string][]string `toml:"roles"`
}

// StorageConfig controls record persistence.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// TelemetryConfig controls observability endpoints.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8334,
		},
		Auth: AuthConfig{
			RoleCacheTTL: "5m",
		},
		Storage: StorageConfig{
			Dir: minexHome(),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// RoleCacheTTL parses the configured cache window, falling back to five
// minutes on a missing or unparseable value.
func (c Config) RoleCacheTTL() time.Duration {
	d, err := time.ParseDuration(c.Auth.RoleCacheTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// LoadConfig reads config from ~/.minex/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(minexHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the config to ~/.minex/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(minexHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// minexHome returns the minex data directory.
func minexHome() string {
	if env := os.Getenv("MINEX_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".minex")
}

// MinexHome is exported for use by other packages.
func MinexHome() string {
	return minexHome()
}
