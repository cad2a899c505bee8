package app

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds all the necessary configuration for an App instance to run.
// Environment variables override the values parsed from the command line.
type Config struct {
	// RootFolder is the dynamic files root holding the system/ and modules/
	// trees. Defaults to "files".
	RootFolder string `env:"MAGIC_ROOT_FOLDER"`

	ListenAddr     string   `env:"MAGIC_LISTEN_ADDR"`
	AuthSecret     string   `env:"MAGIC_AUTH_SECRET"`
	AllowedOrigins []string `env:"MAGIC_ALLOWED_ORIGINS" envSeparator:","`

	LogFormat string `env:"MAGIC_LOG_FORMAT"`
	LogLevel  string `env:"MAGIC_LOG_LEVEL"`
}

// NewConfig applies environment overrides, fills defaults, and validates.
func NewConfig(cfg Config) (*Config, error) {
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment overrides: %w", err)
	}

	if cfg.RootFolder == "" {
		cfg.RootFolder = "files"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	return &cfg, nil
}

// SystemRoot resolves the logical "system/" root to a filesystem path.
func (c *Config) SystemRoot() string {
	return filepath.Join(c.RootFolder, "system")
}

// ModulesRoot resolves the logical "modules/" root to a filesystem path.
func (c *Config) ModulesRoot() string {
	return filepath.Join(c.RootFolder, "modules")
}
