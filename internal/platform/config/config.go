// Copyright (c) 2026 Buttdialer. All rights reserved.
// Author: Buttdialer contributors

/*
Package config handles client-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to the API client, session store, and softphone via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/FarisAlahmad714/Buttdialer/internal/platform/constants"
)

// # Backends

const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"

	JournalBackendSQLite   = "sqlite"
	JournalBackendPostgres = "postgres"
	JournalBackendNone     = "none"
)

// # Configuration Schema

// Config holds all runtime configuration for the dialer client.
type Config struct {

	// General settings
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Debug       bool   `env:"DEBUG"       envDefault:"false"`

	// Backend API
	APIBaseURL string        `env:"API_BASE_URL" envDefault:"http://localhost:8000"`
	APITimeout time.Duration `env:"API_TIMEOUT"  envDefault:"10s"`

	// LoginHint is printed when an authorization failure forces a logout.
	LoginHint string `env:"LOGIN_HINT" envDefault:"Session expired. Run 'dialer login' to sign in again."`

	// StateDir holds the file-backed storage and the SQLite journal.
	// Defaults to $XDG_CONFIG_HOME/buttdialer when empty.
	StateDir string `env:"STATE_DIR"`

	// Session persistence
	SessionBackend string `env:"SESSION_BACKEND" envDefault:"file"`
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"dialer:"`

	// Voice gateway (WebSocket)
	VoiceGatewayURL string `env:"VOICE_GATEWAY_URL" envDefault:"ws://localhost:8000/voice/ws"`

	// Call journal
	JournalBackend string `env:"JOURNAL_BACKEND" envDefault:"sqlite"`
	JournalPath    string `env:"JOURNAL_PATH"`
	DatabaseURL    string `env:"DATABASE_URL"`

	// MigrationPath overrides the embedded journal migrations with a
	// directory on disk. Empty means embedded.
	MigrationPath string `env:"MIGRATION_PATH"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and resolves
// derived paths.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// resolve fills the path defaults that depend on the user's home.
func (c *Config) resolve() error {
	if c.StateDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("config: failed to resolve config dir: %w", err)
		}
		c.StateDir = filepath.Join(base, constants.AppName)
	}
	if c.JournalPath == "" {
		c.JournalPath = filepath.Join(c.StateDir, constants.JournalFileName)
	}
	return nil
}

// Validate reports inconsistent backend selections.
func (c *Config) Validate() error {
	switch c.SessionBackend {
	case SessionBackendFile, SessionBackendMemory:
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("config: REDIS_URL is required when SESSION_BACKEND=redis")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.SessionBackend)
	}

	switch c.JournalBackend {
	case JournalBackendSQLite, JournalBackendNone:
	case JournalBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when JOURNAL_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("config: unknown JOURNAL_BACKEND %q", c.JournalBackend)
	}

	if c.APITimeout <= 0 {
		c.APITimeout = constants.DefaultRequestTimeout
	}
	return nil
}

// IsDevelopment reports whether the client is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
