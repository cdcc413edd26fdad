// Package config loads runtime settings from FORMWIZARD_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config holds every runtime setting.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"ADDR" envDefault:":8080"`
	// Store selects the layout/user storage backend.
	Store string `env:"STORE" envDefault:"memory"`
	// DSN is the sqlite path or postgres connection string.
	DSN string `env:"DSN"`
	// Seed is a layout document loaded into an empty store. Empty uses the
	// embedded default layout.
	Seed string `env:"SEED"`
	// ValidateRequests toggles OpenAPI request validation.
	ValidateRequests bool `env:"VALIDATE_REQUESTS" envDefault:"true"`
	// ShutdownGrace bounds graceful HTTP shutdown.
	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"10s"`

	// ServerURL is where CLI commands reach a running server. Empty runs
	// them against the configured store in process.
	ServerURL string `env:"SERVER_URL"`

	// RedisAddr switches wizard state to Redis when set.
	RedisAddr string `env:"REDIS_ADDR"`
	// StateDir holds YAML wizard state files when Redis is not configured.
	StateDir string `env:"STATE_DIR" envDefault:".formwizard"`
	// StateTTL expires Redis wizard sessions.
	StateTTL time.Duration `env:"STATE_TTL" envDefault:"168h"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Prefix is prepended to every variable name.
const Prefix = "FORMWIZARD_"

// Load reads envFile (when it exists) into the process environment without
// overriding variables that are already set, then parses Config.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	return FromEnviron(os.Environ())
}

// FromEnviron parses Config from KEY=VALUE pairs.
func FromEnviron(environ []string) (Config, error) {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if ok {
			vars[key] = value
		}
	}
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: Prefix, Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("config: %sDSN is required for store %q", Prefix, c.Store)
		}
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}
	return nil
}
