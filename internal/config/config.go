// Package config assembles runtime settings for the strata CLI and for
// embedders that want environment-driven wiring. Defaults first, then
// environment overrides; nothing here is process-global state.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Backend selects the persistence port implementation.
type Backend string

const (
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMemory   Backend = "memory"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// DSN renders the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// Config is the full runtime configuration.
type Config struct {
	// Backend picks the persistence port. Defaults to sqlite.
	Backend Backend

	// SQLitePath is the database file when Backend is sqlite.
	SQLitePath string

	// Postgres holds connection settings when Backend is postgres.
	Postgres DatabaseConfig

	// SchemaDir is the directory of CUE entity declarations.
	SchemaDir string

	// DefaultTenant substitutes for an empty tenant argument.
	DefaultTenant string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Backend:    BackendSQLite,
		SQLitePath: "strata.db",
		Postgres: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "strata",
			Database: "strata",
			SSLMode:  "disable",
			MaxConns: 10,
			MaxIdle:  2,
		},
		SchemaDir:     "schema",
		DefaultTenant: "default",
		LogLevel:      "info",
	}
}

// Load builds a configuration from defaults plus STRATA_* environment
// overrides.
func Load() (Config, error) {
	cfg := Default()

	if v := os.Getenv("STRATA_BACKEND"); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := os.Getenv("STRATA_DB_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("STRATA_SCHEMA_DIR"); v != "" {
		cfg.SchemaDir = v
	}
	if v := os.Getenv("STRATA_TENANT"); v != "" {
		cfg.DefaultTenant = v
	}
	if v := os.Getenv("STRATA_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	loadDatabaseEnv(&cfg.Postgres, "STRATA_PG")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: sqlite backend needs a database path")
		}
	case BackendPostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("config: postgres backend needs host and database")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.LogLevel)
	}
	return nil
}

func loadDatabaseEnv(c *DatabaseConfig, prefix string) {
	if v := os.Getenv(prefix + "_HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv(prefix + "_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(prefix + "_USER"); v != "" {
		c.User = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv(prefix + "_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv(prefix + "_SSLMODE"); v != "" {
		c.SSLMode = v
	}
}
