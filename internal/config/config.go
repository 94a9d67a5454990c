// Package config provides configuration management for gridplan.
//
// Precedence (highest to lowest): CLI flags > environment variables
// (GRIDPLAN_ prefix) > config file (gridplan.yaml) > defaults.
package config

import (
	"fmt"
	"time"

	"github.com/gridplan-labs/gridplan/internal/store"
)

// Config holds all gridplan configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Solver   SolverConfig   `koanf:"solver"`
	Assist   AssistConfig   `koanf:"assist"`

	SeedsDir string `koanf:"seeds_dir"`
	Verbose  bool   `koanf:"verbose"`
	Output   string `koanf:"output"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host          string `koanf:"host"`
	Port          int    `koanf:"port"`
	Watch         bool   `koanf:"watch"`
	SessionSecret string `koanf:"session_secret"`
}

// DatabaseConfig configures the backing database.
type DatabaseConfig struct {
	Driver         string        `koanf:"driver"`
	Path           string        `koanf:"path"`
	Host           string        `koanf:"host"`
	Port           int           `koanf:"port"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Name           string        `koanf:"name"`
	SSLMode        string        `koanf:"ssl_mode"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// StoreConfig converts the database section into a store.Config.
func (d DatabaseConfig) StoreConfig() store.Config {
	return store.Config{
		Driver:         d.Driver,
		Path:           d.Path,
		Host:           d.Host,
		Port:           d.Port,
		User:           d.User,
		Password:       d.Password,
		Name:           d.Name,
		SSLMode:        d.SSLMode,
		ConnectTimeout: d.ConnectTimeout,
	}
}

// SolverConfig configures the timetable solver.
type SolverConfig struct {
	// Budget bounds a single solve. Zero disables the bound.
	Budget time.Duration `koanf:"budget"`
}

// AssistConfig configures the timetable Q&A assistant. The assistant is
// disabled when Endpoint is empty.
type AssistConfig struct {
	Endpoint   string `koanf:"endpoint"`
	APIKey     string `koanf:"api_key"`
	Deployment string `koanf:"deployment"`
}

// Enabled reports whether the assistant is configured.
func (a AssistConfig) Enabled() bool {
	return a.Endpoint != ""
}

// Default configuration values.
const (
	DefaultHost     = "0.0.0.0"
	DefaultPort     = 8000
	DefaultSeedsDir = "seeds"
	DefaultDriver   = store.DriverSQLite
	DefaultDBPath   = ".gridplan/gridplan.db"
	DefaultOutput   = "auto"
)

// DefaultSolveBudget bounds a solve unless configured otherwise.
const DefaultSolveBudget = 10 * time.Second

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	switch c.Database.Driver {
	case store.DriverPostgres:
		if c.Database.Name == "" {
			return fmt.Errorf("database name is required for the postgres driver")
		}
	case store.DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Solver.Budget < 0 {
		return fmt.Errorf("solver budget must not be negative")
	}
	switch c.Output {
	case "", "auto", "text", "json":
	default:
		return fmt.Errorf("unsupported output format %q", c.Output)
	}
	return nil
}
