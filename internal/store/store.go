// Package store persists courses, rooms, and solve runs in a SQL database.
//
// Postgres (via pgx) is the production target; SQLite (via modernc) backs
// local development and tests. Queries are written once with ? placeholders
// and rebound for the postgres dialect.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection settings.
type Config struct {
	Driver string

	// SQLite
	Path string

	// Postgres
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	// ConnectTimeout bounds startup connection retries. The service often
	// starts before its database does, so Open keeps retrying with backoff
	// until this elapses.
	ConnectTimeout time.Duration
}

// Store wraps the SQL database handle.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the configured database and verifies the connection,
// retrying with fibonacci backoff until cfg.ConnectTimeout elapses.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var driverName, dsn string
	switch cfg.Driver {
	case DriverPostgres:
		driverName = "pgx"
		dsn = buildPostgresDSN(cfg)
	case DriverSQLite:
		driverName = "sqlite"
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = cfg.Path
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logger.Debug("opening database", slog.String("driver", cfg.Driver))

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Driver == DriverSQLite {
		// Single writer; also keeps :memory: databases on one connection.
		db.SetMaxOpenConns(1)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	backoff := retry.WithMaxDuration(timeout, retry.NewFibonacci(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			logger.Debug("database not ready, retrying", slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db, driver: cfg.Driver, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.driver
}

// buildPostgresDSN constructs a key=value postgres connection string.
func buildPostgresDSN(cfg Config) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s", host, port, cfg.Name, sslmode)
	if cfg.User != "" {
		dsn += fmt.Sprintf(" user=%s", cfg.User)
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", cfg.Password)
	}
	return dsn
}

// rebind converts ? placeholders to $1..$n for the postgres dialect.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
