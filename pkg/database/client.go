// Copyright 2025 Decentralized Rights Protocol
//
// Package database provides the persistent store for the Decision Ledger
// and Dispute/Oversight state machine: connection pooling, health checks,
// and migration support against the decision_records/disputes schema.
package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/Decentralized-Rights-Protocol/Dr-Blockchain-sub001/pkg/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// undefinedTableCode is PostgreSQL's SQLSTATE for "relation does not
// exist" (42P01), raised the first time MigrateUp queries
// schema_migrations before any migration has created it.
const undefinedTableCode = "42P01"

// Client is a pooled connection to the decision_records/disputes store.
type Client struct {
	db     *sql.DB
	config *config.DatabaseConfig
	logger *log.Logger
}

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger overrides the client's default logger.
func WithLogger(logger *log.Logger) ClientOption {
	return func(c *Client) { c.logger = logger }
}

// NewClient opens a pooled connection and confirms it is reachable before
// returning. cfg's pool-tuning fields (MaxOpenConns, MaxIdleConns,
// ConnMaxLifetime, ConnMaxIdleTime) are applied before the reachability
// check so a misconfigured pool fails fast at startup rather than under
// load.
func NewClient(cfg *config.DatabaseConfig, opts ...ClientOption) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config cannot be nil")
	}

	c := &Client{
		config: cfg,
		logger: log.New(log.Writer(), "[Database] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	c.db = db

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	c.logger.Printf("connected to database (max_open=%d, max_idle=%d, idle_timeout=%s)",
		cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxIdleTime)
	return c, nil
}

// DB exposes the underlying pool for repositories that need raw SQL access.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	c.logger.Println("closing database connection")
	return c.db.Close()
}

// Ping checks that the store is currently reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// HealthStatus is a point-in-time snapshot of the store's reachability and
// pool utilization.
type HealthStatus struct {
	Healthy            bool          `json:"healthy"`
	Error              string        `json:"error,omitempty"`
	Version            string        `json:"version,omitempty"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
	MaxOpenConnections int           `json:"max_open_connections"`
	CheckedAt          time.Time     `json:"checked_at"`
}

// Health reports reachability, pool stats, and the server version. A
// failed ping is reported in the returned status rather than as an error,
// so a caller can serve a degraded health response instead of a 500.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{CheckedAt: time.Now()}

	if err := c.db.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.Healthy = true

	poolStats := c.db.Stats()
	status.OpenConnections = poolStats.OpenConnections
	status.InUse = poolStats.InUse
	status.Idle = poolStats.Idle
	status.WaitCount = poolStats.WaitCount
	status.WaitDuration = poolStats.WaitDuration
	status.MaxOpenConnections = poolStats.MaxOpenConnections

	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err == nil {
		status.Version = version
	}
	return status, nil
}

// Migration is one embedded schema_migrations entry.
type Migration struct {
	Version  string
	Filename string
	SQL      string
}

// MigrationInfo reports whether a known migration has been applied.
type MigrationInfo struct {
	Version string `json:"version"`
	Applied bool   `json:"applied"`
}

// MigrateUp applies every embedded migration not yet recorded in
// schema_migrations, in version order.
func (c *Client) MigrateUp(ctx context.Context) error {
	c.logger.Println("running database migrations")

	migrations, err := c.loadMigrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	applied, err := c.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("list applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			c.logger.Printf("skipping %s (already applied)", m.Version)
			continue
		}
		c.logger.Printf("applying %s", m.Version)
		if err := c.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
	}

	c.logger.Println("migrations complete")
	return nil
}

// MigrationStatus reports every embedded migration and whether it has run.
func (c *Client) MigrationStatus(ctx context.Context) ([]MigrationInfo, error) {
	migrations, err := c.loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	applied, err := c.appliedMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}

	status := make([]MigrationInfo, 0, len(migrations))
	for _, m := range migrations {
		status = append(status, MigrationInfo{Version: m.Version, Applied: applied[m.Version]})
	}
	return status, nil
}

// loadMigrations reads every embedded *.sql file, sorted by the filename's
// version prefix (e.g. "001_initial_schema.sql" sorts before
// "002_disputes.sql").
func (c *Client) loadMigrations() ([]Migration, error) {
	var migrations []Migration
	err := fs.WalkDir(migrationsFS, "migrations", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		content, err := migrationsFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		migrations = append(migrations, Migration{
			Version:  strings.TrimSuffix(d.Name(), ".sql"),
			Filename: d.Name(),
			SQL:      string(content),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

// appliedMigrations queries schema_migrations for versions already run. A
// not-yet-created table (SQLSTATE 42P01) is not an error: the first
// migration in the embedded set is responsible for creating the table.
func (c *Client) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == undefinedTableCode {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// applyMigration runs one migration's SQL in a transaction. The migration
// file itself is responsible for recording its version in
// schema_migrations (typically via INSERT ... ON CONFLICT DO NOTHING).
func (c *Client) applyMigration(ctx context.Context, m Migration) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute migration sql: %w", err)
	}
	return tx.Commit()
}

// Tx wraps a *sql.Tx so repositories depend on this package's interface
// rather than database/sql directly.
type Tx struct {
	tx *sql.Tx
}

// BeginTx starts a transaction against the pool.
func (c *Client) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// Tx exposes the underlying *sql.Tx for repositories that need raw access.
func (t *Tx) Tx() *sql.Tx { return t.tx }

// ExecContext runs a query that returns no rows against the pool.
func (c *Client) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query returning zero or more rows against the pool.
func (c *Client) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext runs a query returning at most one row against the pool.
func (c *Client) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}
