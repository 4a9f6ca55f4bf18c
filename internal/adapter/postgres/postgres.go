// Package postgres implements the domain repositories using PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"healthtrack/db/migrations"
)

// DefaultTimeout bounds every record store call.
const DefaultTimeout = 10 * time.Second

// DB wraps a *sql.DB and implements domain repository interfaces.
type DB struct {
	sql     *sql.DB
	timeout time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithTimeout sets the per-call deadline for record store operations. A
// non-positive value disables it.
func WithTimeout(d time.Duration) Option {
	return func(db *DB) { db.timeout = d }
}

// New wraps an already opened connection. It does not run migrations.
func New(s *sql.DB, opts ...Option) *DB {
	d := &DB{sql: s, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string, opts ...Option) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	if err := runMigrations(s); err != nil {
		_ = s.Close()
		return nil, err
	}
	return New(s, opts...), nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Ping reports whether the database is reachable.
func (d *DB) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}

func runMigrations(s *sql.DB) error {
	driver, err := pgmigrate.WithInstance(s, &pgmigrate.Config{})
	if err != nil {
		return fmt.Errorf("migrate: init driver: %w", err)
	}

	source, err := iofs.New(migrations.Postgres, "postgres")
	if err != nil {
		return fmt.Errorf("migrate: load embedded migrations: %w", err)
	}
	defer func() {
		_ = source.Close()
	}()

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate: apply: %w", err)
	}
	return nil
}
