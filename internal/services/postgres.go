package services

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// PostgresProvider holds a database/sql connection used for the read-only
// reporting queries. It may point at a replica of the primary database.
type PostgresProvider struct {
	BaseProvider
	db   *sql.DB
	host string
}

// PostgresOptions tunes the reporting connection pool
type PostgresOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// NewPostgresProvider opens and pings a lib/pq connection pool
func NewPostgresProvider(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.MaxLifetime)
	} else {
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresProvider{
		BaseProvider: BaseProvider{serviceType: "postgres"},
		db:           db,
		host:         dsnHost(dsn),
	}, nil
}

// DB returns the connection pool
func (p *PostgresProvider) DB() *sql.DB {
	return p.db
}

// Host returns the database host, for logging
func (p *PostgresProvider) Host() string {
	return p.host
}

// HealthCheck verifies PostgreSQL connectivity
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the connection pool
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}

// dsnHost extracts host:port from a URL style DSN without credentials
func dsnHost(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
