// Package database is the read-only accessor for the telemetry store. The
// relations it queries (net, cpu, mem, system) are written by an external
// collector; every query here selects, none mutate.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"teledash/internal/config"
	"teledash/internal/models"
)

// DB wraps the shared connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New opens the bounded connection pool against cfg.DatabaseURL.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pc.MaxConns = cfg.PoolMaxConns
	pc.MaxConnIdleTime = cfg.PoolIdleTimeout
	pc.ConnConfig.ConnectTimeout = cfg.PoolAcquireTimeout
	if cfg.DatabaseTLSSkipVerify && pc.ConnConfig.TLSConfig != nil {
		pc.ConnConfig.TLSConfig.InsecureSkipVerify = true
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.pool.Close()
}

// HealthCheck pings the store.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// PoolStats snapshots the pool counters for response diagnostics. Read-only;
// nothing makes control decisions from these numbers.
func (db *DB) PoolStats() models.PoolDiagnostics {
	s := db.pool.Stat()
	return models.PoolDiagnostics{
		TotalConns:     s.TotalConns(),
		IdleConns:      s.IdleConns(),
		AcquiredConns:  s.AcquiredConns(),
		WaitedAcquires: s.EmptyAcquireCount(),
	}
}

// Stat exposes the raw pool counters for the Prometheus collector.
func (db *DB) Stat() *pgxpool.Stat {
	return db.pool.Stat()
}

// ErrorDetails extracts the store-specific code and detail from a query
// error when the server reported one. Connectivity and acquire-timeout
// failures have no server-side code and return ok=false.
func ErrorDetails(err error) (code, detail string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.Message, true
	}
	return "", "", false
}
