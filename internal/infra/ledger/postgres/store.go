// Package postgres provides a PostgreSQL ledger backend using the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"

	"producechain/internal/infra/ledger/sqlkv"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/producechain?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect is the PostgreSQL flavour of the ledger table. Version checks lock
// the rows they read until the commit finishes.
var Dialect = sqlkv.Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	CreateTable: `CREATE TABLE IF NOT EXISTS ledger_state (
		key TEXT PRIMARY KEY,
		value BYTEA NOT NULL,
		version BIGINT NOT NULL
	)`,
	LockSuffix: " FOR UPDATE",
}

// NewBackend connects to dsn (DefaultDSN when empty) and ensures the ledger table exists.
func NewBackend(ctx context.Context, dsn string) (*sqlkv.Backend, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	backend, err := sqlkv.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
