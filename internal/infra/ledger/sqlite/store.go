// Package sqlite provides an embedded SQLite ledger backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"producechain/internal/infra/ledger/sqlkv"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DefaultPath is used when no path is configured.
const DefaultPath = "producechain.db"

// Dialect is the SQLite flavour of the ledger table.
var Dialect = sqlkv.Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	CreateTable: `CREATE TABLE IF NOT EXISTS ledger_state (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		version INTEGER NOT NULL
	)`,
}

// NewBackend opens (creating if needed) the SQLite file at path.
func NewBackend(ctx context.Context, path string) (*sqlkv.Backend, error) {
	if path == "" {
		path = DefaultPath
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serialises commits; SQLite allows a single writer anyway.
	db.SetMaxOpenConns(1)
	backend, err := sqlkv.New(ctx, db, Dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}
