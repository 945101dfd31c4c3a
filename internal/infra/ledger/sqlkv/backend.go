// Package sqlkv implements ledger.Backend over a database/sql handle holding a
// single ledger_state(key, value, version) table. Dialects supply placeholder
// syntax, DDL and row locking.
package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"producechain/internal/ledger"
)

var _ ledger.Backend = (*Backend)(nil)

// Dialect captures the SQL differences between engines.
type Dialect struct {
	Name string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// CreateTable is executed once on open.
	CreateTable string
	// LockSuffix is appended to version checks inside a commit, e.g. " FOR UPDATE".
	LockSuffix string
}

// Backend is a versioned key-value store on a SQL table.
type Backend struct {
	db      *sql.DB
	dialect Dialect
}

// New ensures the ledger table exists and returns a backend over db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Backend, error) {
	if _, err := db.ExecContext(ctx, dialect.CreateTable); err != nil {
		return nil, fmt.Errorf("create ledger_state table: %w", err)
	}
	return &Backend{db: db, dialect: dialect}, nil
}

// DB exposes the underlying handle for integration testing hooks.
func (b *Backend) DB() *sql.DB { return b.db }

func (b *Backend) q(query string) string {
	// Queries are written with ? placeholders and rewritten per dialect.
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString(b.dialect.Placeholder(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// Get implements ledger.Backend.
func (b *Backend) Get(ctx context.Context, key string) (ledger.Record, bool, error) {
	rec := ledger.Record{Key: key}
	err := b.db.QueryRowContext(ctx, b.q(`SELECT value, version FROM ledger_state WHERE key = ?`), key).Scan(&rec.Value, &rec.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Record{}, false, nil
	}
	if err != nil {
		return ledger.Record{}, false, fmt.Errorf("%s get %s: %w", b.dialect.Name, key, err)
	}
	return rec, true, nil
}

// Range implements ledger.Backend.
func (b *Backend) Range(ctx context.Context, start, end string) ([]ledger.Record, error) {
	query := `SELECT key, value, version FROM ledger_state WHERE key >= ?`
	args := []any{start}
	if end != "" {
		query += ` AND key < ?`
		args = append(args, end)
	}
	query += ` ORDER BY key`
	rows, err := b.db.QueryContext(ctx, b.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("%s range: %w", b.dialect.Name, err)
	}
	defer func() { _ = rows.Close() }()
	var out []ledger.Record
	for rows.Next() {
		var rec ledger.Record
		if err := rows.Scan(&rec.Key, &rec.Value, &rec.Version); err != nil {
			return nil, fmt.Errorf("%s scan: %w", b.dialect.Name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s iterate: %w", b.dialect.Name, err)
	}
	return out, nil
}

// Commit implements ledger.Backend. Writes of keys that were read are
// conditional on the read version, so a concurrent commit that slipped in
// between the version check and the write still aborts this one.
func (b *Backend) Commit(ctx context.Context, reads []ledger.Read, writes []ledger.Write) (retErr error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s begin: %w", b.dialect.Name, err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	readVersions := make(map[string]uint64, len(reads))
	for _, r := range reads {
		readVersions[r.Key] = r.Version
		var current uint64
		err := tx.QueryRowContext(ctx, b.q(`SELECT version FROM ledger_state WHERE key = ?`+b.dialect.LockSuffix), r.Key).Scan(&current)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s check %s: %w", b.dialect.Name, r.Key, err)
		}
		if current != r.Version {
			return ledger.Conflict(r.Key, r.Version, current)
		}
	}

	for _, w := range writes {
		version, read := readVersions[w.Key]
		var (
			res sql.Result
			err error
		)
		switch {
		case !read:
			res, err = tx.ExecContext(ctx, b.q(`INSERT INTO ledger_state(key, value, version) VALUES(?, ?, 1)
				ON CONFLICT(key) DO UPDATE SET value = excluded.value, version = ledger_state.version + 1`), w.Key, w.Value)
		case version == 0:
			res, err = tx.ExecContext(ctx, b.q(`INSERT INTO ledger_state(key, value, version) VALUES(?, ?, 1) ON CONFLICT(key) DO NOTHING`), w.Key, w.Value)
		default:
			res, err = tx.ExecContext(ctx, b.q(`UPDATE ledger_state SET value = ?, version = version + 1 WHERE key = ? AND version = ?`), w.Value, w.Key, version)
		}
		if err != nil {
			return fmt.Errorf("%s write %s: %w", b.dialect.Name, w.Key, err)
		}
		if read {
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("%s write %s: %w", b.dialect.Name, w.Key, err)
			}
			if n != 1 {
				return ledger.Conflict(w.Key, version, version+1)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s commit: %w", b.dialect.Name, err)
	}
	return nil
}

// Close implements ledger.Backend.
func (b *Backend) Close() error { return b.db.Close() }
