// Package ledger provides the local transactional substrate: an overlay Store
// that tracks the read and write sets of one operation and commits them
// optimistically against a versioned key-value Backend.
package ledger

import (
	"context"

	"producechain/pkg/domain"
)

// Record is a stored value with its version. Versions start at 1; an absent key has version 0.
type Record struct {
	Key     string
	Value   []byte
	Version uint64
}

// Read is one entry of a transaction's read set.
type Read struct {
	Key     string
	Version uint64
}

// Write is one entry of a transaction's write set.
type Write struct {
	Key   string
	Value []byte
}

// Backend is a versioned key-value store.
type Backend interface {
	// Get returns the record stored under key. The boolean is false when absent.
	Get(ctx context.Context, key string) (Record, bool, error)
	// Range returns records with start <= key < end in ascending key order.
	// Empty bounds are unbounded.
	Range(ctx context.Context, start, end string) ([]Record, error)
	// Commit atomically verifies every read version and applies the writes,
	// bumping their versions. It returns a conflict error and writes nothing
	// when any read is stale.
	Commit(ctx context.Context, reads []Read, writes []Write) error
	Close() error
}

// Conflict builds the error backends return for a stale read.
func Conflict(key string, want, got uint64) error {
	return domain.NewError(domain.ErrConflict, "", key, "key %s read at version %d, now at %d", key, want, got)
}

// InRange reports whether key lies in [start, end) with empty bounds unbounded.
func InRange(key, start, end string) bool {
	if start != "" && key < start {
		return false
	}
	if end != "" && key >= end {
		return false
	}
	return true
}
