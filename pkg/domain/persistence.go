package domain

import (
	"context"
	"strings"
	"time"
)

// KV is one key/value pair returned by a range scan.
type KV struct {
	Key   string
	Value []byte
}

// StateIterator walks range scan results in ascending key order.
type StateIterator interface {
	HasNext() bool
	Next() (KV, error)
	Close() error
}

// Ledger is the key-value contract the engine reads and writes through. A
// missing key reads as (nil, nil). Range scans cover [startKey, endKey) and
// treat empty bounds as unbounded.
type Ledger interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	GetStateByRange(startKey, endKey string) (StateIterator, error)
}

// Identity is the per-operation caller and deterministic transaction context.
type Identity interface {
	CallerOrg() (string, error)
	TxID() string
	TxTimestamp() (time.Time, error)
}

// Transaction is the atomic scope one operation runs in.
type Transaction interface {
	Ledger
	Identity
}

// PersistentStore runs operations against a durable local ledger.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, callerOrg string, fn func(Transaction) error) error
	View(ctx context.Context, callerOrg string, fn func(Transaction) error) error
	Close() error
}

// IsAssetKey reports whether key lives in the asset key space.
func IsAssetKey(key string) bool {
	return strings.HasPrefix(key, AssetKeyPrefix)
}

// AssetID derives the asset id for a registration in transaction txID.
func AssetID(txID string) string {
	return AssetKeyPrefix + txID
}

// ChildAssetID derives the id of the child created by splitting parentID in transaction txID.
func ChildAssetID(parentID, txID string) string {
	return parentID + "-" + txID + "-CHILD"
}

// DefaultParticipantID is assigned when registration details omit an id.
func DefaultParticipantID(txID string) string {
	return "USER-" + txID
}

// CanonicalTimestamp truncates a transaction timestamp to milliseconds in UTC.
func CanonicalTimestamp(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Millisecond)
}
