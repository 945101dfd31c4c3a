// Package memory provides an in-memory versioned ledger backend used for tests
// and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"

	"producechain/internal/ledger"
)

var _ ledger.Backend = (*Backend)(nil)

type entry struct {
	value   []byte
	version uint64
}

// Backend keeps every key in a map guarded by a mutex.
type Backend struct {
	mu    sync.RWMutex
	state map[string]entry
}

// NewBackend constructs an empty backend.
func NewBackend() *Backend {
	return &Backend{state: make(map[string]entry)}
}

// Get implements ledger.Backend.
func (b *Backend) Get(_ context.Context, key string) (ledger.Record, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	e, ok := b.state[key]
	if !ok {
		return ledger.Record{}, false, nil
	}
	return ledger.Record{Key: key, Value: clone(e.value), Version: e.version}, true, nil
}

// Range implements ledger.Backend.
func (b *Backend) Range(_ context.Context, start, end string) ([]ledger.Record, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]ledger.Record, 0, len(b.state))
	for key, e := range b.state {
		if !ledger.InRange(key, start, end) {
			continue
		}
		out = append(out, ledger.Record{Key: key, Value: clone(e.value), Version: e.version})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Commit implements ledger.Backend.
func (b *Backend) Commit(_ context.Context, reads []ledger.Read, writes []ledger.Write) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range reads {
		if current := b.state[r.Key].version; current != r.Version {
			return ledger.Conflict(r.Key, r.Version, current)
		}
	}
	for _, w := range writes {
		e := b.state[w.Key]
		b.state[w.Key] = entry{value: clone(w.Value), version: e.version + 1}
	}
	return nil
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.state)
}

// Close implements ledger.Backend.
func (b *Backend) Close() error { return nil }

func clone(v []byte) []byte {
	if v == nil {
		return nil
	}
	return append([]byte(nil), v...)
}
