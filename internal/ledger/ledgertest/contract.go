// Package ledgertest holds the behavioural contract every ledger.Backend must
// satisfy, shared by the backend test suites.
package ledgertest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"producechain/internal/ledger"
	"producechain/pkg/domain"
)

// RunBackendContract exercises versioning, optimistic commits and range scans
// against backends built by newBackend. Each subtest gets a fresh backend.
func RunBackendContract(t *testing.T, newBackend func(t *testing.T) ledger.Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		b := newBackend(t)
		if _, ok, err := b.Get(ctx, "PRODUCE-none"); err != nil || ok {
			t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("blind writes start at version one", func(t *testing.T) {
		b := newBackend(t)
		mustCommit(t, b, nil, []ledger.Write{{Key: "a", Value: []byte("1")}, {Key: "b", Value: []byte("2")}})
		rec := mustGet(t, b, "a")
		if string(rec.Value) != "1" || rec.Version != 1 {
			t.Fatalf("unexpected record %+v", rec)
		}
		mustCommit(t, b, nil, []ledger.Write{{Key: "a", Value: []byte("3")}})
		if rec := mustGet(t, b, "a"); string(rec.Value) != "3" || rec.Version != 2 {
			t.Fatalf("blind overwrite should bump version, got %+v", rec)
		}
	})

	t.Run("read then write", func(t *testing.T) {
		b := newBackend(t)
		mustCommit(t, b, nil, []ledger.Write{{Key: "a", Value: []byte("1")}})
		mustCommit(t, b, []ledger.Read{{Key: "a", Version: 1}, {Key: "fresh", Version: 0}},
			[]ledger.Write{{Key: "a", Value: []byte("2")}, {Key: "fresh", Value: []byte("x")}})
		if rec := mustGet(t, b, "a"); rec.Version != 2 || string(rec.Value) != "2" {
			t.Fatalf("unexpected record %+v", rec)
		}
		if rec := mustGet(t, b, "fresh"); rec.Version != 1 {
			t.Fatalf("unexpected record %+v", rec)
		}
	})

	t.Run("stale read conflicts and writes nothing", func(t *testing.T) {
		b := newBackend(t)
		mustCommit(t, b, nil, []ledger.Write{{Key: "a", Value: []byte("1")}})
		mustCommit(t, b, nil, []ledger.Write{{Key: "a", Value: []byte("2")}})
		err := b.Commit(ctx, []ledger.Read{{Key: "a", Version: 1}},
			[]ledger.Write{{Key: "other", Value: []byte("x")}, {Key: "a", Value: []byte("lost")}})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
		if _, ok, _ := b.Get(ctx, "other"); ok {
			t.Fatalf("conflicting commit leaked a write")
		}
		if rec := mustGet(t, b, "a"); string(rec.Value) != "2" {
			t.Fatalf("conflicting commit overwrote value: %+v", rec)
		}
	})

	t.Run("absent read conflicts with concurrent create", func(t *testing.T) {
		b := newBackend(t)
		mustCommit(t, b, nil, []ledger.Write{{Key: "k", Value: []byte("first")}})
		err := b.Commit(ctx, []ledger.Read{{Key: "k", Version: 0}}, []ledger.Write{{Key: "k", Value: []byte("second")}})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}
	})

	t.Run("range", func(t *testing.T) {
		b := newBackend(t)
		mustCommit(t, b, nil, []ledger.Write{
			{Key: "PRODUCE-b", Value: []byte("b")},
			{Key: "FARMER-x", Value: []byte("x")},
			{Key: "PRODUCE-a", Value: []byte("a")},
			{Key: "RETAILER-y", Value: []byte("y")},
		})
		if got := keys(t, b, "PRODUCE-", "PRODUCE."); got != "PRODUCE-a,PRODUCE-b" {
			t.Fatalf("bounded range returned %s", got)
		}
		if got := keys(t, b, "", ""); got != "FARMER-x,PRODUCE-a,PRODUCE-b,RETAILER-y" {
			t.Fatalf("unbounded range returned %s", got)
		}
		if got := keys(t, b, "PRODUCE-b", ""); got != "PRODUCE-b,RETAILER-y" {
			t.Fatalf("open-ended range returned %s", got)
		}
	})
}

func mustCommit(t *testing.T, b ledger.Backend, reads []ledger.Read, writes []ledger.Write) {
	t.Helper()
	if err := b.Commit(context.Background(), reads, writes); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func mustGet(t *testing.T, b ledger.Backend, key string) ledger.Record {
	t.Helper()
	rec, ok, err := b.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("get %s: ok=%v err=%v", key, ok, err)
	}
	return rec
}

func keys(t *testing.T, b ledger.Backend, start, end string) string {
	t.Helper()
	records, err := b.Range(context.Background(), start, end)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Key)
	}
	return strings.Join(out, ",")
}
