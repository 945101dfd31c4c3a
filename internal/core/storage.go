package core

import (
	"context"
	"fmt"
	"strings"

	"producechain/internal/config"
	"producechain/internal/infra/ledger/memory"
	"producechain/internal/infra/ledger/postgres"
	"producechain/internal/infra/ledger/sqlite"
	"producechain/internal/ledger"
)

// StorageDriver identifies a concrete ledger backend.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenPersistentStore builds a local ledger store on the backend selected by
// cfg.Driver. An empty driver means sqlite.
func OpenPersistentStore(ctx context.Context, cfg config.Ledger, opts ...ledger.Option) (*ledger.Store, error) {
	driver := StorageDriver(strings.ToLower(strings.TrimSpace(cfg.Driver)))
	if driver == "" {
		driver = StorageSQLite
	}
	var (
		backend ledger.Backend
		err     error
	)
	switch driver {
	case StorageMemory:
		backend = memory.NewBackend()
	case StorageSQLite:
		backend, err = sqlite.NewBackend(ctx, cfg.SQLitePath)
	case StoragePostgres:
		backend, err = postgres.NewBackend(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return ledger.NewStore(backend, opts...), nil
}
