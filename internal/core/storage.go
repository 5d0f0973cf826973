package core

import (
	"context"
	"fmt"

	"tankcore/internal/infra/persistence/memory"
	"tankcore/internal/infra/persistence/postgres"
	"tankcore/internal/infra/persistence/sqlite"
	"tankcore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

type (
	Transaction     = domain.Transaction
	TransactionView = domain.TransactionView
	PersistentStore = domain.PersistentStore
)

// StorageOptions selects and configures a backend.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore opens the backend named by opts.Driver, defaulting to
// sqlite. The returned close function releases database handles and is never
// nil.
func OpenPersistentStore(ctx context.Context, opts StorageOptions, engine *RulesEngine) (PersistentStore, func() error, error) {
	noop := func() error { return nil }
	switch opts.Driver {
	case StorageMemory:
		return memory.NewStore(engine), noop, nil
	case "", StorageSQLite:
		s, err := sqlite.NewStore(opts.SQLitePath, engine)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case StoragePostgres:
		s, err := postgres.NewStore(ctx, opts.PostgresDSN, engine)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage driver %s", opts.Driver)
	}
}
