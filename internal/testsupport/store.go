package testsupport

import (
	"context"
	"testing"
	"time"

	"corella/internal/config"
	"corella/internal/ledger"
)

// MustOpenStore opens a ledger.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *ledger.Store {
	t.Helper()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewObserved inserts an observed record for tests using the provided store.
func NewObserved(t testing.TB, store *ledger.Store, rec ledger.ObservedRecord) *ledger.ObservedRecord {
	t.Helper()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := store.InsertObserved(context.Background(), &rec); err != nil {
		t.Fatalf("store.InsertObserved: %v", err)
	}
	return &rec
}

// NewEntity upserts a registry entity for tests using the provided store.
func NewEntity(t testing.TB, store *ledger.Store, entity ledger.RegistryEntity) ledger.RegistryEntity {
	t.Helper()

	if entity.Status == "" {
		entity.Status = "Active"
	}
	if err := store.UpsertEntity(context.Background(), &entity); err != nil {
		t.Fatalf("store.UpsertEntity: %v", err)
	}
	return entity
}
