package testsupport

import (
	"context"
	"testing"

	"darkroom/internal/catalog"
	"darkroom/internal/config"
)

// MustOpenStore opens a catalog.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *catalog.Store {
	t.Helper()

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("catalog.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewBatch creates a batch for tests using the provided store.
func NewBatch(t testing.TB, store *catalog.Store, label string) *catalog.Batch {
	t.Helper()

	batch, err := store.NewBatch(context.Background(), label)
	if err != nil {
		t.Fatalf("store.NewBatch: %v", err)
	}
	return batch
}

// NewRecord creates a pending record for tests using the provided store.
func NewRecord(t testing.TB, store *catalog.Store, batchID, sourcePath, originalName string) *catalog.Record {
	t.Helper()

	record, err := store.NewRecord(context.Background(), batchID, sourcePath, originalName, "")
	if err != nil {
		t.Fatalf("store.NewRecord: %v", err)
	}
	return record
}
