package core

import (
	"context"
	"path/filepath"
	"testing"

	"taskcore/internal/infra/persistence/memory"
	"taskcore/internal/infra/persistence/sqlite"
	"taskcore/pkg/domain"
)

func TestOpenStoreDefaultsToSQLite(t *testing.T) {
	store, err := OpenStore(StorageOptions{SQLitePath: filepath.Join(t.TempDir(), "default.db")}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected *sqlite.Store, got %T", store)
	}
	if _, err := store.RunInTransaction(context.Background(), func(domain.Transaction) error { return nil }); err != nil {
		t.Fatalf("empty transaction: %v", err)
	}
}

func TestOpenStoreMemory(t *testing.T) {
	store, err := OpenStore(StorageOptions{Driver: StorageMemory}, nil)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", store)
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	if _, err := OpenStore(StorageOptions{Driver: "oracle"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestServiceOverSQLite(t *testing.T) {
	store, err := OpenStore(StorageOptions{Driver: StorageSQLite, SQLitePath: filepath.Join(t.TempDir(), "svc.db")}, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	svc := NewService(store)
	p := mustProject(t, svc, "Platform", "PLAT")
	item := mustItem(t, svc, p.ID(), "Persist")
	got, err := svc.GetWorkItem(context.Background(), item.ID())
	if err != nil {
		t.Fatalf("GetWorkItem: %v", err)
	}
	if got.Title() != "Persist" || !got.Token().Equal(item.Token()) {
		t.Fatalf("unexpected item %+v", got.Record())
	}
}
