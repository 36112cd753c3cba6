// Package integration runs cross-package scenarios against every in-process
// storage and blob adapter.
package integration

import (
	"context"
	"path/filepath"
	"testing"

	"taskcore/internal/blob"
	"taskcore/internal/core"
	"taskcore/pkg/domain"

	"github.com/stretchr/testify/require"
)

type storeVariant struct {
	name string
	open func(t *testing.T) domain.PersistentStore
}

func storeVariants() []storeVariant {
	return []storeVariant{
		{
			name: "memory-store",
			open: func(t *testing.T) domain.PersistentStore {
				store, err := core.OpenStore(core.StorageOptions{Driver: core.StorageMemory}, core.NewDefaultRulesEngine())
				require.NoError(t, err)
				return store
			},
		},
		{
			name: "sqlite-store",
			open: func(t *testing.T) domain.PersistentStore {
				path := filepath.Join(t.TempDir(), "tasks.db")
				store, err := core.OpenStore(core.StorageOptions{Driver: core.StorageSQLite, SQLitePath: path}, core.NewDefaultRulesEngine())
				require.NoError(t, err)
				t.Cleanup(func() { _ = store.Close() })
				return store
			},
		},
	}
}

type blobVariant struct {
	name string
	open func(t *testing.T) blob.Store
}

func blobVariants() []blobVariant {
	return []blobVariant{
		{
			name: "memory-blob",
			open: func(t *testing.T) blob.Store {
				store, err := blob.Open(context.Background(), blob.Options{Driver: blob.DriverMemory})
				require.NoError(t, err)
				return store
			},
		},
		{
			name: "fs-blob",
			open: func(t *testing.T) blob.Store {
				store, err := blob.Open(context.Background(), blob.Options{Driver: blob.DriverFilesystem, FSRoot: t.TempDir()})
				require.NoError(t, err)
				return store
			},
		},
	}
}
