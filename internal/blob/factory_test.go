package blob

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	fsStore, err := Open(ctx, Options{FSRoot: filepath.Join(t.TempDir(), "snap")})
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if fsStore.Driver() != DriverFilesystem {
		t.Fatalf("empty driver should default to fs, got %s", fsStore.Driver())
	}

	mem, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if mem.Driver() != DriverMemory {
		t.Fatalf("unexpected driver %s", mem.Driver())
	}

	if _, err := Open(ctx, Options{Driver: DriverS3}); err == nil {
		t.Fatalf("expected s3 without bucket to fail")
	}
	if _, err := Open(ctx, Options{Driver: "ftp"}); err == nil || !strings.Contains(err.Error(), "unknown blob driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestStoresShareErrorContract(t *testing.T) {
	ctx := context.Background()
	for _, opts := range []Options{
		{Driver: DriverMemory},
		{Driver: DriverFilesystem, FSRoot: t.TempDir()},
	} {
		store, err := Open(ctx, opts)
		if err != nil {
			t.Fatalf("open %s: %v", opts.Driver, err)
		}
		if _, err := store.Head(ctx, "missing.json"); !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", opts.Driver, err)
		}
		if _, err := store.Put(ctx, "k.json", strings.NewReader("{}"), PutOptions{}); err != nil {
			t.Fatalf("%s: put: %v", opts.Driver, err)
		}
		if _, err := store.Put(ctx, "k.json", strings.NewReader("{}"), PutOptions{}); !errors.Is(err, ErrExists) {
			t.Errorf("%s: expected ErrExists, got %v", opts.Driver, err)
		}
	}
}
