package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"taskcore/internal/blob/core"
)

func TestSanitizeKey(t *testing.T) {
	for _, key := range []string{"", "  ", "/abs", "../escape", "a/../../b", "x.meta"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Errorf("expected %q to be rejected", key)
		}
	}
	clean, err := sanitizeKey("exports//2024/a.json")
	if err != nil || clean != "exports/2024/a.json" {
		t.Fatalf("unexpected clean key %q err=%v", clean, err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "blobs")
	store, err := New(root)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Root() != root || store.Driver() != core.DriverFilesystem {
		t.Fatalf("unexpected root/driver")
	}

	info, err := store.Put(ctx, "exports/a.json", strings.NewReader(`{"v":1}`), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"items": "3"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 7 || len(info.ETag) != 64 {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := os.Stat(filepath.Join(root, "exports", "a.json.meta")); err != nil {
		t.Fatalf("sidecar missing: %v", err)
	}
	if _, err := store.Put(ctx, "exports/a.json", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}

	got, body, err := store.Get(ctx, "exports/a.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(body)
	_ = body.Close()
	if string(data) != `{"v":1}` || got.Metadata["items"] != "3" || got.ETag != info.ETag {
		t.Fatalf("unexpected get %+v %q", got, data)
	}

	if _, err := store.Put(ctx, "exports/b.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put b: %v", err)
	}
	if _, err := store.Put(ctx, "other.json", strings.NewReader("{}"), core.PutOptions{}); err != nil {
		t.Fatalf("put other: %v", err)
	}
	listed, err := store.List(ctx, "exports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 || listed[0].Key != "exports/a.json" || listed[1].Key != "exports/b.json" {
		t.Fatalf("unexpected list %+v", listed)
	}

	existed, err := store.Delete(ctx, "exports/a.json")
	if err != nil || !existed {
		t.Fatalf("delete existed=%v err=%v", existed, err)
	}
	if _, err := store.Head(ctx, "exports/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if _, _, err := store.Get(ctx, "exports/a.json"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from get, got %v", err)
	}
	if existed, _ := store.Delete(ctx, "exports/a.json"); existed {
		t.Fatalf("expected missing blob on second delete")
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := store.Put(context.Background(), "../x", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
