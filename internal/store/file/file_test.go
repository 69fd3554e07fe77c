package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/crimson-sun/repeatwatch/internal/store"
)

var _ store.Backend = (*Backend)(nil)

func TestLoadMissing(t *testing.T) {
	b := New(t.TempDir(), store.DefaultSlot)
	data, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil for missing slot, got %q", data)
	}
}

func TestSaveLoadClear(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested")
	b := New(dir, store.DefaultSlot)

	if err := b.Save(ctx, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if b.Path() != filepath.Join(dir, "conversation-history.json") {
		t.Fatalf("unexpected path %s", b.Path())
	}
	if err := b.Save(ctx, []byte(`[]`)); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	data, err := b.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected last write, got %q", data)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the slot file, found %d entries", len(entries))
	}

	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := b.Clear(ctx); err != nil {
		t.Fatalf("Clear of missing slot: %v", err)
	}
	if data, _ := b.Load(ctx); data != nil {
		t.Fatalf("expected nil after clear, got %q", data)
	}
}
