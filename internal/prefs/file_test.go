package prefs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	runStoreContract(t, NewFileStore(path, nil), "local")
}

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "prefs.json")
	ctx := context.Background()

	first := NewFileStore(path, nil)
	if err := first.Set(ctx, "local", KeyUserName, "Ana"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	second := NewFileStore(path, nil)
	v, found, err := second.Get(ctx, "local", KeyUserName)
	if err != nil || !found || v != "Ana" {
		t.Errorf("reopened store Get() = %q, %v, %v", v, found, err)
	}
}

func TestFileStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	s := NewFileStore(path, nil)
	_, found, err := s.Get(context.Background(), "local", KeyFavorites)
	if err != nil || found {
		t.Errorf("expected empty store, got found=%v err=%v", found, err)
	}

	// The next write replaces the corrupt document.
	if err := s.Set(context.Background(), "local", KeyFavorites, `["a"]`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	reopened := NewFileStore(path, nil)
	if v, _, _ := reopened.Get(context.Background(), "local", KeyFavorites); v != `["a"]` {
		t.Errorf("expected rewritten file, got %q", v)
	}
}

func TestFileStore_FailedWriteKeepsState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.json")
	ctx := context.Background()

	s := NewFileStore(path, nil)
	if err := s.Set(ctx, "local", KeyFavorites, `["a"]`); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// Replace the target with a directory so the rename fails.
	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("failed to create blocking dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o644); err != nil {
		t.Fatalf("failed to populate blocking dir: %v", err)
	}

	if err := s.Set(ctx, "local", KeyFavorites, `["a","b"]`); err == nil {
		t.Fatal("expected write failure")
	}

	v, _, _ := s.Get(ctx, "local", KeyFavorites)
	if v != `["a"]` {
		t.Errorf("failed write changed state: got %q", v)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "prefs.json"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Set(ctx, "local", KeyUserName, "x"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
