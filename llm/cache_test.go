package llm_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentstation/loom/llm"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	cache := llm.NewMemoryCache()

	if _, ok, err := cache.Get(ctx, "absent"); ok || err != nil {
		t.Errorf("get absent = %v, %v; want miss", ok, err)
	}

	if err := cache.Put(ctx, "fp", "text"); err != nil {
		t.Fatalf("put: %v", err)
	}
	text, ok, err := cache.Get(ctx, "fp")
	if err != nil || !ok || text != "text" {
		t.Errorf("get = %q, %v, %v; want text, true, nil", text, ok, err)
	}

	// Put is idempotent: re-writing the same entry is not an error.
	if err := cache.Put(ctx, "fp", "text"); err != nil {
		t.Errorf("repeated put: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("len = %d, want 1", cache.Len())
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file is an empty cache", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		cache, err := llm.NewFileCache(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if cache.Len() != 0 {
			t.Errorf("len = %d, want 0", cache.Len())
		}
	})

	t.Run("entries survive reopening", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")

		cache, err := llm.NewFileCache(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		if err := cache.Put(ctx, "fp1", "first"); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := cache.Put(ctx, "fp2", "second"); err != nil {
			t.Fatalf("put: %v", err)
		}

		reopened, err := llm.NewFileCache(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		if reopened.Len() != 2 {
			t.Errorf("len = %d, want 2", reopened.Len())
		}
		text, ok, err := reopened.Get(ctx, "fp1")
		if err != nil || !ok || text != "first" {
			t.Errorf("get fp1 = %q, %v, %v; want first", text, ok, err)
		}
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		if err := os.WriteFile(path, []byte("not json {"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := llm.NewFileCache(path); err == nil {
			t.Error("expected error for malformed cache file")
		}
	})

	t.Run("non-object file is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.json")
		if err := os.WriteFile(path, []byte(`["a","b"]`), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := llm.NewFileCache(path); err == nil {
			t.Error("expected error for non-object cache file")
		}
	})
}

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip and persistence", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")

		cache, err := llm.NewSQLiteCache(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}

		if _, ok, err := cache.Get(ctx, "absent"); ok || err != nil {
			t.Errorf("get absent = %v, %v; want miss", ok, err)
		}

		if err := cache.Put(ctx, "fp", "stored"); err != nil {
			t.Fatalf("put: %v", err)
		}
		text, ok, err := cache.Get(ctx, "fp")
		if err != nil || !ok || text != "stored" {
			t.Errorf("get = %q, %v, %v; want stored", text, ok, err)
		}

		if err := cache.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}

		reopened, err := llm.NewSQLiteCache(path)
		if err != nil {
			t.Fatalf("reopen: %v", err)
		}
		defer func() { _ = reopened.Close() }()

		text, ok, err = reopened.Get(ctx, "fp")
		if err != nil || !ok || text != "stored" {
			t.Errorf("get after reopen = %q, %v, %v; want stored", text, ok, err)
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "cache.db")
		cache, err := llm.NewSQLiteCache(path)
		if err != nil {
			t.Fatalf("new: %v", err)
		}
		defer func() { _ = cache.Close() }()

		_ = cache.Put(ctx, "fp", "old")
		if err := cache.Put(ctx, "fp", "new"); err != nil {
			t.Fatalf("overwrite: %v", err)
		}

		text, _, _ := cache.Get(ctx, "fp")
		if text != "new" {
			t.Errorf("get = %q, want the overwritten value", text)
		}

		n, err := cache.Len(ctx)
		if err != nil || n != 1 {
			t.Errorf("len = %d, %v; want 1", n, err)
		}
	})
}
