package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".strata")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		os.MkdirAll(filepath.Join(tmpDir, ".strata"), 0755)
		content := `{"version": 1, "nextSeq": 8, "entries": {"books/a.json": {"seq": 7}}}`
		os.WriteFile(filepath.Join(tmpDir, ".strata", "index.json"), []byte(content), 0644)

		c := newCache(tmpDir, ".strata")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !c.Has("books/a.json") {
			t.Fatal("Expected entry books/a.json not found")
		}
		if existed := c.Touch("books/b.json", time.Now()); existed {
			t.Error("books/b.json should be new")
		}
		if got := c.index.Entries["books/b.json"].Seq; got != 8 {
			t.Errorf("Expected seq 8, got %d", got)
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		os.MkdirAll(filepath.Join(tmpDir, ".strata"), 0755)
		os.WriteFile(filepath.Join(tmpDir, ".strata", "index.json"), []byte("{ invalid json"), 0644)

		c := newCache(tmpDir, ".strata")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries after corruption, got %d", c.Len())
		}
	})
}

func TestCache_SaveAndOrder(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".strata")

	now := time.Now()
	c.Touch("books/zz.json", now)
	c.Touch("books/aa.json", now)
	if existed := c.Touch("books/zz.json", now); !existed {
		t.Error("second touch must report an existing entry")
	}

	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := newCache(tmpDir, ".strata")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	paths := []string{"books/unknown.json", "books/aa.json", "books/zz.json", "books/b-unknown.json"}
	reloaded.Order(paths)

	want := []string{"books/zz.json", "books/aa.json", "books/b-unknown.json", "books/unknown.json"}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("Order mismatch at %d: got %v, want %v", i, paths, want)
		}
	}

	reloaded.Delete("books/zz.json")
	if reloaded.Has("books/zz.json") {
		t.Error("Delete did not remove the entry")
	}
}
