package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// indexEntry records where a document sits in its collection's natural order.
type indexEntry struct {
	Seq          int64     `json:"seq"`
	LastModified time.Time `json:"lastModified"`
}

// index represents the persistent cache state.
type index struct {
	Version int                    `json:"version"`
	NextSeq int64                  `json:"nextSeq"`
	Entries map[string]*indexEntry `json:"entries"` // Key is "collection/filename"
	dirty   bool
	mu      sync.RWMutex
}

// cache manages loading, updating and saving the insertion-order index.
type cache struct {
	Path  string // Path to {database}/{systemDir}/index.json
	index *index
}

func newCache(databasePath, systemDir string) *cache {
	return &cache{
		Path: filepath.Join(databasePath, systemDir, "index.json"),
		index: &index{
			Version: 1,
			Entries: make(map[string]*indexEntry),
		},
	}
}

// Load reads the cache from disk. A missing or corrupted index starts fresh.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	if err := json.Unmarshal(data, c.index); err != nil || c.index.Entries == nil {
		// Self-heal: order falls back to file names until documents are rewritten.
		c.index.Entries = make(map[string]*indexEntry)
		c.index.NextSeq = 0
	}
	c.index.dirty = false
	return nil
}

// Save persists the cache if it changed since the last save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(c.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(c.Path, data, 0644); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Touch registers relPath, assigning the next sequence number to new entries.
// It reports whether the entry already existed.
func (c *cache) Touch(relPath string, mtime time.Time) (existed bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if e, ok := c.index.Entries[relPath]; ok {
		e.LastModified = mtime
		c.index.dirty = true
		return true
	}
	c.index.Entries[relPath] = &indexEntry{Seq: c.index.NextSeq, LastModified: mtime}
	c.index.NextSeq++
	c.index.dirty = true
	return false
}

// Has reports whether relPath is indexed.
func (c *cache) Has(relPath string) bool {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	_, ok := c.index.Entries[relPath]
	return ok
}

// Delete removes a single entry from the cache.
func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if _, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.index.dirty = true
	}
}

// Reset forgets every entry.
func (c *cache) Reset() {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	c.index.Entries = make(map[string]*indexEntry)
	c.index.NextSeq = 0
	c.index.dirty = false
}

// Order sorts relPaths into natural (insertion) order. Paths unknown to the
// index follow the indexed ones, by name.
func (c *cache) Order(relPaths []string) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	sort.SliceStable(relPaths, func(i, j int) bool {
		a, aok := c.index.Entries[relPaths[i]]
		b, bok := c.index.Entries[relPaths[j]]
		switch {
		case aok && bok:
			return a.Seq < b.Seq
		case aok != bok:
			return aok
		default:
			return relPaths[i] < relPaths[j]
		}
	})
}

// Len returns the number of entries in the cache.
func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}
