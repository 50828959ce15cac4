package record

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
)

var (
	// ErrUnknownModel is returned for model names that were never registered.
	ErrUnknownModel = errors.New("unknown model")
	// ErrCollectionFrozen is returned when overriding the collection of a model
	// whose collection name was already resolved.
	ErrCollectionFrozen = errors.New("collection name already resolved")
)

// Schema describes a model kind. Collection, when set, overrides the derived
// collection name.
type Schema struct {
	Name       string
	Collection string
}

type schemaEntry struct {
	schema   Schema
	resolved string // memoized collection name, "" until first resolution
}

// Registry maps model names to their collection names.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schemaEntry
}

// NewRegistry creates a registry holding schemas.
func NewRegistry(schemas ...Schema) *Registry {
	r := &Registry{schemas: make(map[string]*schemaEntry)}
	for _, s := range schemas {
		// Registering into a fresh registry only fails on empty names.
		_ = r.Register(s)
	}
	return r
}

// Register adds a schema. Registering a name again replaces its schema and
// forgets the memoized collection name.
func (r *Registry) Register(s Schema) error {
	if strings.TrimSpace(s.Name) == "" {
		return errors.New("schema name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[s.Name] = &schemaEntry{schema: s}
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.schemas[name]
	return ok
}

// Names lists the registered model names in lexical order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for n := range r.schemas {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// CollectionName returns the collection backing model name: the schema's
// override when set, otherwise the lowercased plural of the name
// ("Book" -> "books", "Person" -> "people"). The result is memoized.
func (r *Registry) CollectionName(name string) (string, error) {
	r.mu.RLock()
	entry, ok := r.schemas[name]
	if ok && entry.resolved != "" {
		r.mu.RUnlock()
		return entry.resolved, nil
	}
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.resolved == "" {
		entry.resolved = DeriveCollectionName(entry.schema)
	}
	return entry.resolved, nil
}

// SetCollection overrides the collection of model name. It fails with
// ErrCollectionFrozen once the name has been resolved.
func (r *Registry) SetCollection(name, collection string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.schemas[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	if entry.resolved != "" {
		return fmt.Errorf("%w: %s -> %s", ErrCollectionFrozen, name, entry.resolved)
	}
	entry.schema.Collection = collection
	return nil
}

// DeriveCollectionName computes the collection name of s without memoizing it.
func DeriveCollectionName(s Schema) string {
	if s.Collection != "" {
		return s.Collection
	}
	return strings.ToLower(inflection.Plural(s.Name))
}
