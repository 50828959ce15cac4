package fs

import (
	"sort"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string   `json:"path"`
	Database      string   `json:"database"`
	Format        string   `json:"format"`
	SystemDir     string   `json:"system_dir"`
	IndexSize     int      `json:"index_size"`
	Serializers   []string `json:"serializers"`
	ActiveWatches int      `json:"active_watches"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	serializers := make([]string, 0, len(s.serializers))
	for ext := range s.serializers {
		serializers = append(serializers, ext)
	}
	sort.Strings(serializers)

	s.watchMu.Lock()
	watchers := s.watchers
	s.watchMu.Unlock()

	return StoreState{
		Path:          s.Path,
		Database:      s.config.Database,
		Format:        s.config.Format,
		SystemDir:     s.config.SystemDir,
		IndexSize:     s.cache.Len(),
		Serializers:   serializers,
		ActiveWatches: watchers,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
