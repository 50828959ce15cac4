package record

import (
	"sort"

	"github.com/aretw0/introspection"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Kinds       []string          `json:"kinds"`
	Collections map[string]string `json:"collections"` // resolved so far
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	r := e.registry
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := EngineState{
		Kinds:       make([]string, 0, len(r.schemas)),
		Collections: make(map[string]string),
	}
	for name, entry := range r.schemas {
		state.Kinds = append(state.Kinds, name)
		if entry.resolved != "" {
			state.Collections[name] = entry.resolved
		}
	}
	sort.Strings(state.Kinds)
	return state
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "engine"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
