package connection

import (
	"github.com/aretw0/introspection"
)

// ResolverState exposes internal state for observability.
type ResolverState struct {
	Name       string `json:"name"`
	Server     string `json:"server"`
	Database   string `json:"database"`
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Error      string `json:"error,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Resolver) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := ResolverState{
		Name:       r.name,
		Server:     r.server,
		Database:   r.database,
		Configured: r.descriptor != nil,
		Connected:  r.handle != nil,
	}
	if r.resolveErr != nil {
		state.Error = r.resolveErr.Error()
	}
	return state
}

// ComponentType implements introspection.Component.
func (r *Resolver) ComponentType() string {
	return "connection"
}

var _ introspection.Introspectable = (*Resolver)(nil)
var _ introspection.Component = (*Resolver)(nil)
