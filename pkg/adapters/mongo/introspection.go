package mongo

import (
	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Server   string `json:"server"`
	Database string `json:"database"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return StoreState{Server: s.server, Database: s.database}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
