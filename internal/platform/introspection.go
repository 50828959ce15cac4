package platform

import (
	"context"

	"github.com/aretw0/introspection"

	"github.com/aretw0/strata/pkg/connection"
)

// ClientState exposes internal state for observability.
type ClientState struct {
	StoreType  string `json:"store_type"`
	Connection any    `json:"connection,omitempty"`
	Engine     any    `json:"engine"`
	Store      any    `json:"store,omitempty"`
}

// State implements introspection.Introspectable. The store is only reported
// once a handle is open.
func (c *Client) State() any {
	state := ClientState{
		StoreType: "unknown",
		Engine:    c.Engine.State(),
	}
	if c.Resolver != nil {
		rs := c.Resolver.State().(connection.ResolverState)
		state.Connection = rs
		if !rs.Connected {
			return state
		}
	}

	store, err := c.handles.Handle(context.Background())
	if err != nil || store == nil {
		return state
	}
	state.StoreType = "store"
	if comp, ok := store.(introspection.Component); ok {
		state.StoreType = comp.ComponentType()
	}
	if in, ok := store.(introspection.Introspectable); ok {
		state.Store = in.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string {
	return "client"
}

var _ introspection.Introspectable = (*Client)(nil)
var _ introspection.Component = (*Client)(nil)
