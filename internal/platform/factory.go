package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/strata/pkg/connection"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/record"
)

// Client is the composition root: a connection resolver, a schema registry
// and the query engine wired together.
type Client struct {
	Resolver *connection.Resolver // nil when a store was injected
	Registry *record.Registry
	Engine   *record.Engine

	handles record.HandleProvider
	logger  *slog.Logger
}

// Open wires a Client from options.
//
//	client, err := platform.Open(platform.WithSchemas(record.Schema{Name: "Book"}))
func Open(opts ...Option) (*Client, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registry := record.NewRegistry()
	for _, s := range o.schemas {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}

	c := &Client{Registry: registry, logger: logger}

	if o.store != nil {
		c.handles = staticHandle{store: o.store}
	} else {
		v := o.config
		if v == nil {
			var err error
			if v, err = LoadConfig(o.configFile, o.envPrefix); err != nil {
				return nil, err
			}
		}

		resolverOpts := []connection.Option{connection.WithLogger(logger)}
		if o.connection != "" {
			resolverOpts = append(resolverOpts, connection.WithName(o.connection))
		}
		if o.keyPrefix != "" {
			resolverOpts = append(resolverOpts, connection.WithKeyPrefix(o.keyPrefix))
		}
		resolver := connection.NewResolver(connection.NewViperSource(v), newDialer(o, logger), resolverOpts...)

		if o.server != "" {
			if err := resolver.SetExplicitAddress(context.Background(), o.server, o.database); err != nil {
				return nil, err
			}
		}
		c.Resolver = resolver
		c.handles = resolver
	}

	c.Engine = record.NewEngine(c.handles, registry, record.WithLogger(logger))
	return c, nil
}

// Kind returns the query surface of a registered model.
func (c *Client) Kind(name string) (*record.Kind, error) {
	return c.Engine.Kind(name)
}

// Store returns the live store handle, dialing it on first use.
func (c *Client) Store(ctx context.Context) (core.Store, error) {
	return c.handles.Handle(ctx)
}

// Watch streams document changes when the store supports it.
func (c *Client) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	store, err := c.Store(ctx)
	if err != nil {
		return nil, err
	}
	w, ok := store.(core.Watchable)
	if !ok {
		return nil, fmt.Errorf("store %T does not support watching", store)
	}
	return w.Watch(ctx, pattern)
}

// Close releases the store handle.
func (c *Client) Close(ctx context.Context) error {
	if c.Resolver != nil {
		return c.Resolver.Close(ctx)
	}
	if h, ok := c.handles.(staticHandle); ok && h.store != nil {
		return h.store.Close(ctx)
	}
	return errors.New("client has no store")
}
