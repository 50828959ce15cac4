// Package connection resolves named connection configuration into store handles.
package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"

	"github.com/aretw0/strata/pkg/core"
)

const (
	// DefaultName is the connection resolved when none is named.
	DefaultName = "default"
	// DefaultKeyPrefix is prepended to connection names when looking up configuration.
	DefaultKeyPrefix = "database.mongodb"

	defaultHost = "localhost"
	defaultPort = 27017
)

// Descriptor is a connection resolved from configuration.
type Descriptor struct {
	Name     string `json:"name"`
	Adapter  string `json:"adapter"`
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Database string `json:"database"`
	Path     string `json:"path,omitempty"`
}

// Server renders the DSN-like server address of the descriptor.
func (d Descriptor) Server() string {
	if d.Adapter == "fs" {
		return "file://" + d.Path
	}
	return "mongodb://" + net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// Dialer opens a store handle against server, scoped to database.
type Dialer func(ctx context.Context, server, database string) (core.Store, error)

// Resolver holds the connection currently in use and the handle opened for it.
//
// Reads are safe for concurrent use; Switch, SetExplicitAddress and Close
// must not race with in-flight operations on the old handle.
type Resolver struct {
	mu        sync.RWMutex
	cfg       ConfigSource
	dial      Dialer
	logger    *slog.Logger
	keyPrefix string

	name       string
	descriptor *Descriptor // nil when explicitly addressed or unresolved
	server     string
	database   string
	resolveErr error

	handle core.Store
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithName sets the initial connection name (default "default").
func WithName(name string) Option {
	return func(r *Resolver) {
		r.name = name
	}
}

// WithLogger sets the logger for the resolver.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithKeyPrefix sets the configuration key prefix (default "database.mongodb").
func WithKeyPrefix(prefix string) Option {
	return func(r *Resolver) {
		r.keyPrefix = prefix
	}
}

// NewResolver creates a resolver and resolves its initial connection.
// A resolution failure is not fatal here: it is reported by Handle and
// Descriptor until a successful Switch or SetExplicitAddress.
func NewResolver(cfg ConfigSource, dial Dialer, opts ...Option) *Resolver {
	r := &Resolver{
		cfg:       cfg,
		dial:      dial,
		keyPrefix: DefaultKeyPrefix,
		name:      DefaultName,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}

	if d, err := r.Resolve(r.name); err != nil {
		r.resolveErr = err
	} else {
		r.set(d)
	}
	return r
}

// Resolve looks up the configuration of a named connection without changing
// the resolver's state.
func (r *Resolver) Resolve(name string) (Descriptor, error) {
	if name == "" {
		name = DefaultName
	}
	key := r.keyPrefix + "." + name

	if r.cfg == nil {
		return Descriptor{}, fmt.Errorf("%w: %s", core.ErrConfigurationMissing, key)
	}
	s, ok, err := r.cfg.Get(key)
	if err != nil {
		return Descriptor{}, err
	}
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", core.ErrConfigurationMissing, key)
	}

	d := Descriptor{
		Name:     name,
		Adapter:  s.Adapter,
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Path:     s.Path,
	}
	if d.Adapter == "" {
		d.Adapter = "mongo"
	}
	if d.Host == "" {
		d.Host = defaultHost
	}
	if d.Port == 0 {
		d.Port = defaultPort
	}
	return d, nil
}

// Switch re-resolves configuration for another named connection and replaces
// the held descriptor. Any handle opened for the previous connection is closed.
func (r *Resolver) Switch(ctx context.Context, name string) error {
	d, err := r.Resolve(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	old := r.handle
	r.handle = nil
	r.name = d.Name
	r.set(d)
	r.mu.Unlock()

	r.logger.Debug("switched connection", "name", d.Name, "server", d.Server(), "database", d.Database)
	return closeHandle(ctx, old)
}

// SetExplicitAddress bypasses configuration lookup entirely. Afterwards
// Descriptor fails with core.ErrNotConfigured and Name is empty until the
// next Switch.
func (r *Resolver) SetExplicitAddress(ctx context.Context, server, database string) error {
	r.mu.Lock()
	old := r.handle
	r.handle = nil
	r.name = ""
	r.descriptor = nil
	r.resolveErr = nil
	r.server = server
	r.database = database
	r.mu.Unlock()

	r.logger.Debug("explicit connection address", "server", server, "database", database)
	return closeHandle(ctx, old)
}

// set must be called with r.mu held (or before r is shared).
func (r *Resolver) set(d Descriptor) {
	r.descriptor = &d
	r.server = d.Server()
	r.database = d.Database
	r.resolveErr = nil
}

// Descriptor returns the configuration-backed descriptor in use.
func (r *Resolver) Descriptor() (Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.resolveErr != nil {
		return Descriptor{}, r.resolveErr
	}
	if r.descriptor == nil {
		return Descriptor{}, core.ErrNotConfigured
	}
	return *r.descriptor, nil
}

// Name returns the logical connection name, or "" for an explicit address.
func (r *Resolver) Name() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.name
}

// Server returns the DSN-like server address in use.
func (r *Resolver) Server() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.server
}

// Database returns the database name in use.
func (r *Resolver) Database() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.database
}

// Handle returns a store handle for the current connection, dialing on first use.
func (r *Resolver) Handle(ctx context.Context) (core.Store, error) {
	r.mu.RLock()
	h, resolveErr := r.handle, r.resolveErr
	r.mu.RUnlock()
	if h != nil {
		return h, nil
	}
	if resolveErr != nil {
		return nil, resolveErr
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handle != nil {
		return r.handle, nil
	}
	if r.dial == nil {
		return nil, fmt.Errorf("no dialer configured for %s", r.server)
	}

	h, err := r.dial(ctx, r.server, r.database)
	if err != nil {
		return nil, &core.StoreError{Op: "connect", Err: err}
	}
	r.logger.Debug("connected", "server", r.server, "database", r.database)
	r.handle = h
	return h, nil
}

// Close releases the open handle, if any.
func (r *Resolver) Close(ctx context.Context) error {
	r.mu.Lock()
	h := r.handle
	r.handle = nil
	r.mu.Unlock()
	return closeHandle(ctx, h)
}

func closeHandle(ctx context.Context, h core.Store) error {
	if h == nil {
		return nil
	}
	return h.Close(ctx)
}
