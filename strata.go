package strata

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/aretw0/strata/internal/platform"
	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/record"
	"github.com/aretw0/strata/pkg/typed"
)

// --- Types ---

// Client is the wired resolver, registry and engine.
type Client = platform.Client

// Schema declares a model kind and, optionally, its collection.
type Schema = record.Schema

// Model is a hydrated document.
type Model = record.Model

// Kind is the query surface of one model.
type Kind = record.Kind

// Cursor is a lazy, chainable query.
type Cursor = record.Cursor

// DocumentModel is a public alias for the typed document model.
type DocumentModel[T any] = typed.DocumentModel[T]

// TypedRepository is a public alias for the typed repository.
type TypedRepository[T any] = typed.Repository[T]

// --- Errors ---

var (
	ErrConfigurationMissing = core.ErrConfigurationMissing
	ErrNotConfigured        = core.ErrNotConfigured
	ErrInvalidQueryArgument = core.ErrInvalidQueryArgument
	ErrNotFound             = core.ErrNotFound
	ErrUnknownModel         = record.ErrUnknownModel
	ErrCollectionFrozen     = record.ErrCollectionFrozen
)

// --- Configuration ---

// Option defines a functional option for configuring a Client.
type Option = platform.Option

// WithLogger sets the logger for the client and its stores.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithConfigFile reads connection settings from a YAML, JSON or TOML file.
func WithConfigFile(path string) Option {
	return platform.WithConfigFile(path)
}

// WithConfig supplies an already loaded configuration.
func WithConfig(v *viper.Viper) Option {
	return platform.WithConfig(v)
}

// WithEnvPrefix changes the prefix of configuration environment variables.
func WithEnvPrefix(prefix string) Option {
	return platform.WithEnvPrefix(prefix)
}

// WithConnection selects a named connection instead of "default".
func WithConnection(name string) Option {
	return platform.WithConnection(name)
}

// WithKeyPrefix changes the configuration key holding connections.
func WithKeyPrefix(prefix string) Option {
	return platform.WithKeyPrefix(prefix)
}

// WithExplicitAddress connects to server and database, bypassing configuration.
func WithExplicitAddress(server, database string) Option {
	return platform.WithExplicitAddress(server, database)
}

// WithStore allows injecting a custom storage adapter.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithSchemas registers model kinds.
func WithSchemas(schemas ...Schema) Option {
	return platform.WithSchemas(schemas...)
}

// WithFormat sets the document extension of the filesystem store (".json" or ".yaml").
func WithFormat(ext string) Option {
	return platform.WithFormat(ext)
}

// WithSystemDir allows specifying the hidden directory name (e.g. ".strata").
func WithSystemDir(name string) Option {
	return platform.WithSystemDir(name)
}

// WithWatcherErrorHandler receives errors of the filesystem store's watch loop.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factory ---

// Open creates a Client.
func Open(opts ...Option) (*Client, error) {
	return platform.Open(opts...)
}

// --- Typed Factories ---

// NewTypedRepository creates a type-safe wrapper around a model kind.
func NewTypedRepository[T any](kind *Kind) *TypedRepository[T] {
	return typed.NewRepository[T](kind)
}

// OpenTypedRepository opens a Client and wraps the kind named name.
// The schema is registered when opts do not already declare it.
func OpenTypedRepository[T any](name string, opts ...Option) (*TypedRepository[T], *Client, error) {
	client, err := Open(opts...)
	if err != nil {
		return nil, nil, err
	}
	if !client.Registry.Has(name) {
		if err := client.Registry.Register(Schema{Name: name}); err != nil {
			return nil, nil, err
		}
	}
	kind, err := client.Kind(name)
	if err != nil {
		return nil, nil, err
	}
	return typed.NewRepository[T](kind), client, nil
}

// --- Utils ---

// FindConfig looks upwards from startDir for a strata configuration file.
func FindConfig(startDir string) (string, error) {
	return platform.FindConfig(startDir)
}

// IsIdentifier reports whether s is a 24-character hexadecimal identifier.
func IsIdentifier(s string) bool {
	return core.IsIdentifier(s)
}
