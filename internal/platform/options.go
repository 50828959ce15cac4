package platform

import (
	"log/slog"

	"github.com/spf13/viper"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/record"
)

// DefaultEnvPrefix prefixes the environment variables overriding configuration.
const DefaultEnvPrefix = "STRATA_"

// options holds the internal configuration of a Client.
type options struct {
	logger     *slog.Logger
	configFile string
	envPrefix  string
	config     *viper.Viper
	connection string
	keyPrefix  string
	server     string
	database   string
	store      core.Store
	schemas    []record.Schema

	format       string
	systemDir    string
	errorHandler func(error)
}

// Option defines a functional option for configuring a Client.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		envPrefix: DefaultEnvPrefix,
	}
}

// WithLogger sets the logger shared by the resolver, the engine and the stores.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfigFile reads connection settings from path (YAML, JSON or TOML).
// Without it, a strata.{yaml,yml,json,toml} found upwards from the working
// directory is used when present.
func WithConfigFile(path string) Option {
	return func(o *options) {
		o.configFile = path
	}
}

// WithEnvPrefix changes the prefix of configuration environment variables.
// Defaults to "STRATA_".
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithConfig supplies an already loaded configuration, skipping file and
// environment lookup.
func WithConfig(v *viper.Viper) Option {
	return func(o *options) {
		o.config = v
	}
}

// WithConnection selects the named connection ("default" when unset).
func WithConnection(name string) Option {
	return func(o *options) {
		o.connection = name
	}
}

// WithKeyPrefix changes the configuration key holding connections.
// Defaults to "database.mongodb".
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithExplicitAddress bypasses configuration and connects to server
// ("mongodb://host:port" or "file:///path") and database directly.
func WithExplicitAddress(server, database string) Option {
	return func(o *options) {
		o.server = server
		o.database = database
	}
}

// WithStore injects a ready store (e.g. a mock), skipping connection resolution.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithSchemas registers model kinds.
func WithSchemas(schemas ...record.Schema) Option {
	return func(o *options) {
		o.schemas = append(o.schemas, schemas...)
	}
}

// WithFormat sets the file extension of documents written by the filesystem
// store (".json" or ".yaml").
func WithFormat(ext string) Option {
	return func(o *options) {
		o.format = ext
	}
}

// WithSystemDir sets the hidden directory of the filesystem store.
// Defaults to ".strata" (handled by adapter).
func WithSystemDir(name string) Option {
	return func(o *options) {
		o.systemDir = name
	}
}

// WithWatcherErrorHandler registers a callback for errors of the filesystem
// store's Watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}
