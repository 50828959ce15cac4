package connection

import (
	"fmt"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Settings is the configuration entry of one named connection.
type Settings struct {
	Adapter  string // "mongo" (default) or "fs"
	Host     string
	Port     int
	Database string
	Path     string // fs adapter root directory
}

// ConfigSource looks up connection settings by dotted key
// (e.g. "database.mongodb.default").
type ConfigSource interface {
	Get(key string) (Settings, bool, error)
}

// MapSource is a static ConfigSource keyed by full dotted key.
type MapSource map[string]Settings

// Get implements ConfigSource.
func (m MapSource) Get(key string) (Settings, bool, error) {
	s, ok := m[key]
	return s, ok, nil
}

// ViperSource reads connection settings from a viper instance.
type ViperSource struct {
	v *viper.Viper
}

// NewViperSource wraps v as a ConfigSource.
func NewViperSource(v *viper.Viper) *ViperSource {
	return &ViperSource{v: v}
}

// Get implements ConfigSource. Fields are read leaf by leaf so values set
// from the environment merge with those of the config file.
func (s *ViperSource) Get(key string) (Settings, bool, error) {
	if s.v == nil || !s.v.IsSet(key) {
		return Settings{}, false, nil
	}
	if _, ok := s.v.Get(key).(map[string]any); !ok {
		return Settings{}, false, fmt.Errorf("connection %s is not a table", key)
	}

	port, err := cast.ToIntE(s.v.Get(key + ".port"))
	if err != nil {
		return Settings{}, false, fmt.Errorf("failed to decode %s.port: %w", key, err)
	}
	return Settings{
		Adapter:  s.v.GetString(key + ".adapter"),
		Host:     s.v.GetString(key + ".host"),
		Port:     port,
		Database: s.v.GetString(key + ".database"),
		Path:     s.v.GetString(key + ".path"),
	}, true, nil
}
