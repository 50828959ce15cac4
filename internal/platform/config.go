package platform

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads connection settings.
//
//  1. file, or the first strata.{yaml,yml,json,toml} found upwards from the
//     working directory when file is empty (optional in that case).
//  2. Environment variables starting with prefix, mapped to dotted keys:
//     STRATA_DATABASE_MONGODB_DEFAULT_HOST -> database.mongodb.default.host.
func LoadConfig(file, prefix string) (*viper.Viper, error) {
	v := viper.New()

	if file == "" {
		if wd, err := os.Getwd(); err == nil {
			file, _ = FindConfig(wd)
		}
	} else if !isFile(file) {
		return nil, fmt.Errorf("config file %s not found", file)
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	// Viper's AutomaticEnv only answers keys it already knows, so the
	// environment is copied in key by key.
	if prefix != "" {
		prefixUpper := strings.ToUpper(prefix)
		for _, envStr := range os.Environ() {
			key, value, ok := strings.Cut(envStr, "=")
			if !ok || !strings.HasPrefix(key, prefixUpper) {
				continue
			}
			propKey := strings.TrimPrefix(key, prefixUpper)
			propKey = strings.ToLower(strings.ReplaceAll(propKey, "_", "."))
			propKey = strings.Trim(propKey, ".")
			if propKey != "" {
				v.Set(propKey, value)
			}
		}
	}

	return v, nil
}
