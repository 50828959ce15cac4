package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// ConfigNames are the file names looked up by FindConfig, in order.
var ConfigNames = []string{"strata.yaml", "strata.yml", "strata.json", "strata.toml"}

// FindConfig looks upwards from startDir for a strata configuration file and
// returns its absolute path.
func FindConfig(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		for _, name := range ConfigNames {
			if path := filepath.Join(dir, name); isFile(path) {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("config not found")
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
