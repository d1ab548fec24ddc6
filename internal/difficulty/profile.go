package difficulty

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// LoadProfile reads a configuration profile from a YAML or TOML file.
// Fields missing from the file keep their DefaultConfiguration values.
// The result is not validated.
func LoadProfile(path string) (Configuration, error) {
	cfg := DefaultConfiguration()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read profile: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode yaml profile: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("decode toml profile: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported profile format %q (want .yaml, .yml or .toml)", ext)
	}
	return cfg, nil
}
