package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a shipwright YAML config file (usually shipwright.yaml)
// into a Config. ${VAR} and ${VAR:-default} references are expanded
// against the environment before unmarshalling, so CI systems can
// parameterize dist paths and product names without templating.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	return &cfg, nil
}
