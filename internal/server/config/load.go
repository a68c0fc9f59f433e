package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
)

// Load builds a Config from defaults, the JSON file at path (skipped when
// empty) and the environment. Unlike LoadConfig it never reads os.Args and
// reports problems as errors, which suits tools with their own flag parser.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		c := &JsonConfig{}
		if err := json.Unmarshal(file, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		c.apply(cfg)
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
