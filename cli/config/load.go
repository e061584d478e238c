package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/attune-io/attune/types"
)

// Load reads a plan file, expands environment variables, and
// unmarshals into a Config. All failures are ErrInvalidConfiguration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.NewError(types.ErrInvalidConfiguration, "", path,
				fmt.Errorf("plan file not found"))
		}
		return nil, types.NewError(types.ErrInvalidConfiguration, "", path,
			fmt.Errorf("cannot read plan file: %w", err))
	}

	expanded := ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, types.NewError(types.ErrInvalidConfiguration, "", path,
			fmt.Errorf("invalid YAML: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
