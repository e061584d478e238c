package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/attune-io/attune/iox"
	"github.com/attune-io/attune/types"
)

// writeManifest persists a manifest atomically at manifestPath.
func writeManifest(manifestPath string, m *types.Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return iox.WriteAtomic(manifestPath, data, 0o644)
}

// readManifest loads a manifest document from manifestPath.
func readManifest(manifestPath string) (*types.Manifest, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest not found: %s", manifestPath)
		}
		return nil, fmt.Errorf("read manifest %s: %w", manifestPath, err)
	}

	var m types.Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", manifestPath, err)
	}
	return &m, nil
}
