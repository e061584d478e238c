// Package config handles pipeline plan file loading for attune run.
package config

import (
	"fmt"
	"time"

	"github.com/attune-io/attune/pipeline"
	"github.com/attune-io/attune/types"
)

// Config represents a pipeline plan file. The steps section is the
// plan proper; notify and export are optional run-level settings.
// CLI flags always override config values.
type Config struct {
	Name   string          `yaml:"name"`
	Steps  []pipeline.Step `yaml:"steps"`
	Notify NotifyConfig    `yaml:"notify,omitempty"`
	Export ExportConfig    `yaml:"export,omitempty"`
}

// NotifyConfig holds completion-notification settings.
type NotifyConfig struct {
	Type    string            `yaml:"type"` // webhook or redis
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// ExportConfig holds S3 archival defaults for attune export.
type ExportConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	UsePathStyle bool   `yaml:"use_path_style,omitempty"`
}

// Plan extracts the executable plan from the config.
func (c *Config) Plan() *pipeline.Plan {
	return &pipeline.Plan{Name: c.Name, Steps: c.Steps}
}

// Validate checks run-level settings; the plan itself is validated by
// the runner.
func (c *Config) Validate() error {
	switch c.Notify.Type {
	case "", "webhook", "redis":
	default:
		return types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("notify type must be webhook or redis, got %q", c.Notify.Type))
	}
	if c.Notify.Type != "" && c.Notify.URL == "" {
		return types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("notify.%s requires a url", c.Notify.Type))
	}
	return nil
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}
