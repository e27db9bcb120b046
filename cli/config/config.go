package config

import (
	"fmt"
	"time"
)

// Config represents a bggsnap.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// Flags always override config values.
type Config struct {
	// Username is the BGG account whose data is snapshotted.
	Username string `yaml:"username"`
	// OutputDir is where the download phase writes its files.
	OutputDir string `yaml:"output_dir"`

	API     APIConfig     `yaml:"api"`
	Phases  PhasesConfig  `yaml:"phases"`
	Storage StorageConfig `yaml:"storage"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Serve   ServeConfig   `yaml:"serve"`
	Adapter AdapterConfig `yaml:"adapter"`
}

// APIConfig tunes the BGG API client.
type APIConfig struct {
	BaseURL string   `yaml:"base_url"`
	Timeout Duration `yaml:"timeout"`
	Retries *int     `yaml:"retries,omitempty"`
	Delay   Duration `yaml:"delay"`
}

// PhasesConfig holds the external collaborator commands for the lint and
// test phases. An empty command makes the phase a no-op pass.
type PhasesConfig struct {
	Lint    []string `yaml:"lint"`
	Test    []string `yaml:"test"`
	Workdir string   `yaml:"workdir"`
}

// StorageConfig selects the artifact store backend.
type StorageConfig struct {
	// Backend is "fs" (default) or "s3".
	Backend string `yaml:"backend"`
	// Path is a directory for fs, or "bucket/prefix" for s3.
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// LedgerConfig selects run history storage.
type LedgerConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dataset string `yaml:"dataset"`
	// Backend is "fs" (default) or "s3".
	Backend string `yaml:"backend"`
	// Path is a directory for fs, or "bucket/prefix" for s3.
	Path   string `yaml:"path"`
	Region string `yaml:"region"`
}

// ServeConfig configures the trigger daemon.
type ServeConfig struct {
	// Listen is the webhook listen address (default ":8478").
	Listen string `yaml:"listen"`
	// Schedule is a standard five-field cron expression, evaluated in UTC.
	Schedule string `yaml:"schedule"`
	// Branch filters push webhooks to one branch.
	Branch string `yaml:"branch"`
	// Secret, when set, is required in the webhook token header.
	Secret string `yaml:"secret"`
}

// AdapterConfig holds run-completion notification defaults.
type AdapterConfig struct {
	// Type is "webhook" or "redis". Empty disables notification.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
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
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// LedgerEnabled reports whether run history is on. History defaults to on.
func (c *Config) LedgerEnabled() bool {
	if c.Ledger.Enabled == nil {
		return true
	}
	return *c.Ledger.Enabled
}
