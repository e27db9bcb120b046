package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bggsnap.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Full(t *testing.T) {
	path := writeConfig(t, `
username: someone
output_dir: ./snapshot
api:
  timeout: 3s
  delay: 5s
phases:
  lint: ["golangci-lint", "run"]
  test: ["go", "test", "./..."]
  workdir: .
storage:
  backend: s3
  path: snapshots-bucket/bgg
  region: eu-central-1
  endpoint: http://localhost:9000
  s3_path_style: true
ledger:
  dataset: bggsnap
  backend: fs
  path: ./history
serve:
  listen: ":8478"
  schedule: "30 3 * * *"
  branch: main
  secret: hunter2
adapter:
  type: webhook
  url: https://hooks.example.com/bggsnap
  headers:
    Authorization: Bearer tok
  timeout: 10s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Username != "someone" || cfg.OutputDir != "./snapshot" {
		t.Errorf("top-level fields: %+v", cfg)
	}
	if cfg.API.Timeout.Duration != 3*time.Second || cfg.API.Delay.Duration != 5*time.Second {
		t.Errorf("api durations: %+v", cfg.API)
	}
	if len(cfg.Phases.Lint) != 2 || cfg.Phases.Lint[0] != "golangci-lint" {
		t.Errorf("lint argv: %v", cfg.Phases.Lint)
	}
	if cfg.Storage.Backend != "s3" || !cfg.Storage.S3PathStyle {
		t.Errorf("storage: %+v", cfg.Storage)
	}
	if cfg.Serve.Schedule != "30 3 * * *" || cfg.Serve.Branch != "main" {
		t.Errorf("serve: %+v", cfg.Serve)
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer tok" {
		t.Errorf("adapter headers: %v", cfg.Adapter.Headers)
	}
	if !cfg.LedgerEnabled() {
		t.Error("ledger should default to enabled")
	}
}

func TestLoad_LedgerDisabled(t *testing.T) {
	path := writeConfig(t, "ledger:\n  enabled: false\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LedgerEnabled() {
		t.Error("ledger should be disabled")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("BGGSNAP_TEST_USER", "from_env")
	path := writeConfig(t, `
username: ${BGGSNAP_TEST_USER}
serve:
  secret: ${BGGSNAP_TEST_SECRET:-fallback}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Username != "from_env" {
		t.Errorf("username = %q", cfg.Username)
	}
	if cfg.Serve.Secret != "fallback" {
		t.Errorf("secret = %q", cfg.Serve.Secret)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := writeConfig(t, "username: [\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid YAML")
	}

	path = writeConfig(t, "api:\n  timeout: \"not-a-duration\"\n")
	if _, err := Load(path); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("optional load of absent file: %v", err)
	}
	if cfg.Username != "" {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("BGGSNAP_SET", "value")
	os.Unsetenv("BGGSNAP_UNSET")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set var", "x: ${BGGSNAP_SET}", "x: value"},
		{"unset var", "x: ${BGGSNAP_UNSET}", "x: "},
		{"unset with default", "x: ${BGGSNAP_UNSET:-dflt}", "x: dflt"},
		{"set ignores default", "x: ${BGGSNAP_SET:-dflt}", "x: value"},
		{"no pattern", "x: plain", "x: plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
