package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalYAML = `
postgres:
  host: localhost
  user: postgres
  password: postgres
  dbname: pipeline
redis:
  addr: localhost:6379
ai:
  base_url: http://localhost:9000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("Server.Address = %q, want %q", cfg.Server.Address, ":8080")
	}
	if cfg.Pipeline.ScrapeInterval != 5*time.Minute {
		t.Errorf("Pipeline.ScrapeInterval = %v, want 5m", cfg.Pipeline.ScrapeInterval)
	}
	if cfg.Pipeline.WorkerConcurrency != DefaultWorkerConcurrency {
		t.Errorf("Pipeline.WorkerConcurrency = %d, want %d",
			cfg.Pipeline.WorkerConcurrency, DefaultWorkerConcurrency)
	}
	if cfg.Pipeline.AutoAdvance {
		t.Error("Pipeline.AutoAdvance should default to false")
	}
	if cfg.Postgres.SSLMode != "disable" {
		t.Errorf("Postgres.SSLMode = %q, want %q", cfg.Postgres.SSLMode, "disable")
	}
	if cfg.Fetch.Timeout != DefaultFetchTimeout {
		t.Errorf("Fetch.Timeout = %v, want %v", cfg.Fetch.Timeout, DefaultFetchTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PIPELINE_AUTO_ADVANCE", "true")
	t.Setenv("PIPELINE_PORT", "9090")
	t.Setenv("APP_DEBUG", "true")

	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("Redis.Addr = %q, want env override", cfg.Redis.Addr)
	}
	if !cfg.Pipeline.AutoAdvance {
		t.Error("expected PIPELINE_AUTO_ADVANCE=true to enable auto-advance")
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("Server.Address = %q, want %q", cfg.Server.Address, ":9090")
	}
	if !cfg.Debug {
		t.Error("expected APP_DEBUG=true to enable debug")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "missing redis addr",
			yaml: `
postgres:
  host: localhost
  dbname: pipeline
ai:
  base_url: http://localhost:9000
`,
		},
		{
			name: "missing postgres host",
			yaml: `
redis:
  addr: localhost:6379
postgres:
  dbname: pipeline
ai:
  base_url: http://localhost:9000
`,
		},
		{
			name: "missing ai base url",
			yaml: `
redis:
  addr: localhost:6379
postgres:
  host: localhost
  dbname: pipeline
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.yaml)); err == nil {
				t.Error("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yml")); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}
