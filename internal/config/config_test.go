package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db", Port: 5432, User: "u", Password: "p", Name: "docs", SSLMode: "disable",
	}
	want := "postgres://u:p@db:5432/docs?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
	d.URL = "postgres://other"
	if got := d.DSN(); got != "postgres://other" {
		t.Fatalf("URL should override discrete fields, got %q", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docdex.yaml")
	body := `
server:
  port: 9000
search:
  fallbackThreshold: 7
llm:
  model: gpt-4o-mini
  apiKey: sk-test
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Fatalf("Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Search.FallbackThreshold != 7 {
		t.Fatalf("FallbackThreshold = %d, want 7", cfg.Search.FallbackThreshold)
	}
	// Untouched values keep their defaults.
	if cfg.Worker.MaxConcurrentJobs != 4 {
		t.Fatalf("MaxConcurrentJobs = %d, want default 4", cfg.Worker.MaxConcurrentJobs)
	}
	if !cfg.LLM.Enabled() {
		t.Fatalf("LLM should be enabled with model + key set")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config path")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docdex.yaml")
	if err := os.WriteFile(path, []byte("serverr:\n  port: 1\n"), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCDEX_CONFIG", "")
	t.Setenv("DOCDEX_DB_HOST", "pg.internal")
	t.Setenv("DOCDEX_LLM_API_KEY", "sk-env")
	t.Setenv("DOCDEX_LLM_EXTRA_PARAMS", `{"temperature":0.2}`)
	t.Setenv("DOCDEX_UPLOAD_MAX_FILE_SIZE", "1024")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "pg.internal" {
		t.Fatalf("Database.Host = %q", cfg.Database.Host)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if v, ok := cfg.LLM.ExtraParams["temperature"]; !ok || v != 0.2 {
		t.Fatalf("ExtraParams = %v", cfg.LLM.ExtraParams)
	}
	if cfg.Upload.MaxFileSizeBytes != 1024 {
		t.Fatalf("MaxFileSizeBytes = %d", cfg.Upload.MaxFileSizeBytes)
	}
}

func TestEnvRejectsBadValues(t *testing.T) {
	t.Setenv("DOCDEX_CONFIG", "")
	t.Setenv("DOCDEX_LLM_EXTRA_PARAMS", "{not json")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for malformed extra params")
	}
}

func TestValidateCrossFields(t *testing.T) {
	cfg := Default()
	cfg.Crawler.DefaultMaxConcurrent = cfg.Crawler.MaxConcurrentLimit + 1
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "maxConcurrentLimit") {
		t.Fatalf("expected concurrency cross-field error, got %v", err)
	}

	cfg = Default()
	cfg.RateLimit.Enabled = true
	cfg.Redis.Enabled = false
	if err := Validate(cfg); err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("expected redis dependency error, got %v", err)
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := Default()
	cfg.Logging.Level = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected validation error for bad log level")
	}
}
