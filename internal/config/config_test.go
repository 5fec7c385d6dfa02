package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Kind != "file" || cfg.Backend.Path != "./vault" {
		t.Errorf("backend defaults = %+v", cfg.Backend)
	}
	if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 100*time.Millisecond {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.Retry.AttemptTimeout != 10*time.Second {
		t.Errorf("attempt_timeout = %v", cfg.Retry.AttemptTimeout)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.ResetTimeout != 30*time.Second {
		t.Errorf("breaker defaults = %+v", cfg.Breaker)
	}
	if cfg.Sync.DefaultStrategy != "merge" {
		t.Errorf("strategy = %q", cfg.Sync.DefaultStrategy)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viny.yaml")
	data := `backend:
  kind: sqlite
  path: /tmp/notes.db
retry:
  max_attempts: 7
  base_delay: 250ms
breaker:
  reset_timeout: 1m
sync:
  default_strategy: manual
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Kind != "sqlite" || cfg.Backend.Path != "/tmp/notes.db" {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Retry.MaxAttempts != 7 || cfg.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("retry = %+v", cfg.Retry)
	}
	if cfg.Breaker.ResetTimeout != time.Minute {
		t.Errorf("reset_timeout = %v", cfg.Breaker.ResetTimeout)
	}
	if cfg.Sync.DefaultStrategy != "manual" {
		t.Errorf("strategy = %q", cfg.Sync.DefaultStrategy)
	}
	// Keys the file omits keep their defaults.
	if cfg.Retry.MaxDelay != 5*time.Second {
		t.Errorf("max_delay = %v", cfg.Retry.MaxDelay)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "viny.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  kind: file\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("VINY_BACKEND_KIND", "memory")
	t.Setenv("VINY_LOGGING_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Kind != "memory" {
		t.Errorf("kind = %q, want env override", cfg.Backend.Kind)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want env override", cfg.Logging.Level)
	}
}

func TestExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for an explicitly named missing file")
	}
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viny.yaml")
	if err := os.WriteFile(path, []byte("backend: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
