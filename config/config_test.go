package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOrCreateWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Fatalf("unexpected base URL: %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout())
	}
	if cfg.CacheTTL() != 5*time.Minute {
		t.Fatalf("unexpected cache TTL: %v", cfg.CacheTTL())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	again, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again != cfg {
		t.Fatalf("reload mismatch: %#v vs %#v", again, cfg)
	}
}

func TestLoadOrCreateReadsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	body := "api_base_url = \"http://backend:8080\"\nrequest_timeout_seconds = 5\nredis_url = \"redis://localhost:6379/0\"\ncache_ttl_seconds = 60\ndebug = true\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://backend:8080" {
		t.Fatalf("unexpected base URL: %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.RequestTimeout())
	}
	if cfg.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected redis URL: %q", cfg.RedisURL)
	}
	if cfg.CacheTTL() != time.Minute {
		t.Fatalf("unexpected cache TTL: %v", cfg.CacheTTL())
	}
	if !cfg.Debug {
		t.Fatal("expected debug enabled")
	}
}

func TestLoadOrCreateEmptyBaseURLFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)
	if err := os.WriteFile(path, []byte("api_base_url = \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != DefaultAPIBaseURL {
		t.Fatalf("unexpected base URL: %q", cfg.APIBaseURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)

	t.Setenv("TASKBOARD_API_URL", "http://override:9000")
	t.Setenv("TASKBOARD_REDIS_URL", "redis://override:6379/1")
	t.Setenv("TASKBOARD_REQUEST_TIMEOUT", "12")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://override:9000" {
		t.Fatalf("unexpected base URL: %q", cfg.APIBaseURL)
	}
	if cfg.RedisURL != "redis://override:6379/1" {
		t.Fatalf("unexpected redis URL: %q", cfg.RedisURL)
	}
	if cfg.RequestTimeoutSeconds != 12 {
		t.Fatalf("unexpected timeout seconds: %d", cfg.RequestTimeoutSeconds)
	}
	if !cfg.Debug {
		t.Fatal("expected debug enabled")
	}
}

func TestEnvIgnoresInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFileName)

	t.Setenv("TASKBOARD_REQUEST_TIMEOUT", "not-a-number")
	t.Setenv("DEBUG", "maybe")

	cfg, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RequestTimeoutSeconds != 30 {
		t.Fatalf("unexpected timeout seconds: %d", cfg.RequestTimeoutSeconds)
	}
	if cfg.Debug {
		t.Fatal("expected debug disabled")
	}
}
