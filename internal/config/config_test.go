package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("Defaults apply when only DATABASE_URL is set", func(t *testing.T) {
		t.Setenv("TELEDASH_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
		t.Setenv("DATABASE_URL", "postgres://localhost/telemetry")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Port != "3001" {
			t.Errorf("Expected port 3001, got %s", cfg.Port)
		}
		if cfg.PageSize != 10 {
			t.Errorf("Expected page size 10, got %d", cfg.PageSize)
		}
		if cfg.CacheTTL != 15*time.Second {
			t.Errorf("Expected 15s cache TTL, got %s", cfg.CacheTTL)
		}
		if cfg.OnlineWindow != 5*time.Minute {
			t.Errorf("Expected 5m online window, got %s", cfg.OnlineWindow)
		}
		if cfg.PoolMaxConns != 10 {
			t.Errorf("Expected 10 pool conns, got %d", cfg.PoolMaxConns)
		}
		if !cfg.SingleQuery {
			t.Error("Expected consolidated query by default")
		}
	})

	t.Run("Missing DATABASE_URL fails", func(t *testing.T) {
		t.Setenv("TELEDASH_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
		t.Setenv("DATABASE_URL", "")

		if _, err := Load(); err == nil {
			t.Fatal("Expected error without DATABASE_URL")
		}
	})

	t.Run("Config file values apply", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ConfigFilename)
		yaml := "port: \"8080\"\npage_size: 25\nsingle_query: false\ntls:\n  cert: /etc/certs/srv.pem\n  key: /etc/certs/srv.key\n"
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("TELEDASH_CONFIG_PATH", path)
		t.Setenv("DATABASE_URL", "postgres://localhost/telemetry")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected port 8080, got %s", cfg.Port)
		}
		if cfg.PageSize != 25 {
			t.Errorf("Expected page size 25, got %d", cfg.PageSize)
		}
		if cfg.SingleQuery {
			t.Error("Expected single_query false from file")
		}
		if !cfg.UseTLS() {
			t.Error("Expected TLS to be configured")
		}
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ConfigFilename)
		if err := os.WriteFile(path, []byte("port: \"8080\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("TELEDASH_CONFIG_PATH", path)
		t.Setenv("DATABASE_URL", "postgres://localhost/telemetry")
		t.Setenv("TELEDASH_PORT", "9090")
		t.Setenv("TELEDASH_CACHE_TTL", "30s")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("Expected env port 9090, got %s", cfg.Port)
		}
		if cfg.CacheTTL != 30*time.Second {
			t.Errorf("Expected 30s cache TTL, got %s", cfg.CacheTTL)
		}
	})

	t.Run("Invalid sizes fall back to defaults", func(t *testing.T) {
		t.Setenv("TELEDASH_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
		t.Setenv("DATABASE_URL", "postgres://localhost/telemetry")
		t.Setenv("TELEDASH_PAGE_SIZE", "0")
		t.Setenv("TELEDASH_HISTORY_POINTS", "-1")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if cfg.PageSize != 10 || cfg.HistoryPoints != 20 {
			t.Errorf("Expected defaults, got %d/%d", cfg.PageSize, cfg.HistoryPoints)
		}
	})
}

func TestUseTLS(t *testing.T) {
	cfg := Default()
	if cfg.UseTLS() {
		t.Error("Expected no TLS by default")
	}
	cfg.TLS = &TLSConfig{Cert: "a.pem"}
	if cfg.UseTLS() {
		t.Error("Expected no TLS without a key")
	}
	cfg.TLS.Key = "a.key"
	if !cfg.UseTLS() {
		t.Error("Expected TLS with both paths set")
	}
}
