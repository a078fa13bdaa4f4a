package core

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CONFIG_FILE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Port != "3000" {
		t.Fatalf("want default port 3000, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 5*time.Hour {
		t.Fatalf("want default token ttl 5h, got %v", cfg.TokenTTL)
	}
	if cfg.ResetTicketTTL != 10*time.Minute {
		t.Fatalf("want default reset ticket ttl 10m, got %v", cfg.ResetTicketTTL)
	}
	if !cfg.BootstrapAdminEnabled {
		t.Fatal("bootstrap admin should default to enabled")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("BOOTSTRAP_ADMIN", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("want port 8080, got %q", cfg.Port)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("want token ttl 30m, got %v", cfg.TokenTTL)
	}
	if cfg.BootstrapAdminEnabled {
		t.Fatal("bootstrap admin should be disabled")
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
port: "9000"
dashboard_url: /home
token_ttl: 2h
allowed_origins:
  - https://portal.example
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "8080") // overlay wins over env

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("want overlay port 9000, got %q", cfg.Port)
	}
	if cfg.DashboardURL != "/home" {
		t.Fatalf("want overlay dashboard /home, got %q", cfg.DashboardURL)
	}
	if cfg.TokenTTL != 2*time.Hour {
		t.Fatalf("want overlay ttl 2h, got %v", cfg.TokenTTL)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://portal.example" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadFileOverlayErrors(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("want error for missing config file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("token_ttl: not-a-duration\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatal("want error for invalid token_ttl")
	}
}

func TestParseCSV(t *testing.T) {
	if got := parseCSV(""); got != nil {
		t.Fatalf("empty input: want nil, got %v", got)
	}
	got := parseCSV(" a ,, b,c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected result: %v", got)
	}
}
