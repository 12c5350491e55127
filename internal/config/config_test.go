package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Server.Port != 8501 {
		t.Errorf("expected default port 8501, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "localhost" {
		t.Errorf("expected default host localhost, got %s", cfg.Server.Host)
	}
	if cfg.Data.Dir != "./data" {
		t.Errorf("expected default data dir ./data, got %s", cfg.Data.Dir)
	}
	if cfg.Auth.HomeURL != "https://www.markmentumresearch.com" {
		t.Errorf("unexpected home url %s", cfg.Auth.HomeURL)
	}
	if cfg.Downloads.Timezone != "America/New_York" {
		t.Errorf("expected America/New_York, got %s", cfg.Downloads.Timezone)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_NoFiles(t *testing.T) {
	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles with no files should not error: %v", err)
	}
	if cfg.Server.Port != 8501 {
		t.Errorf("expected default port 8501, got %d", cfg.Server.Port)
	}
}

func TestLoadFromFiles_ValidTOML(t *testing.T) {
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "test.toml")

	content := `
environment = "dev"

[server]
port = 9090
host = "0.0.0.0"

[data]
dir = "/srv/markmentum/data"
strict = true

[cache]
clear_on_render = true
flush_schedule = "0 6 * * 1-5"

[auth]
cookie_ttl = "2h"
pending_store = "redis"
redis_addr = "localhost:6379"

[logging]
level = "debug"
`
	if err := os.WriteFile(tomlPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFiles(tomlPath)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Data.Dir != "/srv/markmentum/data" {
		t.Errorf("expected data dir override, got %s", cfg.Data.Dir)
	}
	if !cfg.Data.Strict {
		t.Error("expected strict mode")
	}
	if !cfg.Cache.ClearOnRender {
		t.Error("expected clear_on_render")
	}
	if cfg.Cache.FlushSchedule != "0 6 * * 1-5" {
		t.Errorf("unexpected flush schedule %q", cfg.Cache.FlushSchedule)
	}
	if cfg.Auth.GetCookieTTL() != 2*time.Hour {
		t.Errorf("expected 2h cookie ttl, got %s", cfg.Auth.GetCookieTTL())
	}
	if cfg.Auth.PendingStore != "redis" {
		t.Errorf("expected redis pending store, got %s", cfg.Auth.PendingStore)
	}
	if !cfg.IsDevMode() {
		t.Error("expected dev mode")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	os.WriteFile(base, []byte("[server]\nport = 3000\nhost = \"base\"\n"), 0644)
	os.WriteFile(override, []byte("[server]\nport = 4000\n"), 0644)

	cfg, err := LoadFromFiles(base, override)
	if err != nil {
		t.Fatalf("LoadFromFiles failed: %v", err)
	}
	if cfg.Server.Port != 4000 {
		t.Errorf("expected port 4000, got %d", cfg.Server.Port)
	}
	if cfg.Server.Host != "base" {
		t.Errorf("expected host from base file, got %s", cfg.Server.Host)
	}
}

func TestLoadFromFiles_MissingFile(t *testing.T) {
	_, err := LoadFromFiles("/nonexistent/markmentum.toml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadFromFiles_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.toml")
	os.WriteFile(p, []byte("[server\nport = "), 0644)

	if _, err := LoadFromFiles(p); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("MARKMENTUM_SERVER_PORT", "7070")
	t.Setenv("MARKMENTUM_DATA_DIR", "/env/data")
	t.Setenv("MR_AUTH_COOKIE_SECRET", "env-secret")
	t.Setenv("MEMBERSTACK_APP_ID", "app_123")
	t.Setenv("MARKMENTUM_TZ", "UTC")

	cfg, err := LoadFromFiles()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env port 7070, got %d", cfg.Server.Port)
	}
	if cfg.Data.Dir != "/env/data" {
		t.Errorf("expected env data dir, got %s", cfg.Data.Dir)
	}
	if cfg.Auth.CookieSecret != "env-secret" {
		t.Errorf("expected cookie secret from env, got %q", cfg.Auth.CookieSecret)
	}
	if cfg.Auth.MemberstackAppID != "app_123" {
		t.Errorf("expected app id from env, got %q", cfg.Auth.MemberstackAppID)
	}
	if cfg.Downloads.Timezone != "UTC" {
		t.Errorf("expected UTC, got %s", cfg.Downloads.Timezone)
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, 9999, "0.0.0.0", "/flag/data")

	if cfg.Server.Port != 9999 || cfg.Server.Host != "0.0.0.0" || cfg.Data.Dir != "/flag/data" {
		t.Errorf("flag overrides not applied: %+v", cfg.Server)
	}

	ApplyFlagOverrides(cfg, 0, "", "")
	if cfg.Server.Port != 9999 {
		t.Error("zero port flag must not override")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"prod without secret", func(c *Config) {}, "cookie_secret"},
		{"short secret", func(c *Config) { c.Auth.CookieSecret = "short" }, "at least 32"},
		{"bad pending store", func(c *Config) {
			c.Environment = "dev"
			c.Auth.PendingStore = "disk"
		}, "memory or redis"},
		{"redis without addr", func(c *Config) {
			c.Environment = "dev"
			c.Auth.PendingStore = "redis"
		}, "redis_addr"},
		{"bad timezone", func(c *Config) {
			c.Environment = "dev"
			c.Downloads.Timezone = "Mars/Olympus"
		}, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			issues := strings.Join(cfg.Validate(), "\n")
			if !strings.Contains(issues, tt.wantSub) {
				t.Errorf("expected issue containing %q, got %q", tt.wantSub, issues)
			}
		})
	}
}

func TestValidate_DevDefaultsAreValid(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Environment = "dev"
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Errorf("expected no issues in dev, got %v", issues)
	}
}

func TestExportDir_DefaultsToDataDir(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.ExportDir() != cfg.Data.Dir {
		t.Errorf("expected export dir %s, got %s", cfg.Data.Dir, cfg.ExportDir())
	}
	cfg.Downloads.ExportDir = "/exports"
	if cfg.ExportDir() != "/exports" {
		t.Errorf("expected /exports, got %s", cfg.ExportDir())
	}
}

func TestParseDuration_Fallback(t *testing.T) {
	a := AuthConfig{CookieTTL: "not-a-duration"}
	if a.GetCookieTTL() != 12*time.Hour {
		t.Errorf("expected fallback 12h, got %s", a.GetCookieTTL())
	}
}
