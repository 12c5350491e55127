package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/markmentum-portal/internal/common"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	Data        DataConfig           `toml:"data"`
	Cache       CacheConfig          `toml:"cache"`
	Auth        AuthConfig           `toml:"auth"`
	Downloads   DownloadsConfig      `toml:"downloads"`
	Report      ReportConfig         `toml:"report"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// DataConfig locates the nightly artifacts and static assets.
type DataConfig struct {
	Dir       string `toml:"dir"`
	AssetsDir string `toml:"assets_dir"`
	// Strict fails loudly on schema violations instead of degrading to empty tables.
	Strict bool `toml:"strict"`
}

// CacheConfig controls table cache lifetime.
type CacheConfig struct {
	// ClearOnRender drops every cached table at the start of each page render.
	ClearOnRender bool   `toml:"clear_on_render"`
	Watch         bool   `toml:"watch"`
	Debounce      string `toml:"debounce"`
	// FlushSchedule is a cron expression; empty disables the scheduled flush.
	FlushSchedule string `toml:"flush_schedule"`
	MaxEntries    int    `toml:"max_entries"`
}

// AuthConfig contains the identity-provider bridge settings.
type AuthConfig struct {
	CookieSecret         string `toml:"cookie_secret"`
	CookieTTL            string `toml:"cookie_ttl"`
	SessionTTL           string `toml:"session_ttl"`
	MemberstackURL       string `toml:"memberstack_url"`
	MemberstackSecretKey string `toml:"memberstack_secret_key"`
	MemberstackAppID     string `toml:"memberstack_app_id"`
	HomeURL              string `toml:"home_url"`
	AccountURL           string `toml:"account_url"`
	PendingStore         string `toml:"pending_store"`
	RedisAddr            string `toml:"redis_addr"`
	RedisPassword        string `toml:"redis_password"`
	RedisDB              int    `toml:"redis_db"`
}

// DownloadsConfig contains the export catalog settings.
type DownloadsConfig struct {
	ExportDir     string   `toml:"export_dir"`
	Timezone      string   `toml:"timezone"`
	ExtraPatterns []string `toml:"extra_patterns"`
}

// ReportConfig contains Research Pack settings.
type ReportConfig struct {
	RatePerMinute int    `toml:"rate_per_minute"`
	Burst         int    `toml:"burst"`
	BrowserURL    string `toml:"browser_url"`
	PageBaseURL   string `toml:"page_base_url"`
	DeepDiveURL   string `toml:"deep_dive_url"`
}

// IsDevMode reports whether the environment is "dev".
func (c *Config) IsDevMode() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "dev")
}

// GetCookieTTL returns the signed cookie lifetime.
func (c *AuthConfig) GetCookieTTL() time.Duration {
	return parseDuration(c.CookieTTL, 12*time.Hour)
}

// GetSessionTTL returns the server session lifetime.
func (c *AuthConfig) GetSessionTTL() time.Duration {
	return parseDuration(c.SessionTTL, 12*time.Hour)
}

// GetDebounce returns the watcher debounce delay.
func (c *CacheConfig) GetDebounce() time.Duration {
	return parseDuration(c.Debounce, 500*time.Millisecond)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Validate returns a list of mandatory configuration problems.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Data.Dir == "" {
		issues = append(issues, "data.dir is required")
	}
	if !c.IsDevMode() {
		if c.Auth.CookieSecret == "" {
			issues = append(issues, "auth.cookie_secret (MR_AUTH_COOKIE_SECRET) is required outside dev")
		} else if len(c.Auth.CookieSecret) < 32 {
			issues = append(issues, "auth.cookie_secret must be at least 32 characters")
		}
		if c.Auth.MemberstackSecretKey == "" {
			issues = append(issues, "auth.memberstack_secret_key (MEMBERSTACK_SECRET_KEY) is required outside dev")
		}
	}
	switch c.Auth.PendingStore {
	case "", "memory":
	case "redis":
		if c.Auth.RedisAddr == "" {
			issues = append(issues, "auth.redis_addr is required when pending_store is redis")
		}
	default:
		issues = append(issues, fmt.Sprintf("auth.pending_store %q must be memory or redis", c.Auth.PendingStore))
	}
	if _, err := time.LoadLocation(c.Downloads.Timezone); err != nil {
		issues = append(issues, fmt.Sprintf("downloads.timezone %q is not a valid location", c.Downloads.Timezone))
	}
	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies MARKMENTUM_* and deployment secret overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("MARKMENTUM_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("MARKMENTUM_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	// Hosting platforms inject PORT.
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("MARKMENTUM_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if dir := os.Getenv("MARKMENTUM_DATA_DIR"); dir != "" {
		config.Data.Dir = dir
	}
	if dir := os.Getenv("MARKMENTUM_ASSETS_DIR"); dir != "" {
		config.Data.AssetsDir = dir
	}
	if dir := os.Getenv("MARKMENTUM_EXPORT_DIR"); dir != "" {
		config.Downloads.ExportDir = dir
	}
	if tz := os.Getenv("MARKMENTUM_TZ"); tz != "" {
		config.Downloads.Timezone = tz
	}
	if secret := os.Getenv("MR_AUTH_COOKIE_SECRET"); secret != "" {
		config.Auth.CookieSecret = secret
	}
	if key := os.Getenv("MEMBERSTACK_SECRET_KEY"); key != "" {
		config.Auth.MemberstackSecretKey = key
	}
	if appID := os.Getenv("MEMBERSTACK_APP_ID"); appID != "" {
		config.Auth.MemberstackAppID = appID
	}
	if addr := os.Getenv("MARKMENTUM_REDIS_ADDR"); addr != "" {
		config.Auth.RedisAddr = addr
	}
	if browser := os.Getenv("MARKMENTUM_BROWSER_URL"); browser != "" {
		config.Report.BrowserURL = browser
	}
	if level := os.Getenv("MARKMENTUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("MARKMENTUM_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string, dataDir string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
	if dataDir != "" {
		config.Data.Dir = dataDir
	}
}

// ExportDir returns the downloads directory, defaulting to the data directory.
func (c *Config) ExportDir() string {
	if c.Downloads.ExportDir != "" {
		return c.Downloads.ExportDir
	}
	return c.Data.Dir
}

// BaseURL returns the externally reachable base URL for this server.
func (c *Config) BaseURL() string {
	if c.Report.PageBaseURL != "" {
		return strings.TrimRight(c.Report.PageBaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}
