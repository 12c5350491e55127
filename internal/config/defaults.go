package config

import "github.com/bobmcallan/markmentum-portal/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 8501,
			Host: "localhost",
		},
		Data: DataConfig{
			Dir:       "./data",
			AssetsDir: "./assets",
		},
		Cache: CacheConfig{
			Watch:      true,
			Debounce:   "500ms",
			MaxEntries: 256,
		},
		Auth: AuthConfig{
			CookieTTL:      "12h",
			SessionTTL:     "12h",
			MemberstackURL: "https://admin.memberstack.com",
			HomeURL:        "https://www.markmentumresearch.com",
			AccountURL:     "https://www.markmentumresearch.com/account",
			PendingStore:   "memory",
		},
		Downloads: DownloadsConfig{
			Timezone: "America/New_York",
		},
		Report: ReportConfig{
			RatePerMinute: 6,
			Burst:         2,
			DeepDiveURL:   "/deep-dive",
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
