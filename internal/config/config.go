// Package config loads and validates the pipeline configuration. The
// orchestrator and adapters receive the resulting struct explicitly; nothing
// reads the environment after Load returns.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type SyncConfig struct {
	// MaxPosts caps the per-account fetch limit. Zero means each platform's
	// own default applies (20 for Twitter, 100 for Threads).
	MaxPosts int `yaml:"maxPosts" validate:"min:0"`
	// LookbackDays, when set, turns every run into a backfill window of
	// now-LookbackDays. Zero means incremental mode (no time filter).
	LookbackDays int `yaml:"lookbackDays" validate:"min:0"`
	// MaxPages bounds pagination per account to prevent runaway loops.
	MaxPages int `yaml:"maxPages" validate:"required|min:1"`
}

type HTTPConfig struct {
	Timeout        time.Duration `yaml:"timeout" validate:"required|min:1"`
	RetryAttempts  int           `yaml:"retryAttempts" validate:"required|min:1"`
	RetryBaseDelay time.Duration `yaml:"retryBaseDelay" validate:"required|min:1"`
}

type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
	// CacheSize is the write-dedupe cache size in MB; 0 disables it.
	CacheSize int `yaml:"cacheSize" validate:"min:0"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" validate:"required|in:trace,debug,info,warn,error"`
	Pretty bool   `yaml:"pretty"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type Config struct {
	Sync    SyncConfig    `yaml:"sync"`
	HTTP    HTTPConfig    `yaml:"http"`
	Store   StoreConfig   `yaml:"store"`
	Logger  LoggerConfig  `yaml:"logger"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// Load reads the optional YAML config file at path, applies environment
// overrides, and validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sync.maxPosts", 0)
	v.SetDefault("sync.lookbackDays", 0)
	v.SetDefault("sync.maxPages", 10)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retryAttempts", 3)
	v.SetDefault("http.retryBaseDelay", 2*time.Second)
	v.SetDefault("store.path", "postsync.db")
	v.SetDefault("store.cacheSize", 16)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.pretty", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9109")

	v.BindEnv("sync.maxPosts", "POSTSYNC_MAX_POSTS")
	v.BindEnv("sync.lookbackDays", "POSTSYNC_LOOKBACK_DAYS")
	v.BindEnv("store.path", "POSTSYNC_DB_PATH")
	v.BindEnv("logger.level", "POSTSYNC_LOG_LEVEL")
	v.BindEnv("metrics.enabled", "POSTSYNC_METRICS_ENABLED")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	if err := NewValidator(&conf).Validate(); err != nil {
		return nil, err
	}

	return &conf, nil
}
