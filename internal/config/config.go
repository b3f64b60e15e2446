// Package config provides configuration management for the harvester
// using Viper. It supports configuration from files, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/statforge/statcast-harvester/internal/version"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// Default configuration values.
const (
	defaultRowCap            = statcast.MaxSearchRows
	defaultTimeout           = 2 * time.Minute
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = 2 * time.Second
	defaultRetryMaxBackoff   = 30 * time.Second
	defaultMaxConcurrent     = 1
	defaultGraceDays         = 3
	defaultPitchesPerDay     = 4500
	defaultScheduleCacheTTL  = 6 * time.Hour
	defaultWatchCron         = "0 0 8 * * *" // daily at 08:00
	defaultMetricsListenAddr = ""            // disabled
)

// Config holds all configuration for the harvester.
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Refdata  RefdataConfig  `mapstructure:"refdata"`
	Statcast StatcastConfig `mapstructure:"statcast"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Harvest  HarvestConfig  `mapstructure:"harvest"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// StorageConfig holds artifact storage configuration.
type StorageConfig struct {
	// BaseDir is where artifact CSV files are published.
	BaseDir string `mapstructure:"base_dir"`

	// CatalogPath is the sqlite artifact catalog. Empty means
	// {base_dir}/catalog.db.
	CatalogPath string `mapstructure:"catalog_path"`
}

// Catalog returns the effective catalog path.
func (c *StorageConfig) Catalog() string {
	if c.CatalogPath != "" {
		return c.CatalogPath
	}
	return filepath.Join(c.BaseDir, "catalog.db")
}

// RefdataConfig locates the reference constant tables validated at
// startup.
type RefdataConfig struct {
	WOBAConstants      string `mapstructure:"woba_constants"`
	FangraphsConstants string `mapstructure:"fangraphs_constants"`
}

// StatcastConfig holds search provider configuration.
type StatcastConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	RowCap    int           `mapstructure:"row_cap"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ScheduleConfig holds statsapi schedule client configuration.
type ScheduleConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// RetryConfig holds provider retry behavior.
type RetryConfig struct {
	MaxAttempts       int           `mapstructure:"max_attempts"`
	InitialBackoff    time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
}

// HarvestConfig holds run orchestration configuration.
type HarvestConfig struct {
	// MaxConcurrent bounds in-flight provider requests. Keep low;
	// the provider throttles aggressive clients.
	MaxConcurrent int `mapstructure:"max_concurrent"`

	// CumulativeGraceDays extends a season past its last game before
	// the cumulative artifact may be frozen.
	CumulativeGraceDays int `mapstructure:"cumulative_grace_days"`

	// EstimatedPitchesPerDay sizes dates the count pre-search did not
	// cover.
	EstimatedPitchesPerDay int `mapstructure:"estimated_pitches_per_day"`
}

// RedisConfig holds the optional response cache configuration. An
// empty address disables caching.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WatchConfig holds scheduled-run configuration.
type WatchConfig struct {
	// Cron is a 6-field cron expression for recurring harvests.
	Cron string `mapstructure:"cron"`

	// MetricsAddr exposes Prometheus metrics when non-empty,
	// e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
	File   string `mapstructure:"file"`   // optional log file, dated per run
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration, are
// prefixed with HARVESTER_, and use underscores for nesting.
// Example: HARVESTER_STORAGE_BASE_DIR=/data/pitches.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/statcast-harvester")
		v.AddConfigPath("$HOME/.statcast-harvester")
	}

	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Config file not found is OK - defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.catalog_path", "")

	v.SetDefault("refdata.woba_constants", "")
	v.SetDefault("refdata.fangraphs_constants", "")

	v.SetDefault("statcast.base_url", statcast.DefaultBaseURL)
	v.SetDefault("statcast.user_agent", version.UserAgent())
	v.SetDefault("statcast.row_cap", defaultRowCap)
	v.SetDefault("statcast.timeout", defaultTimeout)

	v.SetDefault("schedule.base_url", "https://statsapi.mlb.com")
	v.SetDefault("schedule.timeout", 30*time.Second)
	v.SetDefault("schedule.cache_ttl", defaultScheduleCacheTTL)

	v.SetDefault("retry.max_attempts", defaultRetryAttempts)
	v.SetDefault("retry.initial_backoff", defaultRetryBackoff)
	v.SetDefault("retry.max_backoff", defaultRetryMaxBackoff)
	v.SetDefault("retry.backoff_multiplier", 2.0)

	v.SetDefault("harvest.max_concurrent", defaultMaxConcurrent)
	v.SetDefault("harvest.cumulative_grace_days", defaultGraceDays)
	v.SetDefault("harvest.estimated_pitches_per_day", defaultPitchesPerDay)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("watch.cron", defaultWatchCron)
	v.SetDefault("watch.metrics_addr", defaultMetricsListenAddr)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	if c.Refdata.WOBAConstants == "" {
		return fmt.Errorf("refdata.woba_constants is required")
	}
	if c.Refdata.FangraphsConstants == "" {
		return fmt.Errorf("refdata.fangraphs_constants is required")
	}

	if c.Statcast.RowCap < 1 || c.Statcast.RowCap > statcast.MaxSearchRows {
		return fmt.Errorf("statcast.row_cap must be between 1 and %d", statcast.MaxSearchRows)
	}
	if c.Statcast.Timeout <= 0 {
		return fmt.Errorf("statcast.timeout must be positive")
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("retry.backoff_multiplier must be at least 1")
	}

	if c.Harvest.MaxConcurrent < 1 {
		return fmt.Errorf("harvest.max_concurrent must be at least 1")
	}
	if c.Harvest.CumulativeGraceDays < 0 {
		return fmt.Errorf("harvest.cumulative_grace_days must not be negative")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
