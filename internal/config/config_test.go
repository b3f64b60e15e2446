package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

func defaultConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return &cfg
}

// validConfig is a default config with the required paths filled in.
func validConfig(t *testing.T) *Config {
	cfg := defaultConfig(t)
	cfg.Refdata.WOBAConstants = "testdata/woba.csv"
	cfg.Refdata.FangraphsConstants = "testdata/fangraphs.csv"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := defaultConfig(t)

	assert.Equal(t, "./data", cfg.Storage.BaseDir)
	assert.Equal(t, statcast.DefaultBaseURL, cfg.Statcast.BaseURL)
	assert.Equal(t, statcast.MaxSearchRows, cfg.Statcast.RowCap)
	assert.Equal(t, 2*time.Minute, cfg.Statcast.Timeout)
	assert.Equal(t, "https://statsapi.mlb.com", cfg.Schedule.BaseURL)
	assert.Equal(t, 6*time.Hour, cfg.Schedule.CacheTTL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2.0, cfg.Retry.BackoffMultiplier)
	assert.Equal(t, 1, cfg.Harvest.MaxConcurrent)
	assert.Equal(t, 3, cfg.Harvest.CumulativeGraceDays)
	assert.Equal(t, 4500, cfg.Harvest.EstimatedPitchesPerDay)
	assert.Empty(t, cfg.Redis.Addr, "caching is opt-in")
	assert.Equal(t, "0 0 8 * * *", cfg.Watch.Cron)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing_base_dir",
			mutate:  func(c *Config) { c.Storage.BaseDir = "" },
			wantErr: "storage.base_dir",
		},
		{
			name:    "missing_woba_constants",
			mutate:  func(c *Config) { c.Refdata.WOBAConstants = "" },
			wantErr: "refdata.woba_constants",
		},
		{
			name:    "missing_fangraphs_constants",
			mutate:  func(c *Config) { c.Refdata.FangraphsConstants = "" },
			wantErr: "refdata.fangraphs_constants",
		},
		{
			name:    "row_cap_zero",
			mutate:  func(c *Config) { c.Statcast.RowCap = 0 },
			wantErr: "statcast.row_cap",
		},
		{
			name:    "row_cap_over_provider_limit",
			mutate:  func(c *Config) { c.Statcast.RowCap = statcast.MaxSearchRows + 1 },
			wantErr: "statcast.row_cap",
		},
		{
			name:    "negative_timeout",
			mutate:  func(c *Config) { c.Statcast.Timeout = -time.Second },
			wantErr: "statcast.timeout",
		},
		{
			name:    "zero_retry_attempts",
			mutate:  func(c *Config) { c.Retry.MaxAttempts = 0 },
			wantErr: "retry.max_attempts",
		},
		{
			name:    "shrinking_backoff",
			mutate:  func(c *Config) { c.Retry.BackoffMultiplier = 0.5 },
			wantErr: "retry.backoff_multiplier",
		},
		{
			name:    "zero_concurrency",
			mutate:  func(c *Config) { c.Harvest.MaxConcurrent = 0 },
			wantErr: "harvest.max_concurrent",
		},
		{
			name:    "negative_grace",
			mutate:  func(c *Config) { c.Harvest.CumulativeGraceDays = -1 },
			wantErr: "harvest.cumulative_grace_days",
		},
		{
			name:    "bad_log_level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad_log_format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCatalogPath(t *testing.T) {
	c := StorageConfig{BaseDir: "/data/pitches"}
	assert.Equal(t, filepath.Join("/data/pitches", "catalog.db"), c.Catalog())

	c.CatalogPath = "/var/lib/harvester/catalog.db"
	assert.Equal(t, "/var/lib/harvester/catalog.db", c.Catalog())
}

func TestLoadFromFile(t *testing.T) {
	content := `
storage:
  base_dir: /tmp/pitches
refdata:
  woba_constants: /tmp/woba.csv
  fangraphs_constants: /tmp/fangraphs.csv
statcast:
  row_cap: 20000
harvest:
  max_concurrent: 2
logging:
  level: debug
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/pitches", cfg.Storage.BaseDir)
	assert.Equal(t, 20000, cfg.Statcast.RowCap)
	assert.Equal(t, 2, cfg.Harvest.MaxConcurrent)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestLoadEnvOverride(t *testing.T) {
	content := `
storage:
  base_dir: /tmp/pitches
refdata:
  woba_constants: /tmp/woba.csv
  fangraphs_constants: /tmp/fangraphs.csv
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("HARVESTER_STORAGE_BASE_DIR", "/env/pitches")
	t.Setenv("HARVESTER_HARVEST_MAX_CONCURRENT", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/env/pitches", cfg.Storage.BaseDir, "env must win over file")
	assert.Equal(t, 4, cfg.Harvest.MaxConcurrent)
}

func TestLoadInvalidConfigFails(t *testing.T) {
	content := `
storage:
  base_dir: /tmp/pitches
refdata:
  woba_constants: /tmp/woba.csv
  fangraphs_constants: /tmp/fangraphs.csv
statcast:
  row_cap: 99999
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statcast.row_cap")
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
