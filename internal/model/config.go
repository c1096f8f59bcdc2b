package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LogConfig controls the process logger.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Development bool   `mapstructure:"development" yaml:"development"`
}

// SyncConfig controls the background sync loop.
type SyncConfig struct {
	// IntervalSec is how often (in seconds) all accounts are synced.
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`

	// Concurrency is the number of accounts processed at once.
	// 1 processes accounts sequentially.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`

	// FetchTimeoutSec bounds a single account fetch.
	FetchTimeoutSec int `mapstructure:"fetch_timeout_sec" yaml:"fetch_timeout_sec"`

	// FetchLimit caps the number of messages fetched per account.
	FetchLimit int `mapstructure:"fetch_limit" yaml:"fetch_limit"`

	// SinceDays limits the IMAP search window.
	SinceDays int `mapstructure:"since_days" yaml:"since_days"`
}

// BreakerConfig controls the per-provider circuit breaker.
type BreakerConfig struct {
	Enabled        bool `mapstructure:"enabled" yaml:"enabled"`
	MaxFailures    int  `mapstructure:"max_failures" yaml:"max_failures"`
	OpenTimeoutSec int  `mapstructure:"open_timeout_sec" yaml:"open_timeout_sec"`
}

// ProviderRuntimeConfig holds process-level knobs for classification
// providers. The user-facing provider choice lives in Settings.
type ProviderRuntimeConfig struct {
	TimeoutSec int           `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	Breaker    BreakerConfig `mapstructure:"breaker" yaml:"breaker"`
}

// OAuthClient holds the OAuth2 application credentials for one provider.
type OAuthClient struct {
	ClientID     string `mapstructure:"client_id" yaml:"client_id"`
	ClientSecret string `mapstructure:"client_secret" yaml:"client_secret"`
}

// OAuthConfig holds OAuth2 applications used to refresh account tokens.
type OAuthConfig struct {
	Google    OAuthClient `mapstructure:"google" yaml:"google"`
	Microsoft OAuthClient `mapstructure:"microsoft" yaml:"microsoft"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// AppConfig is the top-level process configuration.
type AppConfig struct {
	DataDir string                `mapstructure:"data_dir" yaml:"data_dir"`
	Log     LogConfig             `mapstructure:"log" yaml:"log"`
	Sync    SyncConfig            `mapstructure:"sync" yaml:"sync"`
	AI      ProviderRuntimeConfig `mapstructure:"ai" yaml:"ai"`
	OAuth   OAuthConfig           `mapstructure:"oauth" yaml:"oauth"`
	Metrics MetricsConfig         `mapstructure:"metrics" yaml:"metrics"`
}

// SyncInterval returns the sync interval as a duration.
func (c *AppConfig) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSec) * time.Second
}

// FetchTimeout returns the per-account fetch timeout.
func (c *AppConfig) FetchTimeout() time.Duration {
	return time.Duration(c.Sync.FetchTimeoutSec) * time.Second
}

// ProviderTimeout returns the classification request timeout.
func (c *AppConfig) ProviderTimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSec) * time.Second
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailhub/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(defaultBaseDir(), "config.yaml")
}

func defaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "mailhub")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		DataDir: filepath.Join(defaultBaseDir(), "data"),
		Log: LogConfig{
			Level: "info",
		},
		Sync: SyncConfig{
			IntervalSec:     300,
			Concurrency:     1,
			FetchTimeoutSec: 60,
			FetchLimit:      100,
			SinceDays:       7,
		},
		AI: ProviderRuntimeConfig{
			TimeoutSec: 20,
			Breaker: BreakerConfig{
				Enabled:        true,
				MaxFailures:    5,
				OpenTimeoutSec: 60,
			},
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := defaultAppConfig()
	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.development", d.Log.Development)
	v.SetDefault("sync.interval_sec", d.Sync.IntervalSec)
	v.SetDefault("sync.concurrency", d.Sync.Concurrency)
	v.SetDefault("sync.fetch_timeout_sec", d.Sync.FetchTimeoutSec)
	v.SetDefault("sync.fetch_limit", d.Sync.FetchLimit)
	v.SetDefault("sync.since_days", d.Sync.SinceDays)
	v.SetDefault("ai.timeout_sec", d.AI.TimeoutSec)
	v.SetDefault("ai.breaker.enabled", d.AI.Breaker.Enabled)
	v.SetDefault("ai.breaker.max_failures", d.AI.Breaker.MaxFailures)
	v.SetDefault("ai.breaker.open_timeout_sec", d.AI.Breaker.OpenTimeoutSec)
	v.SetDefault("oauth.google.client_id", "")
	v.SetDefault("oauth.google.client_secret", "")
	v.SetDefault("oauth.microsoft.client_id", "")
	v.SetDefault("oauth.microsoft.client_secret", "")
	v.SetDefault("metrics.addr", d.Metrics.Addr)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with MAILHUB_ override file values
// (e.g. MAILHUB_SYNC_INTERVAL_SEC). If the file does not exist, defaults
// and environment are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("mailhub")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		_, missingFile := err.(*os.PathError)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !missingFile && !notFound {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Sync.Concurrency < 1 {
		cfg.Sync.Concurrency = 1
	}
	if cfg.Sync.IntervalSec <= 0 {
		cfg.Sync.IntervalSec = 300
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("data_dir", cfg.DataDir)
	v.Set("log", cfg.Log)
	v.Set("sync", cfg.Sync)
	v.Set("ai", cfg.AI)
	v.Set("oauth", cfg.OAuth)
	v.Set("metrics", cfg.Metrics)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
