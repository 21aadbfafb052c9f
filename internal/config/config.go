// Package config loads monitor settings from the environment, with an
// optional YAML config file underneath.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config contains all monitor settings.
type Config struct {
	WebhookURL     string `mapstructure:"DISCORD_WEBHOOK_URL"`
	LogLevel       string `mapstructure:"LOG_LEVEL"`
	RetryAttempts  int    `mapstructure:"RETRY_ATTEMPTS"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS"`
	Username       string `mapstructure:"DISCORD_USERNAME"`
	AvatarURL      string `mapstructure:"DISCORD_AVATAR_URL"`
	// DedupWindowSeconds is the suppression window. Zero disables
	// deduplication.
	DedupWindowSeconds float64 `mapstructure:"DEDUP_WINDOW"`
	// MetricsAddr is the Prometheus listen address. Empty disables the
	// metrics endpoint.
	MetricsAddr string `mapstructure:"METRICS_ADDR"`
}

const (
	defaultUsername  = "Docker Swarm Monitor"
	defaultAvatarURL = "https://raw.githubusercontent.com/docker/compose/v2/logo.png"
)

// Load reads settings from environment variables and, when cfgFile is
// non-empty, a YAML config file. Environment variables win.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	for key, def := range map[string]any{
		"DISCORD_WEBHOOK_URL": "",
		"LOG_LEVEL":           "INFO",
		"RETRY_ATTEMPTS":      3,
		"TIMEOUT_SECONDS":     30,
		"DISCORD_USERNAME":    defaultUsername,
		"DISCORD_AVATAR_URL":  defaultAvatarURL,
		"DEDUP_WINDOW":        10.0,
		"METRICS_ADDR":        "",
	} {
		_ = v.BindEnv(key)
		v.SetDefault(key, def)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks startup preconditions. A failure here is fatal.
func (c *Config) Validate() error {
	if c.WebhookURL == "" {
		return fmt.Errorf("DISCORD_WEBHOOK_URL is required (Server Settings > Integrations > Webhooks)")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("RETRY_ATTEMPTS must be at least 1, got %d", c.RetryAttempts)
	}
	if c.TimeoutSeconds < 1 {
		return fmt.Errorf("TIMEOUT_SECONDS must be at least 1, got %d", c.TimeoutSeconds)
	}
	if c.DedupWindowSeconds < 0 {
		return fmt.Errorf("DEDUP_WINDOW must not be negative, got %v", c.DedupWindowSeconds)
	}
	return nil
}

// DedupWindow returns the suppression window as a duration.
func (c *Config) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds * float64(time.Second))
}
