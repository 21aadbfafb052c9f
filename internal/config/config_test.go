package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/t")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://discord.com/api/webhooks/1/t", cfg.WebhookURL)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, "Docker Swarm Monitor", cfg.Username)
	assert.Equal(t, defaultAvatarURL, cfg.AvatarURL)
	assert.Equal(t, 10.0, cfg.DedupWindowSeconds)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/t")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("RETRY_ATTEMPTS", "5")
	t.Setenv("TIMEOUT_SECONDS", "10")
	t.Setenv("DISCORD_USERNAME", "Prod Cluster")
	t.Setenv("DEDUP_WINDOW", "2.5")
	t.Setenv("METRICS_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 5, cfg.RetryAttempts)
	assert.Equal(t, 10, cfg.TimeoutSeconds)
	assert.Equal(t, "Prod Cluster", cfg.Username)
	assert.Equal(t, 2.5, cfg.DedupWindowSeconds)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
}

func TestLoad_ConfigFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"DISCORD_WEBHOOK_URL: https://discord.com/api/webhooks/2/f\n"+
			"RETRY_ATTEMPTS: 7\n"), 0o600))

	t.Setenv("RETRY_ATTEMPTS", "4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://discord.com/api/webhooks/2/f", cfg.WebhookURL)
	// Environment wins over the file.
	assert.Equal(t, 4, cfg.RetryAttempts)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestValidate_RequiresWebhookURL(t *testing.T) {
	cfg := &Config{RetryAttempts: 3, TimeoutSeconds: 30}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DISCORD_WEBHOOK_URL is required")
}

func TestValidate_Bounds(t *testing.T) {
	valid := Config{
		WebhookURL:         "https://discord.com/api/webhooks/1/t",
		RetryAttempts:      3,
		TimeoutSeconds:     30,
		DedupWindowSeconds: 10,
	}

	cfg := valid
	cfg.RetryAttempts = 0
	assert.ErrorContains(t, cfg.Validate(), "RETRY_ATTEMPTS")

	cfg = valid
	cfg.TimeoutSeconds = 0
	assert.ErrorContains(t, cfg.Validate(), "TIMEOUT_SECONDS")

	cfg = valid
	cfg.DedupWindowSeconds = -1
	assert.ErrorContains(t, cfg.Validate(), "DEDUP_WINDOW")

	cfg = valid
	require.NoError(t, cfg.Validate())

	// Zero window is allowed: it disables deduplication.
	cfg.DedupWindowSeconds = 0
	require.NoError(t, cfg.Validate())
}

func TestDedupWindow_Duration(t *testing.T) {
	cfg := &Config{DedupWindowSeconds: 2.5}
	assert.Equal(t, 2500*time.Millisecond, cfg.DedupWindow())

	cfg.DedupWindowSeconds = 0
	assert.Equal(t, time.Duration(0), cfg.DedupWindow())
}
