package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DatabaseURL:   "postgres://localhost/db",
		SendInterval:  time.Minute,
		IOEnvironment: "production",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing database URL",
			mutate:  func(c *Config) { c.DatabaseURL = "" },
			wantErr: true,
			errMsg:  "CE_DATABASE_URL is required",
		},
		{
			name:    "consumer without brokers",
			mutate:  func(c *Config) { c.CaptureConsumer = true },
			wantErr: true,
			errMsg:  "CE_REDPANDA_BROKERS is required when CE_CAPTURE_CONSUMER is set",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.MaxRetries = -1 },
			wantErr: true,
			errMsg:  "CE_MAX_RETRIES must not be negative",
		},
		{
			name:    "zero interval",
			mutate:  func(c *Config) { c.SendInterval = 0 },
			wantErr: true,
			errMsg:  "CE_SEND_INTERVAL must be positive",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.IOEnvironment = "dev" },
			wantErr: true,
			errMsg:  `CE_IO_ENVIRONMENT must be production or staging, got "dev"`,
		},
		{
			name:    "missing database URL wins",
			mutate:  func(c *Config) { c.DatabaseURL = ""; c.MaxRetries = -1 },
			wantErr: true,
			errMsg:  "CE_DATABASE_URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, defaultDatabaseURL, cfg.DatabaseURL)
	assert.Equal(t, 8080, cfg.CapturePort)
	assert.Equal(t, 8081, cfg.QueryPort)
	assert.Equal(t, 30*time.Second, cfg.DBStatementTimeout)
	assert.Equal(t, []string{"commerce-observer-events", "commerce-plugin-events", "commerce-events"}, cfg.CaptureTopics)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.SendInterval)
	assert.True(t, cfg.EventingEnabled)
	assert.False(t, cfg.CaptureConsumer)
	assert.Equal(t, "production", cfg.IOEnvironment)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiration)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CE_LOG_LEVEL", "debug")
	t.Setenv("CE_CAPTURE_PORT", "9090")
	t.Setenv("CE_MAX_RETRIES", "3")
	t.Setenv("CE_SEND_INTERVAL", "15s")
	t.Setenv("CE_EVENTING_ENABLED", "false")
	t.Setenv("CE_CAPTURE_TOPICS", "orders, products,,")
	t.Setenv("CE_REDPANDA_BROKERS", "a:9092,b:9092")
	t.Setenv("CE_IO_ENVIRONMENT", "staging")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 9090, cfg.CapturePort)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 15*time.Second, cfg.SendInterval)
	assert.False(t, cfg.EventingEnabled)
	assert.Equal(t, []string{"orders", "products"}, cfg.CaptureTopics)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Brokers())
	assert.Equal(t, "staging", cfg.IOEnvironment)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CE_MAX_RETRIES", "many")
	t.Setenv("CE_SEND_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, time.Minute, cfg.SendInterval)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CE_MERCHANT_ID=merchant-from-file\nCE_LOG_LEVEL=warn\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("CE_LOG_LEVEL", "error")
	t.Cleanup(func() { os.Unsetenv("CE_MERCHANT_ID") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "merchant-from-file", cfg.MerchantID)
	assert.Equal(t, "error", cfg.LogLevel)
}
