package config_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumnet/internal/gateway/config"
	"alumnet/pkg/logger"
)

func TestLoad(t *testing.T) {
	err := logger.InitGlobalLoggerWithLevel(logger.Development, "info")
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("successfully loads config from environment", func(t *testing.T) {
		envVars := map[string]string{
			"GATEWAY_HTTP_HOST":                  "127.0.0.1",
			"GATEWAY_HTTP_PORT":                  "9090",
			"GATEWAY_API_BASE_URL":               "https://api.example.com",
			"GATEWAY_API_TENANT_ID":              "tenant-42",
			"GATEWAY_API_TIMEOUT":                "15s",
			"GATEWAY_SESSION_STORE":              "redis",
			"GATEWAY_SESSION_RETRY_MAX_ATTEMPTS": "5",
			"GATEWAY_SESSION_RETRY_BASE_DELAY":   "250ms",
			"GATEWAY_SESSION_COOKIE_NAME":        "authToken",
			"GATEWAY_SESSION_COOKIE_SECURE":      "true",
			"GATEWAY_LOGGER_LEVEL":               "debug",
			"GATEWAY_LOGGER_MODE":                "production",
			"GATEWAY_GRACEFUL_SHUTDOWN_TIMEOUT":  "10",
		}

		for k, v := range envVars {
			os.Setenv(k, v)
		}

		defer func() {
			for k := range envVars {
				os.Unsetenv(k)
			}
		}()

		cfg, err := config.Load(ctx)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "127.0.0.1", cfg.HTTP.Host)
		assert.Equal(t, 9090, cfg.HTTP.Port)
		assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.GetAddress())

		assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
		assert.Equal(t, "tenant-42", cfg.API.TenantID)
		assert.Equal(t, 15*time.Second, cfg.API.Timeout)

		assert.Equal(t, config.StoreRedis, cfg.Session.Store)
		assert.Equal(t, 5, cfg.Session.RetryMaxAttempts)
		assert.Equal(t, 250*time.Millisecond, cfg.Session.RetryBaseDelay)
		assert.Equal(t, "authToken", cfg.Session.CookieName)
		assert.True(t, cfg.Session.CookieSecure)

		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "production", cfg.Logging.Mode)
		assert.Equal(t, logger.Production, cfg.Logging.GetEnvironment())

		assert.Equal(t, 10*time.Second, cfg.Shutdown.GetTimeout())
	})

	t.Run("applies defaults when environment is empty", func(t *testing.T) {
		cfg, err := config.Load(ctx)

		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.Equal(t, "0.0.0.0", cfg.HTTP.Host)
		assert.Equal(t, 8080, cfg.HTTP.Port)
		assert.Equal(t, config.StoreMemory, cfg.Session.Store)
		assert.Equal(t, 3, cfg.Session.RetryMaxAttempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Session.RetryBaseDelay)
		assert.Equal(t, "authToken", cfg.Session.CookieName)
		assert.Equal(t, 168*time.Hour, cfg.Session.CookieMaxAge)
		assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	})
}
