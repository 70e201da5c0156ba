// Package config содержит конфигурацию Gateway сервиса.
package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	pkgconfig "alumnet/pkg/config"
	"alumnet/pkg/logger"
)

// Константы для сообщений конфигурации.
const (
	LogConfigLoaded     = "gateway configuration loaded"
	ErrFailedLoadConfig = "failed to load gateway configuration"
)

// Config представляет полную конфигурацию Gateway.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	API      APIConfig      `yaml:"api"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Shutdown ShutdownConfig `yaml:"shutdown"`
}

// Load загружает конфигурацию из переменных окружения.
func Load(ctx context.Context) (*Config, error) {
	cfg, err := pkgconfig.Load[Config](ctx, "gateway")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrFailedLoadConfig, err)
	}

	logger.Log(ctx).Info(ctx, LogConfigLoaded,
		zap.String("http_address", cfg.HTTP.GetAddress()),
		zap.String("api_base_url", cfg.API.BaseURL),
		zap.String("tenant_id", cfg.API.TenantID),
		zap.String("session_store", cfg.Session.Store),
		zap.String("log_level", cfg.Logging.Level),
		zap.String("log_mode", cfg.Logging.Mode))

	return cfg, nil
}

// GetEnvironment возвращает режим работы логгера.
func (c *LoggingConfig) GetEnvironment() logger.Environment {
	if c.Mode == "development" {
		return logger.Development
	}
	return logger.Production
}
