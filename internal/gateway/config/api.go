package config

import "time"

// APIConfig представляет конфигурацию REST бэкенда.
type APIConfig struct {
	BaseURL  string        `yaml:"base_url" env:"GATEWAY_API_BASE_URL" env-default:"http://localhost:3000"`
	TenantID string        `yaml:"tenant_id" env:"GATEWAY_API_TENANT_ID" env-default:""`
	Timeout  time.Duration `yaml:"timeout" env:"GATEWAY_API_TIMEOUT" env-default:"10s"`
}
