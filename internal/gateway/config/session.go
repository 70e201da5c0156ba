package config

import "time"

// Типы хранилища сессии.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// SessionConfig представляет конфигурацию сессионного слоя.
type SessionConfig struct {
	Store            string        `yaml:"store" env:"GATEWAY_SESSION_STORE" env-default:"memory"`
	RetryMaxAttempts int           `yaml:"retry_max_attempts" env:"GATEWAY_SESSION_RETRY_MAX_ATTEMPTS" env-default:"3"`
	RetryBaseDelay   time.Duration `yaml:"retry_base_delay" env:"GATEWAY_SESSION_RETRY_BASE_DELAY" env-default:"500ms"`
	CookieName       string        `yaml:"cookie_name" env:"GATEWAY_SESSION_COOKIE_NAME" env-default:"authToken"`
	CookieMaxAge     time.Duration `yaml:"cookie_max_age" env:"GATEWAY_SESSION_COOKIE_MAX_AGE" env-default:"168h"`
	CookieSecure     bool          `yaml:"cookie_secure" env:"GATEWAY_SESSION_COOKIE_SECURE" env-default:"false"`
}
