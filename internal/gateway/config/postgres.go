package config

// PostgresConfig представляет конфигурацию Postgres.
type PostgresConfig struct {
	DSN            string `yaml:"dsn" env:"GATEWAY_POSTGRES_DSN" env-default:""`
	MinConns       int    `yaml:"min_conns" env:"GATEWAY_POSTGRES_MIN_CONNS" env-default:"1"`
	MaxConns       int    `yaml:"max_conns" env:"GATEWAY_POSTGRES_MAX_CONNS" env-default:"4"`
	MigrationsPath string `yaml:"migrations_path" env:"GATEWAY_POSTGRES_MIGRATIONS_PATH" env-default:"file://migrations/sessions"`
}
