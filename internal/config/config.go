package config

import (
	"fmt"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	DocStore   DocStoreConfig   `yaml:"docstore"`
	Auth       AuthConfig       `yaml:"auth"`
	CORS       CORSConfig       `yaml:"cors"`
	Log        LogConfig        `yaml:"log"`
	Moderation ModerationConfig `yaml:"moderation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// Document store drivers and change buses.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"

	ChangeBusPostgres = "postgres"
	ChangeBusRedis    = "redis"
)

// DocStoreConfig selects the document store backend.
type DocStoreConfig struct {
	Driver    string `yaml:"driver"     env:"DOCSTORE_DRIVER"     env-default:"memory"`
	ChangeBus string `yaml:"change_bus" env:"DOCSTORE_CHANGE_BUS" env-default:"postgres"`
	Channel   string `yaml:"channel"    env:"DOCSTORE_CHANNEL"    env-default:"docstore_changes"`
	Migrate   bool   `yaml:"migrate"    env:"DOCSTORE_MIGRATE"    env-default:"false"`
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"cypress-connect"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// ModerationConfig holds moderation engine and catalog settings.
type ModerationConfig struct {
	HistoryLimit     int           `yaml:"history_limit"      env:"MODERATION_HISTORY_LIMIT"      env-default:"10"`
	WriteTimeout     time.Duration `yaml:"write_timeout"      env:"MODERATION_WRITE_TIMEOUT"      env-default:"10s"`
	OverlaySeedPath  string        `yaml:"overlay_seed_path"  env:"MODERATION_OVERLAY_SEED_PATH"`
	CatalogCacheSize int           `yaml:"catalog_cache_size" env:"MODERATION_CATALOG_CACHE_SIZE" env-default:"256"`
}

// RateLimitConfig holds request rate limits.
type RateLimitConfig struct {
	SubmissionsPerMinute int `yaml:"submissions_per_minute" env:"RATE_LIMIT_SUBMISSIONS_PER_MINUTE" env-default:"10"`
}
