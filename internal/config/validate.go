package config

import (
	"fmt"
	"slices"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0 (got %v)", c.Auth.AccessTokenTTL)
	}

	if err := c.validateDocStore(); err != nil {
		return fmt.Errorf("docstore: %w", err)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return fmt.Errorf("log.level must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("log.format must be json or text (got %q)", c.Log.Format)
	}

	if c.Moderation.HistoryLimit <= 0 {
		return fmt.Errorf("moderation.history_limit must be > 0 (got %d)", c.Moderation.HistoryLimit)
	}
	if c.Moderation.WriteTimeout <= 0 {
		return fmt.Errorf("moderation.write_timeout must be > 0 (got %v)", c.Moderation.WriteTimeout)
	}
	if c.Moderation.CatalogCacheSize <= 0 {
		return fmt.Errorf("moderation.catalog_cache_size must be > 0 (got %d)", c.Moderation.CatalogCacheSize)
	}

	if c.RateLimit.SubmissionsPerMinute <= 0 {
		return fmt.Errorf("rate_limit.submissions_per_minute must be > 0 (got %d)", c.RateLimit.SubmissionsPerMinute)
	}

	return nil
}

func (c *Config) validateDocStore() error {
	switch c.DocStore.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
	default:
		return fmt.Errorf("driver must be %s or %s (got %q)", DriverMemory, DriverPostgres, c.DocStore.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the %s driver", DriverPostgres)
	}
	if c.DocStore.Channel == "" {
		return fmt.Errorf("channel is required")
	}

	switch c.DocStore.ChangeBus {
	case ChangeBusPostgres:
	case ChangeBusRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis.url is required for the %s change bus", ChangeBusRedis)
		}
	default:
		return fmt.Errorf("change_bus must be %s or %s (got %q)", ChangeBusPostgres, ChangeBusRedis, c.DocStore.ChangeBus)
	}
	return nil
}
