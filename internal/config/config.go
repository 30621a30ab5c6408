package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the blackcms server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Events   EventsConfig
	Tenancy  TenancyConfig
}

type ServerConfig struct {
	Port              int
	Env               string
	RequestsPerMinute int
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type EventsConfig struct {
	// SinkTimeout bounds a single delivery attempt so one slow consumer
	// cannot stall the bus.
	SinkTimeout time.Duration
}

type TenancyConfig struct {
	// DefaultTenantSlug optionally names the tenant that CLI and background
	// contexts fall back to when no principal or override resolves.
	DefaultTenantSlug string
}

// Load reads configuration from environment variables and returns a
// validated Config. Returns an error with a descriptive message if any
// required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:              envInt("BLACKCMS_PORT", 8080),
			Env:               envString("BLACKCMS_ENV", "development"),
			RequestsPerMinute: envInt("BLACKCMS_RATE_LIMIT_PER_MIN", 120),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Events: EventsConfig{
			SinkTimeout: envDuration("EVENT_SINK_TIMEOUT", 5*time.Second),
		},
		Tenancy: TenancyConfig{
			DefaultTenantSlug: os.Getenv("BLACKCMS_DEFAULT_TENANT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if c.Events.SinkTimeout <= 0 {
		return fmt.Errorf("EVENT_SINK_TIMEOUT must be positive, got %s", c.Events.SinkTimeout)
	}
	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
