package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "parkflow/backend/libs/config"
)

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Port string `yaml:"port" env:"PARKING_HTTP_PORT"`
}

// DatabaseConfig configures the Postgres pool and lifecycle transactions.
type DatabaseConfig struct {
	DSN          string        `yaml:"dsn" env:"PARKING_POSTGRES_DSN"`
	AutoMigrate  bool          `yaml:"autoMigrate" env:"PARKING_POSTGRES_AUTO_MIGRATE"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"PARKING_POSTGRES_MAX_OPEN_CONNS"`
	LockTimeout  time.Duration `yaml:"lockTimeout" env:"PARKING_POSTGRES_LOCK_TIMEOUT"`
}

// RedisConfig configures the active-session cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"PARKING_REDIS_ADDR"`
	Password string        `yaml:"password" env:"PARKING_REDIS_PASSWORD"`
	DB       int           `yaml:"db" env:"PARKING_REDIS_DB"`
	TTL      time.Duration `yaml:"ttl" env:"PARKING_REDIS_TTL"`
}

// JWTConfig holds the operator token secret.
type JWTConfig struct {
	Secret string        `yaml:"secret" env:"PARKING_JWT_SECRET"`
	Leeway time.Duration `yaml:"leeway" env:"PARKING_JWT_LEEWAY"`
}

// BillingConfig tunes business-day boundaries and lifecycle retries.
type BillingConfig struct {
	Timezone       string `yaml:"timezone" env:"PARKING_BILLING_TIMEZONE"`
	DayCutoverHour int    `yaml:"dayCutoverHour" env:"PARKING_BILLING_DAY_CUTOVER_HOUR"`
	MaxTxRetries   int    `yaml:"maxTxRetries" env:"PARKING_BILLING_MAX_TX_RETRIES"`
}

// EventsConfig tunes the websocket feed.
type EventsConfig struct {
	PingInterval time.Duration `yaml:"pingInterval" env:"PARKING_EVENTS_PING_INTERVAL"`
	WriteTimeout time.Duration `yaml:"writeTimeout" env:"PARKING_EVENTS_WRITE_TIMEOUT"`
	Buffer       int           `yaml:"buffer" env:"PARKING_EVENTS_BUFFER"`
}

// Config defines parking service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Billing  BillingConfig  `yaml:"billing"`
	Events   EventsConfig   `yaml:"events"`
}

// Default returns the configuration used before file and env overrides.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Port: "8084"},
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			LockTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{TTL: 24 * time.Hour},
		JWT:   JWTConfig{Leeway: 30 * time.Second},
		Billing: BillingConfig{
			Timezone:       "America/Santiago",
			DayCutoverHour: 3,
			MaxTxRetries:   3,
		},
		Events: EventsConfig{
			PingInterval: 30 * time.Second,
			WriteTimeout: 10 * time.Second,
			Buffer:       32,
		},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database dsn required")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt secret required")
	}
	if c.Billing.DayCutoverHour < 0 || c.Billing.DayCutoverHour > 23 {
		return fmt.Errorf("day cutover hour must be within 0-23, got %d", c.Billing.DayCutoverHour)
	}
	if _, err := time.LoadLocation(c.Billing.Timezone); err != nil {
		return fmt.Errorf("billing timezone: %w", err)
	}
	if c.Database.LockTimeout < 0 {
		return errors.New("lock timeout must not be negative")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8084"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// Location returns the default billing timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Billing.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheEnabled reports whether a redis address is configured.
func (c *Config) CacheEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
