// Package config loads process configuration from the environment so main
// stays lean. Signing secrets are validated here: a missing or shared secret
// is a startup failure, never a per-request error.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs from its environment.
type Config struct {
	Addr string `env:"PITCHSIDE_ADDR" envDefault:":8080"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"168h"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"720h"`

	DatabaseURL string `env:"DATABASE_URL"`

	Redis RedisConfig `envPrefix:"REDIS_"`

	// KafkaBrokers enables the best-effort event stream tee when non-empty.
	KafkaBrokers    []string `env:"KAFKA_BROKERS"`
	KafkaEventTopic string   `env:"KAFKA_EVENT_TOPIC" envDefault:"pitchside.events"`

	Retry RetryConfig `envPrefix:"STORAGE_RETRY_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// RedisConfig holds connection settings for the snapshot cache.
// Redis is optional; an empty URL disables it.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// RetryConfig tunes the transient-error retry policy for storage reads.
type RetryConfig struct {
	MaxRetries        int           `env:"MAX_RETRIES" envDefault:"3"`
	InitialDelay      time.Duration `env:"INITIAL_DELAY" envDefault:"1s"`
	MaxDelay          time.Duration `env:"MAX_DELAY" envDefault:"10s"`
	BackoffMultiplier float64       `env:"BACKOFF_MULTIPLIER" envDefault:"2"`
}

// ErrSecretsNotDistinct rejects deployments where one leaked secret would
// compromise both token kinds.
var ErrSecretsNotDistinct = errors.New("access and refresh token secrets must be distinct")

// FromEnv builds a Config from environment variables and validates it.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return ErrSecretsNotDistinct
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("STORAGE_RETRY_MAX_RETRIES must be >= 0, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.BackoffMultiplier < 1 {
		return fmt.Errorf("STORAGE_RETRY_BACKOFF_MULTIPLIER must be >= 1, got %v", c.Retry.BackoffMultiplier)
	}
	return nil
}
