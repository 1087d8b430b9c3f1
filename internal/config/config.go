// Package config loads agencyd settings from the environment.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for agencyd.
type Config struct {
	AppEnv          string        `envconfig:"APP_ENV" default:"development"`
	AppAddr         string        `envconfig:"APP_ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`

	DatabaseURL    string        `envconfig:"DATABASE_URL" required:"true"`
	DBMaxOpenConns int           `envconfig:"DB_MAX_OPEN_CONNS" default:"20"`
	DBMaxIdleConns int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	DBConnIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"5m"`

	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"24h"`

	SeedOnStart bool `envconfig:"SEED_ON_START" default:"false"`

	RateLimit int `envconfig:"RATE_LIMIT" default:"120"`
}

// Load reads a .env file when one exists, then the environment.
// Variables already set in the environment win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return FromEnv()
}

// FromEnv reads configuration from environment variables only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.JWTSecret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	if cfg.DBMaxIdleConns > cfg.DBMaxOpenConns {
		return nil, errors.New("db max idle connections exceed max open connections")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when agencyd runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// JSONLogs reports whether logs should use the production JSON encoder.
func (c *Config) JSONLogs() bool {
	return c != nil && c.LogFormat == "json"
}
