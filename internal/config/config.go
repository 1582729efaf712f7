// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DevelopmentSecretKey is the fallback signing secret used when SECRET_KEY is unset.
// It is public and must never be used outside local development.
const DevelopmentSecretKey = "change-me-development-only"

// Supported token signing algorithms (HMAC family only).
var supportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	DBMaxConns    int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns    int32  `env:"DB_MIN_CONNS" envDefault:"2"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Tokens
	SecretKey                string `env:"SECRET_KEY" envDefault:"change-me-development-only"`
	Algorithm                string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"15"`

	// Password hashing (Argon2id)
	Argon2MemoryKB uint32 `env:"ARGON2_MEMORY_KB" envDefault:"65536"`
	Argon2Time     uint32 `env:"ARGON2_TIME" envDefault:"3"`
	Argon2Threads  uint8  `env:"ARGON2_THREADS" envDefault:"4"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:8100"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesDevelopmentSecret reports whether tokens are signed with the public fallback secret.
func (c *Config) UsesDevelopmentSecret() bool {
	return c.SecretKey == DevelopmentSecretKey
}

// AccessTokenTTL returns the default lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.SecretKey == "" {
		errs = append(errs, errors.New("SECRET_KEY must not be empty"))
	}
	if c.IsProduction() && c.UsesDevelopmentSecret() {
		errs = append(errs, errors.New("SECRET_KEY must be set in production"))
	}

	validAlg := false
	for _, alg := range supportedAlgorithms {
		if c.Algorithm == alg {
			validAlg = true
			break
		}
	}
	if !validAlg {
		errs = append(errs, fmt.Errorf("ALGORITHM %q is not supported (use one of %s)",
			c.Algorithm, strings.Join(supportedAlgorithms, ", ")))
	}

	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS must not exceed DB_MAX_CONNS"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
