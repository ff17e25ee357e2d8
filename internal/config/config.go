package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabasePath string
	DatabaseURL  string
	Timezone     string

	PredictorURL     string
	PredictorTimeout time.Duration

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CatalogSeedPath string

	AWSRegion    string
	SESFromEmail string
	SESFromName  string

	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:        getEnv("PORT", "8080"),
		DatabaseType:      getEnv("DATABASE_TYPE", "sqlite"),
		DatabasePath:      getEnv("DB_PATH", "./chromabloom.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		Timezone:          getEnv("TIMEZONE", "UTC"),
		PredictorURL:      getEnv("PREDICTOR_URL", "http://localhost:8001"),
		PredictorTimeout:  getEnvDuration("PREDICTOR_TIMEOUT", 15*time.Second),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		JWTIssuer:         getEnv("JWT_ISSUER", "chromabloom"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 24*time.Hour),
		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 120),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		CatalogSeedPath:   getEnv("CATALOG_SEED_PATH", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "ChromaBloom"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}
}

// Location resolves the configured time zone used for cycle boundaries and run dates.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.PredictorTimeout <= 0 {
		return fmt.Errorf("PREDICTOR_TIMEOUT must be positive")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("rate limit settings must be positive")
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
