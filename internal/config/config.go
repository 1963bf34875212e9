package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Flow       FlowConfig
	Redis      RedisConfig
	Activation ActivationConfig
	Security   SecurityConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Address     string
	Environment string
}

// UpstreamConfig holds the GraphQL backend configuration
type UpstreamConfig struct {
	GraphQLURL string
	Timeout    time.Duration
}

// FlowConfig holds configuration for the signed flow session
type FlowConfig struct {
	Secret string
	TTL    time.Duration
}

// RedisConfig holds the optional Redis configuration for the submit guard.
// An empty URL selects the in-memory guard.
type RedisConfig struct {
	URL string
}

// ActivationConfig holds activation page behaviour
type ActivationConfig struct {
	SuccessPath   string
	SubmitLockTTL time.Duration
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
}

// Load loads configuration from environment variables, reading a .env file
// first when one is present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:     getEnv("SERVER_ADDRESS", "0.0.0.0:8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		Upstream: UpstreamConfig{
			GraphQLURL: os.Getenv("GRAPHQL_URL"),
			Timeout:    getEnvAsDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		},
		Flow: FlowConfig{
			Secret: getEnv("FLOW_SECRET", ""),
			TTL:    getEnvAsDuration("FLOW_TTL", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Activation: ActivationConfig{
			SuccessPath:   getEnv("SUCCESS_PATH", "/activate/success"),
			SubmitLockTTL: getEnvAsDuration("SUBMIT_LOCK_TTL", 30*time.Second),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings and value ranges
func (c *Config) Validate() error {
	if c.Upstream.GraphQLURL == "" {
		return fmt.Errorf("GRAPHQL_URL is required")
	}

	if c.Flow.Secret == "" {
		return fmt.Errorf("FLOW_SECRET is required")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}

	// The lock must outlive the upstream call or a slow activation could be
	// submitted twice.
	if c.Activation.SubmitLockTTL < c.Upstream.Timeout {
		return fmt.Errorf("SUBMIT_LOCK_TTL must be at least UPSTREAM_TIMEOUT")
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as time.Duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
