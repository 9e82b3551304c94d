package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/requisify/requisify/pkg/claims"
	"github.com/requisify/requisify/pkg/observability"
	"github.com/requisify/requisify/pkg/session"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL configuration. The audit URL is a
// separate connection so security events keep flowing when the business
// pool is saturated; when empty the primary URL is used for both.
type DatabaseConfig struct {
	URL      string
	AuditURL string
	MaxConns int
	MinConns int
	Timeout  time.Duration
}

// RedisConfig holds Redis configuration for sessions, token versions,
// and login rate limiting
type RedisConfig struct {
	URL        string
	Password   string
	DB         int
	MaxRetries int
	PoolSize   int
}

// AuthConfig holds token and session settings
type AuthConfig struct {
	// TokenSecret signs access tokens. Required; there is no default.
	TokenSecret string
	TokenTTL    time.Duration
	SessionTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("REQUISIFY_HOST", "0.0.0.0"),
		Port:            getEnv("REQUISIFY_PORT", "8080"),
		ReadTimeout:     getEnvDuration("REQUISIFY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("REQUISIFY_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("REQUISIFY_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("REQUISIFY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("REQUISIFY_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:      getEnv("REQUISIFY_POSTGRES_URL", ""),
		AuditURL: getEnv("REQUISIFY_AUDIT_POSTGRES_URL", ""),
		MaxConns: getEnvInt("REQUISIFY_POSTGRES_MAX_CONNS", 25),
		MinConns: getEnvInt("REQUISIFY_POSTGRES_MIN_CONNS", 5),
		Timeout:  getEnvDuration("REQUISIFY_POSTGRES_TIMEOUT", 30*time.Second),
	}
}

// loadRedisConfig loads Redis configuration from environment
func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:        getEnv("REQUISIFY_REDIS_URL", "localhost:6379"),
		Password:   getEnv("REQUISIFY_REDIS_PASSWORD", ""),
		DB:         getEnvInt("REQUISIFY_REDIS_DB", 0),
		MaxRetries: getEnvInt("REQUISIFY_REDIS_MAX_RETRIES", 3),
		PoolSize:   getEnvInt("REQUISIFY_REDIS_POOL_SIZE", 10),
	}
}

// loadAuthConfig loads token and session configuration from environment
func loadAuthConfig() AuthConfig {
	return AuthConfig{
		TokenSecret: getEnv("REQUISIFY_TOKEN_SECRET", ""),
		TokenTTL:    getEnvDuration("REQUISIFY_TOKEN_TTL", claims.DefaultTokenTTL),
		SessionTTL:  getEnvDuration("REQUISIFY_SESSION_TTL", session.DefaultSessionTTL),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("REQUISIFY_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("REQUISIFY_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("redis URL is required")
	}

	if c.Auth.TokenSecret == "" {
		return fmt.Errorf("token secret is required")
	}
	if len(c.Auth.TokenSecret) < 32 {
		return fmt.Errorf("token secret must be at least 32 bytes")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive")
	}
	if c.Auth.SessionTTL < c.Auth.TokenTTL {
		return fmt.Errorf("session TTL must not be shorter than token TTL")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
