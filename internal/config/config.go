package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the automation engine server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Runner   RunnerConfig
	Engine   EngineConfig
	Metrics  MetricsConfig
	Quota    QuotaConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	RateLimitPerMin int
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

// RunnerConfig points at the external automation-runner service that drives
// the actual browser sessions.
type RunnerConfig struct {
	BaseURL string
	Timeout time.Duration
}

type EngineConfig struct {
	MaxConcurrency   int
	TickInterval     time.Duration
	ExecutionTimeout time.Duration
	NotifyBuffer     int
}

type MetricsConfig struct {
	Interval  time.Duration
	Retention time.Duration

	ErrorRateThreshold    float64
	ResponseTimeThreshold time.Duration
	MemoryPercentLimit    float64
	CPUPercentLimit       float64
	BacklogLimit          int
}

// QuotaConfig bounds server-side executions per user per period. Requests
// over quota are handed off to the user's desktop executor.
type QuotaConfig struct {
	ServerLimit int
	Period      time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("JOBSWIPE_PORT", 8080),
			Env:             envString("JOBSWIPE_ENV", "development"),
			RateLimitPerMin: envInt("RATE_LIMIT_PER_MINUTE", 60),
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
		Runner: RunnerConfig{
			BaseURL: os.Getenv("RUNNER_BASE_URL"),
			Timeout: envDuration("RUNNER_TIMEOUT", 5*time.Minute),
		},
		Engine: EngineConfig{
			MaxConcurrency:   envInt("ENGINE_MAX_CONCURRENCY", 3),
			TickInterval:     envDuration("ENGINE_TICK_INTERVAL", 5*time.Second),
			ExecutionTimeout: envDuration("ENGINE_EXECUTION_TIMEOUT", 3*time.Minute),
			NotifyBuffer:     envInt("ENGINE_NOTIFY_BUFFER", 256),
		},
		Metrics: MetricsConfig{
			Interval:              envDuration("METRICS_INTERVAL", 30*time.Second),
			Retention:             envDuration("METRICS_RETENTION", 24*time.Hour),
			ErrorRateThreshold:    envFloat("ALERT_ERROR_RATE", 0.05),
			ResponseTimeThreshold: envDuration("ALERT_RESPONSE_TIME", 60*time.Second),
			MemoryPercentLimit:    envFloat("ALERT_MEMORY_PERCENT", 85),
			CPUPercentLimit:       envFloat("ALERT_CPU_PERCENT", 90),
			BacklogLimit:          envInt("ALERT_BACKLOG_LIMIT", 100),
		},
		Quota: QuotaConfig{
			ServerLimit: envInt("QUOTA_SERVER_LIMIT", 10),
			Period:      envDuration("QUOTA_PERIOD", 24*time.Hour),
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

	if c.Runner.BaseURL == "" {
		return fmt.Errorf("RUNNER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Runner.BaseURL, "http://") && !strings.HasPrefix(c.Runner.BaseURL, "https://") {
		return fmt.Errorf("RUNNER_BASE_URL must start with http:// or https://, got %q", c.Runner.BaseURL)
	}

	if c.Engine.MaxConcurrency < 1 {
		return fmt.Errorf("ENGINE_MAX_CONCURRENCY must be at least 1, got %d", c.Engine.MaxConcurrency)
	}
	if c.Engine.TickInterval <= 0 {
		return fmt.Errorf("ENGINE_TICK_INTERVAL must be positive")
	}
	if c.Engine.ExecutionTimeout <= 0 {
		return fmt.Errorf("ENGINE_EXECUTION_TIMEOUT must be positive")
	}

	if c.Metrics.ErrorRateThreshold <= 0 || c.Metrics.ErrorRateThreshold > 1 {
		return fmt.Errorf("ALERT_ERROR_RATE must be in (0, 1], got %v", c.Metrics.ErrorRateThreshold)
	}

	if c.Quota.ServerLimit < 0 {
		return fmt.Errorf("QUOTA_SERVER_LIMIT must not be negative, got %d", c.Quota.ServerLimit)
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

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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
