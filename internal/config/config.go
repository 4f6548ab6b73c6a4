// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	ProfilePath string

	// SessionIdle is how long a session may go without progress before the
	// reaper finalizes it; SessionRetention is how long ended rows survive
	// before being pruned.
	SessionIdle      time.Duration
	SessionRetention time.Duration

	// EstimatorURL enables server-side pose estimation for raw-frame
	// messages when set. SummarizerURL enables the narrative summarizer.
	EstimatorURL     string
	EstimatorTimeout time.Duration
	SummarizerURL    string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", ""),
		DBPath:           getEnv("DB_PATH", "./data/formcoach.db"),
		ProfilePath:      getEnv("PROFILE_PATH", ""),
		SessionIdle:      getEnvDuration("SESSION_IDLE", 10*time.Minute),
		SessionRetention: getEnvDuration("SESSION_RETENTION", time.Hour),
		EstimatorURL:     getEnv("ESTIMATOR_URL", ""),
		EstimatorTimeout: getEnvDuration("ESTIMATOR_TIMEOUT", 10*time.Second),
		SummarizerURL:    getEnv("SUMMARIZER_URL", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE must be positive")
	}
	if c.SessionRetention <= 0 {
		return fmt.Errorf("SESSION_RETENTION must be positive")
	}
	if c.EstimatorTimeout <= 0 {
		return fmt.Errorf("ESTIMATOR_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		// Accept bare seconds for convenience.
		if n, convErr := strconv.Atoi(strings.TrimSpace(value)); convErr == nil {
			return time.Duration(n) * time.Second
		}
		return fallback
	}
	return d
}
