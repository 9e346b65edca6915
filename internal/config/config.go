package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL     string
	LogLevel        string
	Port            string
	PrometheusPort  string
	LookaheadDays   int
	RollforwardCron string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		Port:            getEnvOrDefault("PORT", "8080"),
		PrometheusPort:  getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		RollforwardCron: os.Getenv("ROLLFORWARD_CRON"), // empty disables the runner
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if raw := os.Getenv("LOOKAHEAD_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("LOOKAHEAD_DAYS must be a positive integer, got %q", raw)
		}
		cfg.LookaheadDays = days
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
