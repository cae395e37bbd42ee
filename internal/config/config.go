// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds the application configuration. Immutable after the
// composition root applies flag overrides.
type Config struct {
	GitHubToken  string
	Username     string
	PollInterval time.Duration
	TestMode     bool
	MetricsAddr  string
}

// Load reads configuration from environment variables and returns a validated
// Config. PRBEACON_GITHUB_TOKEN is required. PRBEACON_GITHUB_USERNAME is
// optional; when empty, the monitored user is resolved from the token at
// startup. Optional variables with defaults: PRBEACON_POLL_INTERVAL (60s),
// PRBEACON_METRICS_ADDR (empty, metrics disabled).
func Load() (*Config, error) {
	token := os.Getenv("PRBEACON_GITHUB_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("PRBEACON_GITHUB_TOKEN is required")
	}

	pollInterval := 60 * time.Second
	if v, ok := os.LookupEnv("PRBEACON_POLL_INTERVAL"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("PRBEACON_POLL_INTERVAL has invalid duration %q: %w", v, err)
		}
		if parsed <= 0 {
			return nil, fmt.Errorf("PRBEACON_POLL_INTERVAL must be positive, got %q", v)
		}
		pollInterval = parsed
	}

	return &Config{
		GitHubToken:  token,
		Username:     os.Getenv("PRBEACON_GITHUB_USERNAME"),
		PollInterval: pollInterval,
		MetricsAddr:  os.Getenv("PRBEACON_METRICS_ADDR"),
	}, nil
}
