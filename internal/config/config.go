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
	SeedCatalog bool
	Insight     InsightConfig
	Timeout     TimeoutConfig
	Retry       RetryConfig
	Retention   RetentionConfig
}

// InsightConfig controls alert and recommendation policy.
type InsightConfig struct {
	AlertTTL            time.Duration
	RecommendationTTL   time.Duration
	AlertDedup          bool
	RecommendationLimit int
	CatalogCacheTTL     time.Duration
}

// RetentionConfig controls the background purge of expired recommendations.
type RetentionConfig struct {
	Period        time.Duration
	SweepInterval time.Duration
}

// TimeoutConfig bounds blocking operations.
type TimeoutConfig struct {
	Store       time.Duration
	InsightRun  time.Duration
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// RetryConfig controls retries of writes that hit a locked database.
type RetryConfig struct {
	DatabaseMaxRetries     int
	DatabaseRetryBaseDelay time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/tandem.db"),
		SeedCatalog: getEnvBool("SEED_CATALOG", true),
		Insight: InsightConfig{
			AlertTTL:            getEnvDuration("ALERT_TTL", 7*24*time.Hour),
			RecommendationTTL:   getEnvDuration("RECOMMENDATION_TTL", 7*24*time.Hour),
			AlertDedup:          getEnvBool("ALERT_DEDUP", true),
			RecommendationLimit: getEnvInt("RECOMMENDATION_LIMIT", 10),
			CatalogCacheTTL:     getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),
		},
		Timeout: TimeoutConfig{
			Store:       getEnvDuration("STORE_TIMEOUT", 3*time.Second),
			InsightRun:  getEnvDuration("INSIGHT_RUN_TIMEOUT", 30*time.Second),
			HealthCheck: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			Shutdown:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Retry: RetryConfig{
			DatabaseMaxRetries:     getEnvInt("DB_MAX_RETRIES", 3),
			DatabaseRetryBaseDelay: getEnvDuration("DB_RETRY_BASE_DELAY", 50*time.Millisecond),
		},
		Retention: RetentionConfig{
			Period:        getEnvDuration("RETENTION_PERIOD", 30*24*time.Hour),
			SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),
		},
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
	if c.Insight.AlertTTL <= 0 {
		return fmt.Errorf("ALERT_TTL must be > 0")
	}
	if c.Insight.RecommendationTTL <= 0 {
		return fmt.Errorf("RECOMMENDATION_TTL must be > 0")
	}
	if c.Insight.RecommendationLimit < 0 {
		return fmt.Errorf("RECOMMENDATION_LIMIT must be >= 0")
	}
	if c.Timeout.Store <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be > 0")
	}
	if c.Timeout.InsightRun <= 0 {
		return fmt.Errorf("INSIGHT_RUN_TIMEOUT must be > 0")
	}
	if c.Retry.DatabaseMaxRetries <= 0 {
		return fmt.Errorf("DB_MAX_RETRIES must be > 0")
	}
	if c.Retention.Period <= 0 {
		return fmt.Errorf("RETENTION_PERIOD must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for the configured frontend.
func (c *Config) AllowedOrigins() []string {
	if c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{c.FrontendURL}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
