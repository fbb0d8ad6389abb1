// Package config manages application configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Upstream API settings
	APIKey          string
	UpstreamTimeout time.Duration
	UpstreamRPS     float64

	// Aggregation settings
	StrictDateFilter bool
	FallbackDays     int // 0 means the unbounded fallback (latest video regardless of age)
	MaxResults       int64
	FetchCacheTTL    time.Duration
	Concurrency      int
	RefreshInterval  time.Duration // 0 disables the background refresh worker

	// Storage settings
	DataPath string
	RedisURL string

	// Server settings
	Port          string
	LogLevel      string
	AdminUsername string
	AdminPassword string
}

// Default returns configuration with safe defaults.
func Default() *Config {
	return &Config{
		UpstreamTimeout:  10 * time.Second,
		UpstreamRPS:      1.0,
		StrictDateFilter: true,
		MaxResults:       5,
		FetchCacheTTL:    time.Hour,
		Concurrency:      4,
		DataPath:         "tubedigest.json",
		Port:             "8000",
		LogLevel:         "info",
		AdminUsername:    "admin",
		AdminPassword:    "admin123",
	}
}

// Load reads a .env file when present, applies environment variables over
// the defaults, and validates the result. YOUTUBE_API_KEY is required.
func Load() (*Config, error) {
	godotenv.Load() // .env is optional

	cfg := Default()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() {
	c.APIKey = os.Getenv("YOUTUBE_API_KEY")
	c.RedisURL = os.Getenv("REDIS_URL")

	if v := os.Getenv("TUBEDIGEST_DATA"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		c.AdminUsername = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.AdminPassword = v
	}
	if v := os.Getenv("TUBEDIGEST_STRICT_FILTER"); v != "" {
		c.StrictDateFilter = v == "true" || v == "1"
	}
	if v := os.Getenv("TUBEDIGEST_FALLBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.FallbackDays = n
		}
	}
	if v := os.Getenv("TUBEDIGEST_MAX_RESULTS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxResults = n
		}
	}
	if v := os.Getenv("TUBEDIGEST_FETCH_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.FetchCacheTTL = d
		}
	}
	if v := os.Getenv("TUBEDIGEST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
	if v := os.Getenv("TUBEDIGEST_UPSTREAM_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.UpstreamTimeout = d
		}
	}
	if v := os.Getenv("TUBEDIGEST_UPSTREAM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.UpstreamRPS = f
		}
	}
	if v := os.Getenv("TUBEDIGEST_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefreshInterval = d
		}
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("YOUTUBE_API_KEY is not set")
	}
	if c.FallbackDays < 0 {
		return fmt.Errorf("fallback days must be non-negative")
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive")
	}
	if c.FetchCacheTTL < 0 {
		return fmt.Errorf("fetch cache ttl must be non-negative")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}
	if c.UpstreamRPS <= 0 {
		return fmt.Errorf("upstream rps must be positive")
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("refresh interval must be non-negative")
	}
	return nil
}
