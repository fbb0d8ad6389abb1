package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if !cfg.StrictDateFilter {
		t.Error("StrictDateFilter = false, want true")
	}
	if cfg.MaxResults != 5 {
		t.Errorf("MaxResults = %d, want 5", cfg.MaxResults)
	}
	if cfg.FetchCacheTTL != time.Hour {
		t.Errorf("FetchCacheTTL = %v, want 1h", cfg.FetchCacheTTL)
	}
	if cfg.RefreshInterval != 0 {
		t.Errorf("RefreshInterval = %v, want 0 (disabled)", cfg.RefreshInterval)
	}
}

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "YOUTUBE_API_KEY") {
		t.Errorf("Load() error = %v, want YOUTUBE_API_KEY error", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("YOUTUBE_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("TUBEDIGEST_DATA", "/tmp/data.json")
	t.Setenv("TUBEDIGEST_STRICT_FILTER", "false")
	t.Setenv("TUBEDIGEST_FALLBACK_DAYS", "30")
	t.Setenv("TUBEDIGEST_MAX_RESULTS", "10")
	t.Setenv("TUBEDIGEST_FETCH_CACHE_TTL", "30m")
	t.Setenv("TUBEDIGEST_CONCURRENCY", "8")
	t.Setenv("TUBEDIGEST_REFRESH_INTERVAL", "15m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.DataPath != "/tmp/data.json" {
		t.Errorf("DataPath = %q", cfg.DataPath)
	}
	if cfg.StrictDateFilter {
		t.Error("StrictDateFilter = true, want false")
	}
	if cfg.FallbackDays != 30 {
		t.Errorf("FallbackDays = %d, want 30", cfg.FallbackDays)
	}
	if cfg.MaxResults != 10 {
		t.Errorf("MaxResults = %d, want 10", cfg.MaxResults)
	}
	if cfg.FetchCacheTTL != 30*time.Minute {
		t.Errorf("FetchCacheTTL = %v, want 30m", cfg.FetchCacheTTL)
	}
	if cfg.Concurrency != 8 {
		t.Errorf("Concurrency = %d, want 8", cfg.Concurrency)
	}
	if cfg.RefreshInterval != 15*time.Minute {
		t.Errorf("RefreshInterval = %v, want 15m", cfg.RefreshInterval)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.APIKey = "key"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
		{"negative fallback days", func(c *Config) { c.FallbackDays = -1 }, true},
		{"zero max results", func(c *Config) { c.MaxResults = 0 }, true},
		{"negative cache ttl", func(c *Config) { c.FetchCacheTTL = -time.Second }, true},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }, true},
		{"zero upstream timeout", func(c *Config) { c.UpstreamTimeout = 0 }, true},
		{"zero upstream rps", func(c *Config) { c.UpstreamRPS = 0 }, true},
		{"negative refresh interval", func(c *Config) { c.RefreshInterval = -time.Minute }, true},
		{"zero refresh interval ok", func(c *Config) { c.RefreshInterval = 0 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
