// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server settings
	ListenAddr      string
	FrontendOrigins []string

	// Gemini settings
	GeminiAPIKey string // optional; requests may carry their own key

	// AI access gate (soft gate, not a security boundary)
	AccessPassword string

	// Source fetching
	SourcesConfigPath string
	RequestTimeout    time.Duration
	FetchCacheTTL     time.Duration

	// Headline filtering
	MinHeadlineLen int
	MaxHeadlineLen int
	MaxHeadlines   int

	// Quota settings (per session)
	DailyCallCap int
	Cooldown     time.Duration

	// Session lifecycle
	SessionTTL time.Duration

	// App settings
	Debug bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		ListenAddr:        ":8080",
		FrontendOrigins:   []string{"http://localhost:3000"},
		SourcesConfigPath: "configs/sources.yaml",
		RequestTimeout:    15 * time.Second,
		FetchCacheTTL:     1 * time.Hour,
		MinHeadlineLen:    30,
		MaxHeadlineLen:    160,
		MaxHeadlines:      25,
		DailyCallCap:      20,
		Cooldown:          30 * time.Second,
		SessionTTL:        12 * time.Hour,
	}

	// Load from environment
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.AccessPassword = os.Getenv("ACCESS_PASSWORD")

	cfg.ListenAddr = getEnvOrDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.SourcesConfigPath = getEnvOrDefault("SOURCES_CONFIG_PATH", cfg.SourcesConfigPath)

	if origins := os.Getenv("FRONTEND_ORIGINS"); origins != "" {
		cfg.FrontendOrigins = cfg.FrontendOrigins[:0]
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.FrontendOrigins = append(cfg.FrontendOrigins, o)
			}
		}
	}

	cfg.RequestTimeout = time.Duration(getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second
	cfg.FetchCacheTTL = time.Duration(getEnvIntOrDefault("FETCH_CACHE_TTL_MINUTES", 60)) * time.Minute
	cfg.MinHeadlineLen = getEnvIntOrDefault("MIN_HEADLINE_LEN", cfg.MinHeadlineLen)
	cfg.MaxHeadlineLen = getEnvIntOrDefault("MAX_HEADLINE_LEN", cfg.MaxHeadlineLen)
	cfg.MaxHeadlines = getEnvIntOrDefault("MAX_HEADLINES", cfg.MaxHeadlines)
	cfg.DailyCallCap = getEnvIntOrDefault("DAILY_CALL_CAP", cfg.DailyCallCap)
	cfg.Cooldown = time.Duration(getEnvIntOrDefault("COOLDOWN_SECONDS", 30)) * time.Second
	cfg.SessionTTL = time.Duration(getEnvIntOrDefault("SESSION_TTL_HOURS", 12)) * time.Hour

	if debug := os.Getenv("DEBUG"); debug == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("LISTEN_ADDR must not be empty")
	}
	if len(c.FrontendOrigins) == 0 {
		return fmt.Errorf("FRONTEND_ORIGINS must list at least one origin")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.MinHeadlineLen <= 0 || c.MaxHeadlineLen <= c.MinHeadlineLen {
		return fmt.Errorf("headline length window %d..%d is not sane", c.MinHeadlineLen, c.MaxHeadlineLen)
	}
	if c.MaxHeadlines <= 0 {
		return fmt.Errorf("MAX_HEADLINES must be positive")
	}
	if c.DailyCallCap <= 0 {
		return fmt.Errorf("DAILY_CALL_CAP must be positive")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("COOLDOWN_SECONDS must not be negative")
	}
	return nil
}
