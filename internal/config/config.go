// Package config loads the application configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the static configuration handed to the FX subsystem at
// construction. The API token is intentionally absent: it is read through
// a token accessor at call time so credential rotation is picked up live.
type Config struct {
	Enabled bool
	BaseURL string

	LatestTTL  time.Duration
	SymbolsTTL time.Duration

	MaxRetryAttempts int
	BaseRetryDelay   time.Duration
	MaxRetryDelay    time.Duration

	// RequestsPerMinute is the advisory server-side limit; the client only
	// reacts to 429s but operators want it visible.
	RequestsPerMinute int

	DataDir       string
	SweepInterval time.Duration

	Addr     string
	LogLevel string
	LogFile  string
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Enabled:           envBool("FX_ENABLED", true),
		BaseURL:           envString("FX_BASE_URL", "https://rates.centavo.app"),
		LatestTTL:         15 * time.Minute,
		SymbolsTTL:        24 * time.Hour,
		MaxRetryAttempts:  3,
		BaseRetryDelay:    time.Second,
		MaxRetryDelay:     8 * time.Second,
		RequestsPerMinute: envInt("FX_REQUESTS_PER_MINUTE", 60),
		DataDir:           envString("FX_DATA_DIR", "data"),
		SweepInterval:     time.Hour,
		Addr:              envString("FX_ADDR", ":8080"),
		LogLevel:          envString("FX_LOG_LEVEL", "info"),
		LogFile:           envString("FX_LOG_FILE", ""),
	}

	var err error
	if cfg.LatestTTL, err = envDuration("FX_LATEST_TTL", cfg.LatestTTL); err != nil {
		return nil, err
	}
	if cfg.SymbolsTTL, err = envDuration("FX_SYMBOLS_TTL", cfg.SymbolsTTL); err != nil {
		return nil, err
	}
	if cfg.BaseRetryDelay, err = envDuration("FX_RETRY_BASE_DELAY", cfg.BaseRetryDelay); err != nil {
		return nil, err
	}
	if cfg.MaxRetryDelay, err = envDuration("FX_RETRY_MAX_DELAY", cfg.MaxRetryDelay); err != nil {
		return nil, err
	}
	if cfg.SweepInterval, err = envDuration("FX_CACHE_SWEEP_INTERVAL", cfg.SweepInterval); err != nil {
		return nil, err
	}
	cfg.MaxRetryAttempts = envInt("FX_RETRY_MAX_ATTEMPTS", cfg.MaxRetryAttempts)

	return cfg, nil
}

// Token reads the current API token from the environment. Used as the
// token accessor so rotation is observed on the next call.
func Token() (string, bool) {
	token := os.Getenv("FX_API_TOKEN")
	return token, token != ""
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
