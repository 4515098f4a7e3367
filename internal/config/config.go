package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/i474232898/smart-city-backend/internal/logging"
)

type AppConfig struct {
	Port string

	// Upstream flow segment provider.
	TomTomAPIKey  string
	TomTomBaseURL string

	// Live traffic feed proxied by /getTraffic.
	LiveTrafficURL    string
	LiveTrafficAPIKey string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration

	// StaticDir holds the dashboard front-end.
	StaticDir string

	// Issue retention.
	IssueMaxCount      int           // 0 = unlimited
	IssueMaxAge        time.Duration // 0 = unlimited
	IssuePruneInterval time.Duration

	CORSAllowOrigins string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "3000")

	cfg.TomTomAPIKey = os.Getenv("TOMTOM_API_KEY")
	cfg.TomTomBaseURL = getenvDefault("TOMTOM_BASE_URL", "https://api.tomtom.com")

	cfg.LiveTrafficURL = getenvDefault("LIVE_TRAFFIC_URL", "https://api.trafficprovider.com/live")
	cfg.LiveTrafficAPIKey = getenvDefault("LIVE_TRAFFIC_API_KEY", cfg.TomTomAPIKey)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: must be positive")
	}

	cfg.StaticDir = getenvDefault("STATIC_DIR", "./public")

	cfg.IssueMaxCount = getenvInt("ISSUE_MAX_COUNT", 0)
	if cfg.IssueMaxAge, err = getenvDuration("ISSUE_MAX_AGE", "0s"); err != nil {
		return nil, err
	}
	if cfg.IssuePruneInterval, err = getenvDuration("ISSUE_PRUNE_INTERVAL", "15m"); err != nil {
		return nil, err
	}

	cfg.CORSAllowOrigins = getenvDefault("CORS_ALLOW_ORIGINS", "*")

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogFormat = getenvDefault("LOG_FORMAT", "json")

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
