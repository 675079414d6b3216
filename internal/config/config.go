// Package config centralises configuration parsing for the clubsync services.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the sync daemon and API.
type Config struct {
	HTTPAddress    string
	MetricsAddress string
	PostgresURL    string

	StravaClientID     string
	StravaClientSecret string
	StravaTokenURL     string // override for tests, defaults to the real endpoint

	KafkaBrokers  []string // empty disables event publishing
	EventsTopic   string
	ConsumerGroup string

	JWTSecret string
	JWTIssuer string

	SyncInterval       time.Duration // cadence of scheduled batch runs
	SyncRecentOnly     bool          // scheduled runs fetch the recent page only
	SyncAccountTimeout time.Duration // per-account deadline inside a batch run
	PageTimeout        time.Duration // per-page request deadline
	RequestsPerMinute  int           // global outbound budget against Strava
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() Config {
	cfg := Config{
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		MetricsAddress:     getEnv("METRICS_ADDRESS", ":9090"),
		PostgresURL:        getEnv("POSTGRES_URL", ""),
		StravaClientID:     getEnv("STRAVA_CLIENT_ID", ""),
		StravaClientSecret: getEnv("STRAVA_CLIENT_SECRET", ""),
		StravaTokenURL:     getEnv("STRAVA_TOKEN_URL", "https://www.strava.com/oauth/token"),
		EventsTopic:        getEnv("EVENTS_TOPIC", "club_sync_events"),
		ConsumerGroup:      getEnv("CONSUMER_GROUP", "clubsync-api"),
		JWTSecret:          getEnv("JWT_SECRET", "dev-secret-change-me"),
		JWTIssuer:          getEnv("JWT_ISSUER", "clubsync.identity"),
		SyncInterval:       getDurationEnv("SYNC_INTERVAL", 2*time.Hour),
		SyncRecentOnly:     getBoolEnv("SYNC_RECENT_ONLY", true),
		SyncAccountTimeout: getDurationEnv("SYNC_ACCOUNT_TIMEOUT", 3*time.Minute),
		PageTimeout:        getDurationEnv("PAGE_TIMEOUT", 30*time.Second),
		RequestsPerMinute:  getIntEnv("REQUESTS_PER_MINUTE", 80),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	return cfg
}

// Validate reports missing required secrets. A failure here is fatal at
// startup; the services must not silently run without provider credentials
// or a durable store.
func (c Config) Validate() error {
	var missing []string
	if c.PostgresURL == "" {
		missing = append(missing, "POSTGRES_URL")
	}
	if c.StravaClientID == "" {
		missing = append(missing, "STRAVA_CLIENT_ID")
	}
	if c.StravaClientSecret == "" {
		missing = append(missing, "STRAVA_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
