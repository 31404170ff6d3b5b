// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64

	// ExportDir receives files written by POST /tracks/{id}/export.
	ExportDir string

	// ExportRetention is the age after which export files are pruned.
	// Defaults to one week. Zero disables pruning.
	ExportRetention time.Duration

	// Location arbiter thresholds.
	SignificantlyNewer        time.Duration
	SignificantlyLessAccurate int
	Freshness                 time.Duration

	// RedisAddr enables cross-instance event fan-out when set.
	RedisAddr string

	// KafkaBrokers enables publishing recording events to KafkaTopic when set.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set or any
// variables that cannot be parsed.
func Load() (Config, error) {
	cfg := Config{
		Port:         getEnv("PORT", "8080"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		CORSOrigins:  splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		ExportDir:    getEnv("EXPORT_DIR", "./exports"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "trackbook.events"),
	}

	var missing, invalid []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	p := parser{invalid: &invalid}
	cfg.MaxBodyBytes = int64(p.positiveInt("MAX_BODY_BYTES", 1<<20))
	cfg.ExportRetention = p.duration("EXPORT_RETENTION", 7*24*time.Hour)
	cfg.SignificantlyNewer = p.duration("SIGNIFICANTLY_NEWER", 2*time.Minute)
	cfg.SignificantlyLessAccurate = p.positiveInt("SIGNIFICANTLY_LESS_ACCURATE_M", 200)
	cfg.Freshness = p.duration("FRESHNESS", 5*time.Minute)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment variables: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parser reads typed variables and records the names of malformed ones.
type parser struct {
	invalid *[]string
}

func (p parser) duration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return d
}

func (p parser) positiveInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*p.invalid = append(*p.invalid, key)
		return fallback
	}
	return n
}
