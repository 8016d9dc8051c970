package core

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime settings for the API and worker processes.
type Config struct {
	Port              string        // HTTP listen port (e.g., "3000")
	JWTSecret         string        // signing key for bearer tokens; required
	TokenTTL          time.Duration // bearer token lifetime
	ResetTokenTTL     time.Duration // password reset token lifetime
	LogDir            string        // directory to write application logs
	DatabaseURL       string        // PostgreSQL DSN; required
	RedisURL          string        // Redis URL (redis://host:port/db)
	KafkaBrokers      []string      // Kafka broker addresses for the event log
	EventsEnabled     bool          // publish product events to the queue
	SearchEnabled     bool          // maintain the search index projection
	AppURL            string        // public base URL used in reset links
	WorkerConcurrency int           // number of event worker goroutines
	PublishTimeout    time.Duration // bound on a single publish attempt
	AllowedOrigins    []string      // allowed origins for CORS
}

// fileConfig mirrors the subset of Config that may be set via a YAML file
// pointed at by CONFIG_FILE. Environment variables take precedence.
type fileConfig struct {
	Port           string   `yaml:"port"`
	LogDir         string   `yaml:"log_dir"`
	DatabaseURL    string   `yaml:"database_url"`
	RedisURL       string   `yaml:"redis_url"`
	KafkaBrokers   []string `yaml:"kafka_brokers"`
	AppURL         string   `yaml:"app_url"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load populates Config from the optional YAML file and environment
// variables. It returns an error for missing required settings; that error
// is fatal at startup, never per-request.
func Load() (Config, error) {
	var fc fileConfig
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, err
		}
	}

	cfg := Config{
		Port:              firstNonEmpty(os.Getenv("PORT"), fc.Port, "3000"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          durationFromEnv("TOKEN_TTL", time.Hour),
		ResetTokenTTL:     durationFromEnv("RESET_TOKEN_TTL", 15*time.Minute),
		LogDir:            firstNonEmpty(os.Getenv("LOG_DIR"), fc.LogDir, "/var/log/catalog"),
		DatabaseURL:       firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("POSTGRES_URL"), fc.DatabaseURL),
		RedisURL:          firstNonEmpty(os.Getenv("REDIS_URL"), fc.RedisURL, "redis://localhost:6379/0"),
		KafkaBrokers:      parseCSV(os.Getenv("KAFKA_BROKERS")),
		EventsEnabled:     boolFromEnv("EVENTS_ENABLED", false),
		SearchEnabled:     boolFromEnv("SEARCH_ENABLED", false),
		AppURL:            firstNonEmpty(os.Getenv("APP_URL"), fc.AppURL, "http://localhost:3000"),
		WorkerConcurrency: intFromEnv("WORKER_CONCURRENCY", 4),
		PublishTimeout:    durationFromEnv("PUBLISH_TIMEOUT", 2*time.Second),
		AllowedOrigins:    parseCSV(os.Getenv("ALLOWED_ORIGINS")),
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = fc.KafkaBrokers
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// boolFromEnv reads a boolean from env var name, falling back to defaultVal when empty or invalid.
func boolFromEnv(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// intFromEnv reads an int from env var name, falling back to defaultVal when empty or invalid.
func intFromEnv(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// durationFromEnv reads a Go duration string (e.g. "1h", "30s") from env var name.
func durationFromEnv(name string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(name); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

// parseCSV splits comma-separated list and trims spaces; empty entries are skipped.
func parseCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
