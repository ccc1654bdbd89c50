package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Aggregation run scheduling.
	CheckInterval time.Duration
	FetchTimeout  time.Duration

	// Bounded concurrency for per-event detail-document fetches.
	DetailFetchConcurrency int

	// Persistent state.
	StateDBPath   string
	LocationsFile string // optional YAML seed for the settings record

	// Kafka notification sink (feature-flagged).
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaNotifyTopic string
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	checkInterval, err := parseDuration("CHECK_INTERVAL", "3m")
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "12s")
	if err != nil {
		return nil, err
	}

	detailConcurrency, err := parseInt("DETAIL_FETCH_CONCURRENCY", 5, 1, 20)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:               envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:               envOrDefault("LOG_LEVEL", "info"),
		LogFormat:              envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:        shutdownTimeout,
		CheckInterval:          checkInterval,
		FetchTimeout:           fetchTimeout,
		DetailFetchConcurrency: detailConcurrency,
		StateDBPath:            envOrDefault("STATE_DB_PATH", "hazard-alerts.db"),
		LocationsFile:          os.Getenv("LOCATIONS_FILE"),
		KafkaEnabled:           kafkaEnabled,
		KafkaBrokers:           splitCommas(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic:       envOrDefault("KAFKA_NOTIFY_TOPIC", "hazard-alert-notifications"),
	}

	if cfg.StateDBPath == "" {
		return nil, errors.New("STATE_DB_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaNotifyTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_NOTIFY_TOPIC is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func parseInt(key string, fallback, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (want %d-%d)", key, raw, min, max)
	}
	return n, nil
}

func splitCommas(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
