package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Local bundle tier.
	ModelDir string

	// Remote bundle tier. An empty S3Bucket disables it.
	S3Bucket        string
	S3Prefix        string
	S3Region        string
	S3Endpoint      string
	RemoteTimeout   time.Duration
	RemoteRateLimit float64
	RemoteRateBurst int

	BundleCacheTTL  time.Duration
	BundleCacheSize int

	MaxHorizonDays   int
	RiskLookbackDays int
	SyntheticSeed    uint64

	// Risk alert publishing.
	AlertsEnabled   bool
	KafkaBrokers    []string
	KafkaAlertTopic string
}

// RemoteEnabled reports whether the S3 tier should be wired.
func (c *Config) RemoteEnabled() bool { return c.S3Bucket != "" }

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is applied first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	remoteTimeout, err := parseDuration("REMOTE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("BUNDLE_CACHE_TTL", "1h")
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("BUNDLE_CACHE_SIZE", 256)
	if err != nil {
		return nil, err
	}
	rateBurst, err := parsePositiveInt("REMOTE_RATE_BURST", 5)
	if err != nil {
		return nil, err
	}
	maxHorizon, err := parsePositiveInt("MAX_HORIZON_DAYS", 365)
	if err != nil {
		return nil, err
	}
	lookback, err := parsePositiveInt("RISK_LOOKBACK_DAYS", 30)
	if err != nil {
		return nil, err
	}

	rateLimit, err := strconv.ParseFloat(EnvOrDefault("REMOTE_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid REMOTE_RATE_LIMIT")
	}
	seed, err := strconv.ParseUint(EnvOrDefault("SYNTHETIC_SEED", "0"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid SYNTHETIC_SEED")
	}
	alertsEnabled, err := strconv.ParseBool(EnvOrDefault("ALERTS_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid ALERTS_ENABLED")
	}

	cfg := &Config{
		HTTPAddr:        EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ModelDir: EnvOrDefault("MODEL_DIR", "models"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Prefix:        EnvOrDefault("S3_PREFIX", "models"),
		S3Region:        EnvOrDefault("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		RemoteTimeout:   remoteTimeout,
		RemoteRateLimit: rateLimit,
		RemoteRateBurst: rateBurst,

		BundleCacheTTL:  cacheTTL,
		BundleCacheSize: cacheSize,

		MaxHorizonDays:   maxHorizon,
		RiskLookbackDays: lookback,
		SyntheticSeed:    seed,

		AlertsEnabled:   alertsEnabled,
		KafkaBrokers:    ParseBrokers(EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAlertTopic: EnvOrDefault("KAFKA_ALERT_TOPIC", "climate-risk-alerts"),
	}

	if cfg.ModelDir == "" {
		return nil, errors.New("MODEL_DIR is required")
	}
	if cfg.RiskLookbackDays < 7 {
		return nil, errors.New("RISK_LOOKBACK_DAYS must be at least 7")
	}
	if cfg.RiskLookbackDays > cfg.MaxHorizonDays {
		return nil, fmt.Errorf("RISK_LOOKBACK_DAYS (%d) must not exceed MAX_HORIZON_DAYS (%d)",
			cfg.RiskLookbackDays, cfg.MaxHorizonDays)
	}
	if cfg.AlertsEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required")
		}
		if cfg.KafkaAlertTopic == "" {
			return nil, errors.New("KAFKA_ALERT_TOPIC is required")
		}
	}

	return cfg, nil
}

// EnvOrDefault returns the value of key, or fallback when it is unset or empty.
func EnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ParseBrokers splits a comma-separated broker list, dropping blanks.
func ParseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
