package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Empty(t, cfg.S3Bucket)
	assert.False(t, cfg.RemoteEnabled())
	assert.Equal(t, "models", cfg.S3Prefix)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.Equal(t, 5*time.Second, cfg.RemoteTimeout)
	assert.InDelta(t, 10.0, cfg.RemoteRateLimit, 0)
	assert.Equal(t, 5, cfg.RemoteRateBurst)
	assert.Equal(t, time.Hour, cfg.BundleCacheTTL)
	assert.Equal(t, 256, cfg.BundleCacheSize)
	assert.Equal(t, 365, cfg.MaxHorizonDays)
	assert.Equal(t, 30, cfg.RiskLookbackDays)
	assert.Zero(t, cfg.SyntheticSeed)
	assert.False(t, cfg.AlertsEnabled)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "climate-risk-alerts", cfg.KafkaAlertTopic)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("MODEL_DIR", "/srv/models")
	t.Setenv("S3_BUCKET", "climate-models")
	t.Setenv("S3_PREFIX", "bundles")
	t.Setenv("S3_REGION", "ap-south-1")
	t.Setenv("S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("REMOTE_TIMEOUT", "2s")
	t.Setenv("REMOTE_RATE_LIMIT", "2.5")
	t.Setenv("REMOTE_RATE_BURST", "1")
	t.Setenv("BUNDLE_CACHE_TTL", "15m")
	t.Setenv("BUNDLE_CACHE_SIZE", "32")
	t.Setenv("MAX_HORIZON_DAYS", "30")
	t.Setenv("RISK_LOOKBACK_DAYS", "14")
	t.Setenv("SYNTHETIC_SEED", "42")
	t.Setenv("ALERTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_ALERT_TOPIC", "alerts")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/srv/models", cfg.ModelDir)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, "bundles", cfg.S3Prefix)
	assert.Equal(t, "ap-south-1", cfg.S3Region)
	assert.Equal(t, "http://localhost:9000", cfg.S3Endpoint)
	assert.Equal(t, 2*time.Second, cfg.RemoteTimeout)
	assert.InDelta(t, 2.5, cfg.RemoteRateLimit, 0)
	assert.Equal(t, 1, cfg.RemoteRateBurst)
	assert.Equal(t, 15*time.Minute, cfg.BundleCacheTTL)
	assert.Equal(t, 32, cfg.BundleCacheSize)
	assert.Equal(t, 30, cfg.MaxHorizonDays)
	assert.Equal(t, 14, cfg.RiskLookbackDays)
	assert.Equal(t, uint64(42), cfg.SyntheticSeed)
	assert.True(t, cfg.AlertsEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "alerts", cfg.KafkaAlertTopic)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"SHUTDOWN_TIMEOUT", "-1s"},
		{"REMOTE_TIMEOUT", "0s"},
		{"BUNDLE_CACHE_TTL", "soon"},
		{"BUNDLE_CACHE_SIZE", "0"},
		{"REMOTE_RATE_BURST", "many"},
		{"REMOTE_RATE_LIMIT", "-3"},
		{"MAX_HORIZON_DAYS", "-7"},
		{"MAX_HORIZON_DAYS", "20"},
		{"RISK_LOOKBACK_DAYS", "400"},
		{"SYNTHETIC_SEED", "-1"},
		{"ALERTS_ENABLED", "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestLoad_LookbackShorterThanRiskWindow(t *testing.T) {
	t.Setenv("RISK_LOOKBACK_DAYS", "6")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RISK_LOOKBACK_DAYS")
}

func TestLoad_AlertsNeedBrokers(t *testing.T) {
	t.Setenv("ALERTS_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", " , ")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_BROKERS")
}

func TestLoad_BrokersIgnoredWhenAlertsDisabled(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", ",")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, ParseBrokers("a:1,,b:2 "))
	assert.Nil(t, ParseBrokers(""))
}
