package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/climate-forecast-service/internal/config"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	alert, ok := domain.NewRiskAlert("New Delhi", domain.RiskAssessment{
		Heatwave:       domain.RiskHigh,
		Drought:        domain.RiskLow,
		Storm:          domain.RiskLow,
		Flood:          domain.RiskMedium,
		Classification: domain.ClassTropical,
	}, now)
	require.True(t, ok)

	msg, err := serializeToMessage(alert)
	require.NoError(t, err)

	assert.Equal(t, []byte("new_delhi"), msg.Key)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "classification", msg.Headers[0].Key)
	assert.Equal(t, []byte("tropical"), msg.Headers[0].Value)
	assert.Equal(t, "assessed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var back domain.RiskAlert
	require.NoError(t, json.Unmarshal(msg.Value, &back))
	assert.Equal(t, []domain.Hazard{domain.HazardHeatwave}, back.HighHazards)
	assert.Equal(t, domain.RiskMedium, back.Assessment.Flood)
	assert.Len(t, back.Recommendations, 1)
}

func TestNewWriter_UsesAlertTopic(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker1:9092", "broker2:9092"}, KafkaAlertTopic: "alerts"}

	w := NewWriter(cfg, nil)
	defer w.Close()

	assert.Equal(t, "alerts", w.writer.Topic)
	assert.Equal(t, kafkago.RequireAll, w.writer.RequiredAcks)
	assert.IsType(t, &kafkago.Hash{}, w.writer.Balancer)
}
