package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/climate-forecast-service/internal/config"
	"github.com/couchcryptid/climate-forecast-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces risk alerts to a Kafka topic.
// It implements forecast.AlertPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alert topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaAlertTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlert writes one alert keyed by location, so every alert for a
// location lands on the same partition in order.
func (w *Writer) PublishAlert(ctx context.Context, alert domain.RiskAlert) error {
	msg, err := serializeToMessage(alert)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write risk alert: %w", err)
	}
	w.logger.Debug("risk alert published",
		"location", alert.Location,
		"hazards", alert.HighHazards,
	)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskAlert into a Kafka message.
func serializeToMessage(alert domain.RiskAlert) (kafkago.Message, error) {
	data, err := json.Marshal(alert)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk alert: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(alert.Location),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "classification", Value: []byte(alert.Classification)},
			{Key: "assessed_at", Value: []byte(alert.AssessedAt.Format(time.RFC3339))},
		},
	}, nil
}
