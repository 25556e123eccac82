// Package kafka publishes stored readings to a topic for downstream
// consumers (dashboards, alerting). The mirror is feature-flagged and
// best-effort; the warehouse stays the source of truth.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesuradors/tank-telemetry/internal/config"
	"github.com/mesuradors/tank-telemetry/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Mirror produces reading messages to the configured topic.
// It implements pipeline.Mirror.
type Mirror struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewMirror creates a Kafka producer for the readings topic.
func NewMirror(cfg *config.Config, logger *slog.Logger) *Mirror {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReadingsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Mirror{writer: w, logger: logger}
}

// PublishReading serializes and publishes one stored reading. Keying by
// device id keeps each device's readings in partition order.
func (m *Mirror) PublishReading(ctx context.Context, r domain.Reading) error {
	msg, err := serializeReading(r)
	if err != nil {
		return err
	}
	return m.writer.WriteMessages(ctx, msg)
}

func (m *Mirror) Close() error {
	return m.writer.Close()
}

// serializeReading marshals a Reading into a Kafka message.
func serializeReading(r domain.Reading) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize reading: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.DeviceID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "device_id", Value: []byte(r.DeviceID)},
			{Key: "event_time", Value: []byte(r.EventTime.Format(time.RFC3339))},
		},
	}, nil
}
