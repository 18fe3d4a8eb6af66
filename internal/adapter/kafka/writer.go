// Package kafka publishes saved prediction records to a Kafka topic for
// downstream consumers (dashboards, alerting, retraining feeds).
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/hydrotech/groundwater-serve/internal/config"
	"github.com/hydrotech/groundwater-serve/internal/domain"
)

const eventTypePredictionSaved = "prediction_saved"

// Writer produces prediction events to a Kafka topic.
// It implements service.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured prediction topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes one prediction record and writes it to the topic.
// Messages are keyed by zone so a zone's predictions stay ordered within
// a partition.
func (w *Writer) Publish(ctx context.Context, rec domain.PredictionRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// predictionEvent is the wire shape consumers see. A trimmed projection of
// the stored record: enough to act on without carrying the raw observation.
type predictionEvent struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id,omitempty"`
	Zone            string    `json:"zone"`
	PredictedLevelM float64   `json:"predicted_level_m"`
	Confidence      float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// serializeToMessage marshals a prediction record into a Kafka message.
func serializeToMessage(rec domain.PredictionRecord) (kafkago.Message, error) {
	event := predictionEvent{
		ID:              rec.ID,
		UserID:          rec.UserID,
		Zone:            rec.Zone,
		PredictedLevelM: rec.PredictedLevelM,
		Confidence:      rec.Confidence,
		CreatedAt:       rec.CreatedAt,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.Zone),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventTypePredictionSaved)},
			{Key: "created_at", Value: []byte(rec.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
