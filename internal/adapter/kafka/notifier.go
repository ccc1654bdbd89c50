// Package kafka publishes rendered notifications to a Kafka topic for
// downstream delivery channels.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-alert-service/internal/config"
	"github.com/couchcryptid/hazard-alert-service/internal/notify"
)

// Notifier produces one message per notification, keyed by the suppression
// key so a topic consumer sees per-alert ordering. It implements
// notify.Sink.
type Notifier struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewNotifier creates a Kafka producer for the configured notification
// topic.
func NewNotifier(cfg *config.Config, logger *slog.Logger) *Notifier {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaNotifyTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Notifier{writer: w, logger: logger}
}

// Send serializes and publishes one notification.
func (n *Notifier) Send(ctx context.Context, notification notify.Notification) error {
	msg, err := serializeToMessage(notification)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, msg)
}

func (n *Notifier) Close() error {
	return n.writer.Close()
}

// serializeToMessage marshals a notification into a Kafka message with the
// alert type and level as headers for consumer-side filtering.
func serializeToMessage(n notify.Notification) (kafkago.Message, error) {
	data, err := json.Marshal(n)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize notification: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(n.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "hazard_type", Value: []byte(n.Alert.Type)},
			{Key: "alert_level", Value: []byte(n.Alert.Level)},
		},
	}, nil
}
