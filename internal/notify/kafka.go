package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaSink publishes each channel as a Kafka topic, keyed by event
// name so consumers see per-event ordering within a channel.
type KafkaSink struct {
	writer *kafka.Writer
}

func NewKafkaSink(brokers []string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           10 * time.Millisecond,
		},
	}
}

type envelope struct {
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

func (s *KafkaSink) Publish(ctx context.Context, channel, event string, payload map[string]any) error {
	body, err := json.Marshal(envelope{Event: event, Payload: payload, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", event, err)
	}

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Topic: channel,
		Key:   []byte(event),
		Value: body,
	})
	if err != nil {
		return fmt.Errorf("notify: publish %s to %s: %w", event, channel, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
