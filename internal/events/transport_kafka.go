package events

import (
	"context"
	"encoding/json"
	"fmt"

	"soxguard/internal/broker"
	"soxguard/internal/constants"
	"soxguard/pkg/models"
)

const (
	HeaderContentType = "content-type"
	HeaderEventType   = "ce_type"
	HeaderEventID     = "ce_id"
)

// KafkaTransport publishes envelopes to a topic, keyed by transaction id so
// events of one transaction stay ordered.
type KafkaTransport struct {
	producer broker.Producer
	topic    string
}

func NewKafkaTransport(producer broker.Producer, topic string) *KafkaTransport {
	if topic == "" {
		topic = constants.DefaultOutputTopic
	}
	return &KafkaTransport{producer: producer, topic: topic}
}

func (t *KafkaTransport) Name() string {
	return constants.TransportKafka
}

func (t *KafkaTransport) Send(ctx context.Context, event models.CloudEvent) (Ack, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return Ack{}, fmt.Errorf("failed to marshal cloud event: %w", err)
	}

	key := event.Data.TransactionID
	if key == "" {
		key = event.ID
	}

	err = t.producer.Publish(ctx, broker.Message{
		Topic: t.topic,
		Key:   key,
		Value: value,
		Headers: map[string]string{
			HeaderContentType: models.ContentTypeCloudEvent,
			HeaderEventType:   event.Type,
			HeaderEventID:     event.ID,
		},
		Time: event.Time,
	})
	if err != nil {
		return Ack{}, err
	}

	return Ack{
		Status:  StatusAccepted,
		Message: fmt.Sprintf("event %s published to %s", event.ID, t.topic),
	}, nil
}
