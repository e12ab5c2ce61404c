package management

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"soxguard/internal/broker"
	"soxguard/internal/constants"
	"soxguard/pkg/models"
)

// RuleEventProducer announces rule store changes on the rule update topic so
// every replica reloads its snapshot.
type RuleEventProducer struct {
	producer broker.Producer
	topic    string
	now      func() time.Time
}

func NewRuleEventProducer(producer broker.Producer, topic string) *RuleEventProducer {
	return &RuleEventProducer{
		producer: producer,
		topic:    topic,
		now:      time.Now,
	}
}

func (p *RuleEventProducer) PublishRulesReplaced(ctx context.Context, changedBy string, integrations, mappings int) error {
	event := models.RuleUpdateEvent{
		EventType: models.EventTypeIntegrationRulesUpdated,
		Action:    models.ActionUpdate,
		Timestamp: p.now().UTC(),
		ChangedBy: changedBy,
		Metadata: map[string]interface{}{
			"integrations": integrations,
			"mappings":     mappings,
		},
	}
	return p.publishEvent(ctx, event)
}

func (p *RuleEventProducer) publishEvent(ctx context.Context, event models.RuleUpdateEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rule update event: %w", err)
	}

	return p.producer.Publish(ctx, broker.Message{
		Topic: p.topic,
		Key:   event.EventType,
		Value: data,
		Headers: map[string]string{
			"content-type": models.ContentTypeJSON,
			"source":       constants.ServiceName,
		},
		Time: event.Timestamp,
	})
}
