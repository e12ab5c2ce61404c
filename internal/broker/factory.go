package broker

import (
	"fmt"

	"soxguard/internal/config"
	"soxguard/internal/logger"
)

func NewProducer(cfg config.BrokerConfig, log logger.Logger, opts ...ProducerOption) (Producer, error) {
	switch cfg.Type {
	case "kafka":
		return NewKafkaProducer(cfg.Kafka, log, opts...), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %q", cfg.Type)
	}
}

// NewConsumer builds a consumer in the given group. Each subscription of the
// service uses its own group so rule updates reach every replica.
func NewConsumer(cfg config.BrokerConfig, groupID string, log logger.Logger) (Consumer, error) {
	switch cfg.Type {
	case "kafka":
		kcfg := cfg.Kafka
		if groupID != "" {
			kcfg.GroupID = groupID
		}
		return NewKafkaConsumer(kcfg, log), nil
	default:
		return nil, fmt.Errorf("unknown broker type: %q", cfg.Type)
	}
}
