package bootstrap

import (
	"context"
	"fmt"

	"soxguard/internal/broker"
	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
)

// Base owns the broker clients of a service. Each subscription gets its own
// consumer because consumers are bound to one consumer group.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	// EventProducer writes business events with a single attempt per send.
	EventProducer broker.Producer
	Consumers     []broker.Consumer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	return nil
}

func (b *Base) InitEventProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger, broker.WithMaxAttempts(constants.KafkaEventWriteAttempts))
	if err != nil {
		return fmt.Errorf("failed to create event producer: %w", err)
	}
	b.EventProducer = producer
	return nil
}

// NewConsumer creates a consumer in groupID, tagged with serviceName for
// metrics, and closes it on Shutdown.
func (b *Base) NewConsumer(groupID, serviceName string) (broker.Consumer, error) {
	consumer, err := broker.NewConsumer(b.Config.Broker, groupID, b.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}
	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}
	b.Consumers = append(b.Consumers, consumer)
	return consumer, nil
}

func (b *Base) ShutdownBroker() []error {
	var errs []error

	for _, consumer := range b.Consumers {
		if err := consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("consumer close error: %w", err))
		}
	}

	if b.Producer != nil {
		if err := b.Producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("producer close error: %w", err))
		}
	}

	if b.EventProducer != nil {
		if err := b.EventProducer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event producer close error: %w", err))
		}
	}

	return errs
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error
	errs = append(errs, b.ShutdownBroker()...)
	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}
