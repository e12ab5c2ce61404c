package events

import (
	"fmt"

	"github.com/sony/gobreaker"

	"soxguard/internal/broker"
	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/circuitbreaker"
)

// NewTransport builds the transport named by cfg.Events.Transport. producer
// is required for the kafka transport only.
func NewTransport(cfg *config.Config, producer broker.Producer, log logger.Logger) (Transport, error) {
	var transport Transport
	switch cfg.Events.Transport {
	case constants.TransportKafka:
		if producer == nil {
			return nil, fmt.Errorf("kafka transport requires a broker producer")
		}
		transport = NewKafkaTransport(producer, cfg.Broker.Kafka.OutputTopic)
	case constants.TransportHTTP:
		transport = NewHTTPTransport(nil, cfg.Events.HTTP.Endpoint, cfg.Events.HTTP.Token)
	case constants.TransportLog, "":
		transport = NewLogTransport(log)
	default:
		return nil, fmt.Errorf("unknown events transport: %q", cfg.Events.Transport)
	}

	if cfg.Events.CircuitBreaker {
		cb := cfg.CircuitBreaker
		breakerCfg := circuitbreaker.DefaultConfig("events_" + transport.Name())
		if cb.MaxRequests > 0 {
			breakerCfg = circuitbreaker.FromSettings("events_"+transport.Name(),
				cb.MaxRequests, cb.Interval, cb.Timeout, cb.FailureRatio, cb.MinRequests)
		}
		breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
			log.Warnw("Events transport circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		}
		transport = NewCircuitBreakerTransport(transport, breakerCfg)
	}

	return transport, nil
}

// NewEmitterFromConfig wires builder, transport and timeout from cfg.
func NewEmitterFromConfig(cfg *config.Config, producer broker.Producer, log logger.Logger) (*Emitter, error) {
	transport, err := NewTransport(cfg, producer, log)
	if err != nil {
		return nil, err
	}
	builder := NewBuilder(cfg.Events.Source, cfg.Events.MaxDataBytes)
	return NewEmitter(builder, transport, cfg.Events.Timeout, log), nil
}
