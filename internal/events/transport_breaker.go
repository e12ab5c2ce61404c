package events

import (
	"context"

	"soxguard/pkg/circuitbreaker"
	"soxguard/pkg/models"
)

// CircuitBreakerTransport stops calling a failing backend until the breaker
// lets a probe through. Rejected sends fail fast with the breaker's error.
type CircuitBreakerTransport struct {
	next    Transport
	breaker *circuitbreaker.Wrapper
}

func NewCircuitBreakerTransport(next Transport, cfg circuitbreaker.Config) *CircuitBreakerTransport {
	return &CircuitBreakerTransport{
		next:    next,
		breaker: circuitbreaker.NewWrapper(cfg),
	}
}

func (t *CircuitBreakerTransport) Name() string {
	return t.next.Name()
}

func (t *CircuitBreakerTransport) IsOpen() bool {
	return t.breaker.IsOpen()
}

func (t *CircuitBreakerTransport) Send(ctx context.Context, event models.CloudEvent) (Ack, error) {
	result, err := t.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return t.next.Send(ctx, event)
	})
	if err != nil {
		return Ack{}, err
	}
	return result.(Ack), nil
}
