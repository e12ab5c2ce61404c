package events

import (
	"context"

	"soxguard/pkg/models"
)

// Ack is a transport's positive response. An empty Status means "accepted".
type Ack struct {
	Status  string
	Message string
}

// Transport delivers one envelope to the ingestion backend. Send is called
// once per event and must not retry.
type Transport interface {
	Send(ctx context.Context, event models.CloudEvent) (Ack, error)
	Name() string
}

// TransportError carries the backend's status for a failed send.
type TransportError struct {
	Status     string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, event models.CloudEvent) (Ack, error)

func (f TransportFunc) Send(ctx context.Context, event models.CloudEvent) (Ack, error) {
	return f(ctx, event)
}

func (f TransportFunc) Name() string {
	return "func"
}
