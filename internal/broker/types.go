package broker

import (
	"context"
	"errors"
	"time"
)

// Message is one record read from or written to a topic.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
	Time    time.Time
}

type Producer interface {
	Publish(ctx context.Context, msg Message) error
	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg Message) error

// DeadLetterError tells the consumer to skip retries and park the message in
// the DLQ with Reason.
type DeadLetterError struct {
	Reason string
	Err    error
}

func (e *DeadLetterError) Error() string {
	return e.Reason + ": " + e.Err.Error()
}

func (e *DeadLetterError) Unwrap() error {
	return e.Err
}

func NewDeadLetterError(reason string, err error) error {
	return &DeadLetterError{Reason: reason, Err: err}
}

func AsDeadLetter(err error) (*DeadLetterError, bool) {
	var dl *DeadLetterError
	if errors.As(err, &dl) {
		return dl, true
	}
	return nil, false
}
