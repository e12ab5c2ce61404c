package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"soxguard/internal/logger"
	"soxguard/internal/validation"
	"soxguard/pkg/circuitbreaker"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/logging"
	"soxguard/pkg/metrics"
	"soxguard/pkg/models"
	"soxguard/pkg/tracing"
)

const (
	StatusAccepted = "accepted"
	StatusTimeout  = "timeout"
	StatusFailed   = "failed"
)

const (
	SubTypeIngestTimeout = "IngestTimeout"
	SubTypeIngestFailed  = "IngestFailed"
	SubTypeCircuitOpen   = "CircuitOpen"
	SubTypeBuildFailed   = "BuildFailed"
)

// IngestError describes a failed ingestion in the classification taxonomy.
type IngestError struct {
	Type       validation.ErrorType `json:"type"`
	SubType    string               `json:"subType"`
	Message    string               `json:"message"`
	Status     string               `json:"status,omitempty"`
	StatusCode int                  `json:"statusCode,omitempty"`
}

// IngestResult is the terminal record of one ingestion attempt.
type IngestResult struct {
	Success                  bool              `json:"success"`
	Status                   string            `json:"status"`
	Message                  string            `json:"message"`
	SourceDataTruncated      bool              `json:"sourceDataTruncated"`
	DestinationDataTruncated bool              `json:"destinationDataTruncated"`
	CloudEvent               models.CloudEvent `json:"cloudEvent"`
	Error                    *IngestError      `json:"error,omitempty"`
}

// BusinessEventRequest is a validated pair on its way to the ingestion
// backend. Zero times and an empty transaction id are resolved from the
// payload wrappers.
type BusinessEventRequest struct {
	Validation         validation.PairValidationResult
	TransactionID      string
	SrcEventTime       *time.Time
	DestEventTime      *time.Time
	SourcePayload      models.Value
	DestinationPayload models.Value
}

// BusinessEventRequestFrom pairs a validation result with the request it was
// computed for.
func BusinessEventRequestFrom(req *models.ValidationRequest, result validation.PairValidationResult) BusinessEventRequest {
	return BusinessEventRequest{
		Validation:         result,
		TransactionID:      req.ResolveTransactionID(),
		SrcEventTime:       req.SrcEventTime,
		DestEventTime:      req.DestEventTime,
		SourcePayload:      req.SourcePayload,
		DestinationPayload: req.DestinationPayload,
	}
}

type Emitter struct {
	builder   *Builder
	transport Transport
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	logger    logger.Logger
}

type EmitterOption func(*Emitter)

func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		e.now = now
	}
}

func WithIDGenerator(newID func() string) EmitterOption {
	return func(e *Emitter) {
		e.newID = newID
	}
}

// NewEmitter returns an emitter sending through transport. A timeout of zero
// leaves the caller's deadline in charge.
func NewEmitter(builder *Builder, transport Transport, timeout time.Duration, log logger.Logger, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		builder:   builder,
		transport: transport,
		timeout:   timeout,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		logger:    log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Emitter) TransportName() string {
	return e.transport.Name()
}

// CreateBusinessEvent builds the envelope and makes exactly one send attempt.
// Failures are reported in the result, never returned.
func (e *Emitter) CreateBusinessEvent(ctx context.Context, req BusinessEventRequest) IngestResult {
	ctx, span := tracing.StartSpan(ctx, "events.create_business_event")
	defer span.End()

	start := time.Now()
	now := e.now()

	transactionID := req.TransactionID
	if transactionID == "" {
		transactionID = wrapperTransactionID(req.SourcePayload, req.DestinationPayload)
	}
	ctx = logging.WithTransactionID(ctx, transactionID)

	built, err := e.builder.ToCloudEvent(EventContext{
		EventID:            e.newID(),
		Time:               now,
		TransactionID:      transactionID,
		Validation:         req.Validation,
		SrcEventTime:       eventTime(req.SrcEventTime, req.SourcePayload, now),
		DestEventTime:      eventTime(req.DestEventTime, req.DestinationPayload, now),
		SourcePayload:      req.SourcePayload,
		DestinationPayload: req.DestinationPayload,
	})
	if err != nil {
		span.RecordError(err)
		e.logger.ErrorwCtx(ctx, "Failed to build business event", "error", err)
		result := IngestResult{
			Status:  StatusFailed,
			Message: fmt.Sprintf("business event could not be built: %v", err),
			Error: &IngestError{
				Type:    validation.ErrorTypeSystem,
				SubType: SubTypeBuildFailed,
				Message: err.Error(),
			},
		}
		e.record(result, start)
		return result
	}

	if built.SourceDataTruncated {
		metrics.IncPayloadTruncation("source")
	}
	if built.DestinationDataTruncated {
		metrics.IncPayloadTruncation("destination")
	}

	result := e.send(ctx, built.Event)
	result.SourceDataTruncated = built.SourceDataTruncated
	result.DestinationDataTruncated = built.DestinationDataTruncated
	result.CloudEvent = built.Event

	if result.Success {
		e.logger.InfowCtx(ctx, "Business event ingested",
			"event_id", built.Event.ID,
			"event_type", built.Event.Type,
			"transport", e.transport.Name(),
			"status", result.Status,
		)
	} else {
		span.RecordError(errors.New(result.Message))
		e.logger.ErrorwCtx(ctx, "Business event ingestion failed",
			"event_id", built.Event.ID,
			"event_type", built.Event.Type,
			"transport", e.transport.Name(),
			"status", result.Status,
			"error", result.Error.Message,
		)
	}

	e.record(result, start)
	return result
}

func (e *Emitter) send(ctx context.Context, event models.CloudEvent) IngestResult {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	ack, err := e.transport.Send(ctx, event)
	if err == nil {
		status := ack.Status
		if status == "" {
			status = StatusAccepted
		}
		message := ack.Message
		if message == "" {
			message = fmt.Sprintf("event %s ingested via %s", event.ID, e.transport.Name())
		}
		return IngestResult{Success: true, Status: status, Message: message}
	}

	return failedResult(err, e.transport.Name())
}

func failedResult(err error, transport string) IngestResult {
	ingestErr := &IngestError{
		Type:    validation.ErrorTypeSystem,
		SubType: SubTypeIngestFailed,
		Message: err.Error(),
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		ingestErr.Status = terr.Status
		ingestErr.StatusCode = terr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || apperrors.IsTimeout(err):
		ingestErr.Type = validation.ErrorTypeTimeout
		ingestErr.SubType = SubTypeIngestTimeout
		return IngestResult{
			Status:  StatusTimeout,
			Message: fmt.Sprintf("ingestion via %s timed out: %v", transport, err),
			Error:   ingestErr,
		}
	case circuitbreaker.IsOpenError(err):
		ingestErr.SubType = SubTypeCircuitOpen
	}

	return IngestResult{
		Status:  StatusFailed,
		Message: fmt.Sprintf("ingestion via %s failed: %v", transport, err),
		Error:   ingestErr,
	}
}

func (e *Emitter) record(result IngestResult, start time.Time) {
	eventType := result.CloudEvent.Type
	if eventType == "" {
		eventType = "none"
	}
	metrics.IncBusinessEvent(e.transport.Name(), eventType, result.Status)
	metrics.ObserveIngestDuration(e.transport.Name(), result.Status, time.Since(start))
}

func wrapperTransactionID(payloads ...models.Value) string {
	for _, payload := range payloads {
		if w, ok := models.ParseWrapper(payload); ok && w.TransactionID != "" {
			return w.TransactionID
		}
	}
	return ""
}

func eventTime(explicit *time.Time, payload models.Value, now time.Time) time.Time {
	if explicit != nil && !explicit.IsZero() {
		return *explicit
	}
	if w, ok := models.ParseWrapper(payload); ok && !w.TransactionTimestamp.IsZero() {
		return w.TransactionTimestamp
	}
	return now
}
