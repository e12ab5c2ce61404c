package main

import (
	"context"
	"encoding/json"
	"fmt"

	"soxguard/internal/broker"
	"soxguard/internal/constants"
	"soxguard/internal/events"
	"soxguard/internal/logger"
	"soxguard/internal/validation"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/logging"
	"soxguard/pkg/models"
)

type pairValidator interface {
	ValidateIntegrationPair(ctx context.Context, req validation.PairRequest) (validation.PairValidationResult, error)
}

type businessEventEmitter interface {
	CreateBusinessEvent(ctx context.Context, req events.BusinessEventRequest) events.IngestResult
}

type redeliveryGuard interface {
	FirstSeen(ctx context.Context, req *models.ValidationRequest) (bool, error)
	Release(ctx context.Context, req *models.ValidationRequest) error
}

// Intake turns validation request messages into business events.
type Intake struct {
	validator pairValidator
	emitter   businessEventEmitter
	guard     redeliveryGuard
	logger    logger.Logger
}

// NewIntake builds the handler. guard may be nil to process every delivery.
func NewIntake(validator pairValidator, emitter businessEventEmitter, guard redeliveryGuard, log logger.Logger) *Intake {
	return &Intake{
		validator: validator,
		emitter:   emitter,
		guard:     guard,
		logger:    log,
	}
}

// HandleMessage is a broker.HandlerFunc. Messages that can never succeed are
// dead-lettered. Ingestion failures are terminal results and are not retried.
func (in *Intake) HandleMessage(ctx context.Context, msg broker.Message) error {
	var req models.ValidationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return broker.NewDeadLetterError(constants.DLQReasonDecode, fmt.Errorf("failed to decode validation request: %w", err))
	}
	if err := models.ValidateValidationRequest(&req); err != nil {
		return broker.NewDeadLetterError(constants.DLQReasonInvalidRequest, err)
	}

	if transactionID := req.ResolveTransactionID(); transactionID != "" {
		ctx = logging.WithTransactionID(ctx, transactionID)
	}
	if req.RequestID != "" {
		ctx = logging.WithRequestID(ctx, req.RequestID)
	}
	ctx = logging.WithIntegrationPair(ctx, req.SourceIntegrationID, req.DestinationIntegrationID)

	if in.guard != nil {
		first, err := in.guard.FirstSeen(ctx, &req)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
	}

	result, err := in.validator.ValidateIntegrationPair(ctx, validation.PairRequestFrom(req))
	if err != nil {
		if apperrors.IsUnknownIntegration(err) {
			return broker.NewDeadLetterError(constants.DLQReasonUnknownIntegration, err)
		}
		in.release(ctx, &req)
		return err
	}

	if !req.ShouldIngest() || in.emitter == nil {
		in.logger.InfowCtx(ctx, "Validation completed without ingestion",
			"is_valid", result.IsValid,
			"errors", len(result.Errors),
		)
		return nil
	}

	ingest := in.emitter.CreateBusinessEvent(ctx, events.BusinessEventRequestFrom(&req, result))
	in.logger.InfowCtx(ctx, "Validation request processed",
		"is_valid", result.IsValid,
		"errors", len(result.Errors),
		"event_id", ingest.CloudEvent.ID,
		"ingest_success", ingest.Success,
		"ingest_status", ingest.Status,
		"ingest_message", ingest.Message,
	)
	return nil
}

// release undoes the dedup claim before a retryable error so the retry is not
// dropped as a duplicate.
func (in *Intake) release(ctx context.Context, req *models.ValidationRequest) {
	if in.guard == nil {
		return
	}
	if err := in.guard.Release(ctx, req); err != nil {
		in.logger.WarnwCtx(ctx, "Failed to release dedup key, retries of this request will be skipped", "error", err)
	}
}
