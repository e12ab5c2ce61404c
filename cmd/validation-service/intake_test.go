package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/internal/broker"
	"soxguard/internal/constants"
	"soxguard/internal/events"
	"soxguard/internal/logger"
	"soxguard/internal/validation"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

type fakeValidator struct {
	result validation.PairValidationResult
	err    error
	calls  int
}

func (f *fakeValidator) ValidateIntegrationPair(_ context.Context, req validation.PairRequest) (validation.PairValidationResult, error) {
	f.calls++
	if f.err != nil {
		return validation.PairValidationResult{}, f.err
	}
	res := f.result
	res.SourceIntegrationID = req.SourceIntegrationID
	res.DestinationIntegrationID = req.DestinationIntegrationID
	return res, nil
}

type fakeEmitter struct {
	requests []events.BusinessEventRequest
	result   events.IngestResult
}

func (f *fakeEmitter) CreateBusinessEvent(_ context.Context, req events.BusinessEventRequest) events.IngestResult {
	f.requests = append(f.requests, req)
	return f.result
}

type fakeGuard struct {
	seen     map[string]bool
	err      error
	released int
}

func (f *fakeGuard) Release(_ context.Context, req *models.ValidationRequest) error {
	f.released++
	delete(f.seen, req.ResolveTransactionID())
	return nil
}

func (f *fakeGuard) FirstSeen(_ context.Context, req *models.ValidationRequest) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := req.ResolveTransactionID()
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

func requestMessage(body string) broker.Message {
	return broker.Message{Topic: "validation-requests", Key: "tx-1", Value: []byte(body)}
}

const validBody = `{
	"transactionId": "tx-1",
	"sourceIntegrationId": "ats",
	"destinationIntegrationId": "hris",
	"sourcePayload": {"candidate": {"id": "c-1"}},
	"destinationPayload": {"candidate": {"id": "c-1"}}
}`

func TestIntake_DeadLetters(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		validator *fakeValidator
		reason    string
	}{
		{
			name:      "undecodable message",
			body:      `{not json`,
			validator: &fakeValidator{},
			reason:    constants.DLQReasonDecode,
		},
		{
			name:      "missing destination",
			body:      `{"sourceIntegrationId": "ats", "sourcePayload": {}, "destinationPayload": {}}`,
			validator: &fakeValidator{},
			reason:    constants.DLQReasonInvalidRequest,
		},
		{
			name:      "unknown integration",
			body:      validBody,
			validator: &fakeValidator{err: apperrors.ErrUnknownIntegration.WithMessage("no rules configured for integration: ats")},
			reason:    constants.DLQReasonUnknownIntegration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emitter := &fakeEmitter{}
			intake := NewIntake(tt.validator, emitter, nil, logger.NopLogger())

			err := intake.HandleMessage(context.Background(), requestMessage(tt.body))
			require.Error(t, err)

			dl, ok := broker.AsDeadLetter(err)
			require.True(t, ok, "expected a dead letter error, got %v", err)
			assert.Equal(t, tt.reason, dl.Reason)
			assert.Empty(t, emitter.requests)
		})
	}
}

func TestIntake_ValidatorFailureIsRetried(t *testing.T) {
	intake := NewIntake(&fakeValidator{err: errors.New("rule store unavailable")}, &fakeEmitter{}, nil, logger.NopLogger())

	err := intake.HandleMessage(context.Background(), requestMessage(validBody))
	require.Error(t, err)
	_, isDeadLetter := broker.AsDeadLetter(err)
	assert.False(t, isDeadLetter)
}

func TestIntake_EmitsBusinessEvent(t *testing.T) {
	validator := &fakeValidator{result: validation.PairValidationResult{IsValid: true}}
	emitter := &fakeEmitter{result: events.IngestResult{Success: true, Status: events.StatusAccepted}}
	intake := NewIntake(validator, emitter, nil, logger.NopLogger())

	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))

	require.Len(t, emitter.requests, 1)
	req := emitter.requests[0]
	assert.Equal(t, "tx-1", req.TransactionID)
	assert.True(t, req.Validation.IsValid)
	assert.Equal(t, "ats", req.Validation.SourceIntegrationID)
	assert.Equal(t, "hris", req.Validation.DestinationIntegrationID)
}

func TestIntake_IngestFailureIsNotRetried(t *testing.T) {
	emitter := &fakeEmitter{result: events.IngestResult{Success: false, Status: events.StatusFailed, Message: "backend rejected"}}
	intake := NewIntake(&fakeValidator{}, emitter, nil, logger.NopLogger())

	assert.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))
	assert.Len(t, emitter.requests, 1)
}

func TestIntake_IngestDisabled(t *testing.T) {
	validator := &fakeValidator{result: validation.PairValidationResult{IsValid: true}}
	emitter := &fakeEmitter{}
	intake := NewIntake(validator, emitter, nil, logger.NopLogger())

	body := `{
		"sourceIntegrationId": "ats",
		"destinationIntegrationId": "hris",
		"sourcePayload": {},
		"destinationPayload": {},
		"ingest": false
	}`
	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(body)))

	assert.Equal(t, 1, validator.calls)
	assert.Empty(t, emitter.requests)
}

func TestIntake_Redelivery(t *testing.T) {
	validator := &fakeValidator{result: validation.PairValidationResult{IsValid: true}}
	emitter := &fakeEmitter{result: events.IngestResult{Success: true}}
	guard := &fakeGuard{seen: map[string]bool{}}
	intake := NewIntake(validator, emitter, guard, logger.NopLogger())

	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))
	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))

	assert.Equal(t, 1, validator.calls)
	assert.Len(t, emitter.requests, 1)
}

func TestIntake_RetriedRequestIsNotSkippedAsDuplicate(t *testing.T) {
	validator := &fakeValidator{err: errors.New("rule store unavailable")}
	emitter := &fakeEmitter{result: events.IngestResult{Success: true, Status: events.StatusAccepted}}
	guard := &fakeGuard{seen: map[string]bool{}}
	intake := NewIntake(validator, emitter, guard, logger.NopLogger())

	require.Error(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))
	assert.Equal(t, 1, guard.released)

	validator.err = nil
	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))
	assert.Equal(t, 2, validator.calls)
	assert.Len(t, emitter.requests, 1)

	require.NoError(t, intake.HandleMessage(context.Background(), requestMessage(validBody)))
	assert.Equal(t, 2, validator.calls, "a completed request is still deduplicated")
}

func TestIntake_GuardErrorIsReturned(t *testing.T) {
	validator := &fakeValidator{}
	guard := &fakeGuard{err: errors.New("redis unavailable")}
	intake := NewIntake(validator, &fakeEmitter{}, guard, logger.NopLogger())

	err := intake.HandleMessage(context.Background(), requestMessage(validBody))
	require.Error(t, err)
	assert.Zero(t, validator.calls)
}
