package validation

import (
	"context"
	"time"

	"soxguard/pkg/logging"
	"soxguard/pkg/metrics"
	"soxguard/pkg/tracing"
)

// ValidateIntegrationPair validates both sides, compares their mapped fields
// and classifies every discrepancy.
func (v *Validator) ValidateIntegrationPair(ctx context.Context, req PairRequest) (PairValidationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "validation.validate_pair")
	defer span.End()
	ctx = logging.WithIntegrationPair(ctx, req.SourceIntegrationID, req.DestinationIntegrationID)

	start := time.Now()

	source, srcErr := v.ValidateIntegration(ctx, IntegrationRequest{
		IntegrationID: req.SourceIntegrationID,
		Payload:       req.SourcePayload,
	})
	destination, dstErr := v.ValidateIntegration(ctx, IntegrationRequest{
		IntegrationID: req.DestinationIntegrationID,
		Payload:       req.DestinationPayload,
	})
	if srcErr != nil {
		return PairValidationResult{}, srcErr
	}
	if dstErr != nil {
		return PairValidationResult{}, dstErr
	}

	comparison, err := v.CompareMappings(ctx, req)
	if err != nil {
		return PairValidationResult{}, err
	}

	result := buildPairResult(req, source, destination, comparison)
	v.recordMetrics(result, time.Since(start))

	if !result.IsValid {
		v.logger.DebugwCtx(ctx, "Integration pair failed validation",
			"errors", len(result.Errors),
			"first_error", result.Errors[0].Message,
		)
	}
	return result, nil
}

func (v *Validator) recordMetrics(result PairValidationResult, duration time.Duration) {
	label := resultLabel(result.IsValid)
	metrics.IncPairValidation(label)
	metrics.ObserveValidationDuration(duration, label)
	for _, e := range result.Errors {
		metrics.IncClassifiedError(string(e.Type), e.SubType)
	}
	metrics.AddMappingDiscrepancies("missing_source", len(result.MappingComparison.MissingSource))
	metrics.AddMappingDiscrepancies("missing_destination", len(result.MappingComparison.MissingDestination))
	metrics.AddMappingDiscrepancies("mismatch", len(result.MappingComparison.Mismatches))
}

func resultLabel(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}

func buildPairResult(req PairRequest, source, destination ValidationResult, comparison MappingComparison) PairValidationResult {
	errs := ClassifyAll(Discrepancies(source, destination, comparison))
	return PairValidationResult{
		IsValid:                  source.IsValid && destination.IsValid && !comparison.HasDiscrepancies(),
		SourceIntegrationID:      req.SourceIntegrationID,
		DestinationIntegrationID: req.DestinationIntegrationID,
		Errors:                   errs,
		SourceValidation:         source,
		DestinationValidation:    destination,
		MappingComparison:        comparison,
	}
}
