package validation

import (
	"soxguard/pkg/models"
)

// FailureReason is the kind of a single field failure.
type FailureReason string

const (
	ReasonRequired  FailureReason = "required"
	ReasonType      FailureReason = "type"
	ReasonPredicate FailureReason = "predicate"
)

// Side names one end of an integration pair.
type Side string

const (
	SideSource      Side = "source"
	SideDestination Side = "destination"
)

type Failure struct {
	FieldPath string        `json:"fieldPath"`
	Reason    FailureReason `json:"reason"`
	Detail    string        `json:"detail,omitempty"`
}

type ValidationResult struct {
	IsValid       bool      `json:"isValid"`
	IntegrationID string    `json:"integrationId"`
	Failures      []Failure `json:"failures"`
}

// Mismatch records a mapped field present on both sides with values the
// mapping's comparator does not accept.
type Mismatch struct {
	FieldPath            string       `json:"fieldPath"`
	DestinationFieldPath string       `json:"destinationFieldPath"`
	SourceValue          models.Value `json:"sourceValue"`
	DestinationValue     models.Value `json:"destinationValue"`
	Detail               string       `json:"detail,omitempty"`
}

type MappingComparison struct {
	MissingSource      []string   `json:"missingSource"`
	MissingDestination []string   `json:"missingDestination"`
	Mismatches         []Mismatch `json:"mismatches"`
}

func (m MappingComparison) HasDiscrepancies() bool {
	return len(m.MissingSource) > 0 || len(m.MissingDestination) > 0 || len(m.Mismatches) > 0
}

type PairValidationResult struct {
	IsValid                  bool              `json:"isValid"`
	SourceIntegrationID      string            `json:"sourceIntegrationId"`
	DestinationIntegrationID string            `json:"destinationIntegrationId"`
	Errors                   []ClassifiedError `json:"errors"`
	SourceValidation         ValidationResult  `json:"sourceValidation"`
	DestinationValidation    ValidationResult  `json:"destinationValidation"`
	MappingComparison        MappingComparison `json:"mappingComparison"`
}

// IntegrationRequest validates one payload. Payload may be a wrapper or a bare
// business payload.
type IntegrationRequest struct {
	IntegrationID string       `json:"integrationId"`
	Payload       models.Value `json:"payload"`
}

type PairRequest struct {
	SourceIntegrationID      string       `json:"sourceIntegrationId"`
	DestinationIntegrationID string       `json:"destinationIntegrationId"`
	SourcePayload            models.Value `json:"sourcePayload"`
	DestinationPayload       models.Value `json:"destinationPayload"`
}

// PairRequestFrom extracts the pair part of a full validation request.
func PairRequestFrom(req models.ValidationRequest) PairRequest {
	return PairRequest{
		SourceIntegrationID:      req.SourceIntegrationID,
		DestinationIntegrationID: req.DestinationIntegrationID,
		SourcePayload:            req.SourcePayload,
		DestinationPayload:       req.DestinationPayload,
	}
}
