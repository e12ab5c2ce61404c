package validation

import (
	"fmt"
)

type ErrorType string

const (
	ErrorTypeValidation ErrorType = "Validation"
	ErrorTypeMapping    ErrorType = "Mapping"
	ErrorTypeTimeout    ErrorType = "Timeout"
	ErrorTypeSystem     ErrorType = "System"
)

const (
	SubTypeMissingField  = "MissingField"
	SubTypeInvalidValue  = "InvalidValue"
	SubTypeFieldMissing  = "FieldMissing"
	SubTypeValueMismatch = "ValueMismatch"
)

type ClassifiedError struct {
	Type      ErrorType `json:"type"`
	SubType   string    `json:"subType"`
	Message   string    `json:"message"`
	Side      Side      `json:"side,omitempty"`
	FieldPath string    `json:"fieldPath,omitempty"`
}

// Discrepancy is a problem found by validation or comparison. The set of
// implementations is closed; each one knows its own classification.
type Discrepancy interface {
	Classify() ClassifiedError
	sealed()
}

// FieldFailure is a validator failure on one side.
type FieldFailure struct {
	Side    Side
	Failure Failure
}

// MissingMappedField is a mapped field absent from one side.
type MissingMappedField struct {
	Side      Side
	FieldPath string
}

// MismatchedField is a mapped field whose values disagree.
type MismatchedField struct {
	Mismatch Mismatch
}

func (FieldFailure) sealed()       {}
func (MissingMappedField) sealed() {}
func (MismatchedField) sealed()    {}

func (d FieldFailure) Classify() ClassifiedError {
	if d.Failure.Reason == ReasonRequired {
		return ClassifiedError{
			Type:      ErrorTypeValidation,
			SubType:   SubTypeMissingField,
			Message:   fmt.Sprintf("%s is required", d.Failure.FieldPath),
			Side:      d.Side,
			FieldPath: d.Failure.FieldPath,
		}
	}
	return ClassifiedError{
		Type:      ErrorTypeValidation,
		SubType:   SubTypeInvalidValue,
		Message:   fmt.Sprintf("%s failed constraint", d.Failure.FieldPath),
		Side:      d.Side,
		FieldPath: d.Failure.FieldPath,
	}
}

func (d MissingMappedField) Classify() ClassifiedError {
	return ClassifiedError{
		Type:      ErrorTypeMapping,
		SubType:   SubTypeFieldMissing,
		Message:   fmt.Sprintf("%s is missing from %s payload", d.FieldPath, d.Side),
		Side:      d.Side,
		FieldPath: d.FieldPath,
	}
}

func (d MismatchedField) Classify() ClassifiedError {
	m := d.Mismatch
	path := m.FieldPath
	if m.DestinationFieldPath != "" && m.DestinationFieldPath != m.FieldPath {
		path = m.FieldPath + " -> " + m.DestinationFieldPath
	}
	return ClassifiedError{
		Type:      ErrorTypeMapping,
		SubType:   SubTypeValueMismatch,
		Message:   fmt.Sprintf("%s mismatch: source=%s destination=%s", path, m.SourceValue, m.DestinationValue),
		FieldPath: m.FieldPath,
	}
}

func Classify(d Discrepancy) ClassifiedError {
	return d.Classify()
}

// Discrepancies lists every problem of a pair in classification order:
// source failures, destination failures, fields missing from the source,
// fields missing from the destination, then mismatches.
func Discrepancies(source, destination ValidationResult, comparison MappingComparison) []Discrepancy {
	out := make([]Discrepancy, 0, len(source.Failures)+len(destination.Failures)+
		len(comparison.MissingSource)+len(comparison.MissingDestination)+len(comparison.Mismatches))

	for _, f := range source.Failures {
		out = append(out, FieldFailure{Side: SideSource, Failure: f})
	}
	for _, f := range destination.Failures {
		out = append(out, FieldFailure{Side: SideDestination, Failure: f})
	}
	for _, p := range comparison.MissingSource {
		out = append(out, MissingMappedField{Side: SideSource, FieldPath: p})
	}
	for _, p := range comparison.MissingDestination {
		out = append(out, MissingMappedField{Side: SideDestination, FieldPath: p})
	}
	for _, m := range comparison.Mismatches {
		out = append(out, MismatchedField{Mismatch: m})
	}
	return out
}

// ClassifyAll classifies ds in order, one error per discrepancy.
func ClassifyAll(ds []Discrepancy) []ClassifiedError {
	out := make([]ClassifiedError, len(ds))
	for i, d := range ds {
		out[i] = d.Classify()
	}
	return out
}
