package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/internal/logger"
	"soxguard/internal/rules"
	"soxguard/pkg/cel"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

func candidateDefinitions() rules.Definitions {
	return rules.Definitions{
		Integrations: []rules.IntegrationDefinition{
			{
				ID: "ats",
				Rules: []rules.RuleDefinition{
					{Field: "candidate.id", Required: true, Type: "string", Predicate: `value.startsWith("CAND-")`},
					{Field: "candidate.firstName", Required: true, Type: "string"},
					{Field: "candidate.age", Type: "integer"},
				},
			},
			{
				ID: "hris",
				Rules: []rules.RuleDefinition{
					{Field: "candidate.id", Required: true, Type: "string"},
				},
			},
			{ID: "ledger"},
		},
		Mappings: []rules.MappingDefinition{
			{
				Source:      "ats",
				Destination: "hris",
				Fields: []rules.FieldMappingDefinition{
					{Source: "candidate.id", Destination: "candidate.id", Required: true},
					{Source: "candidate.firstName", Destination: "candidate.firstName", Required: true},
					{Source: "candidate.email", Destination: "candidate.email", Compare: "case_insensitive"},
					{Source: "candidate.hired", Destination: "candidate.startDate", Compare: "date"},
				},
			},
		},
	}
}

func newTestValidator(t *testing.T, policy string) *Validator {
	t.Helper()
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	snap, err := rules.Compile(candidateDefinitions(), eval)
	require.NoError(t, err)
	v, err := NewValidator(snap, policy, logger.NopLogger())
	require.NoError(t, err)
	return v
}

func obj(x map[string]interface{}) models.Value {
	return models.MustFromInterface(x)
}

func candidate(fields map[string]interface{}) models.Value {
	return obj(map[string]interface{}{"candidate": fields})
}

func TestNewValidator_Policy(t *testing.T) {
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	snap, err := rules.Compile(candidateDefinitions(), eval)
	require.NoError(t, err)

	for _, policy := range []string{"strict", "permissive"} {
		v, err := NewValidator(snap, policy, logger.NopLogger())
		require.NoError(t, err)
		assert.Equal(t, Policy(policy), v.Policy())
	}

	for _, policy := range []string{"", "lenient", "STRICT"} {
		_, err := NewValidator(snap, policy, logger.NopLogger())
		require.Error(t, err, policy)
		assert.True(t, apperrors.IsValidation(err))
	}
}

func TestValidateIntegration(t *testing.T) {
	v := newTestValidator(t, "strict")

	tests := []struct {
		name     string
		payload  models.Value
		expected []Failure
	}{
		{
			name:     "conforming payload",
			payload:  candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "age": 30}),
			expected: []Failure{},
		},
		{
			name:    "missing one required field",
			payload: candidate(map[string]interface{}{"id": "CAND-001"}),
			expected: []Failure{
				{FieldPath: "candidate.firstName", Reason: ReasonRequired, Detail: "field is absent"},
			},
		},
		{
			name:    "explicit null is absent",
			payload: candidate(map[string]interface{}{"id": "CAND-001", "firstName": nil}),
			expected: []Failure{
				{FieldPath: "candidate.firstName", Reason: ReasonRequired, Detail: "field is absent"},
			},
		},
		{
			name:    "wrong type",
			payload: candidate(map[string]interface{}{"id": "CAND-001", "firstName": 7}),
			expected: []Failure{
				{FieldPath: "candidate.firstName", Reason: ReasonType, Detail: "expected string, got number"},
			},
		},
		{
			name:    "optional field of wrong type",
			payload: candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "age": 30.5}),
			expected: []Failure{
				{FieldPath: "candidate.age", Reason: ReasonType, Detail: "expected integer, got number"},
			},
		},
		{
			name:    "predicate false",
			payload: candidate(map[string]interface{}{"id": "EMP-001", "firstName": "Alice"}),
			expected: []Failure{
				{FieldPath: "candidate.id", Reason: ReasonPredicate, Detail: `predicate "value.startsWith(\"CAND-\")" is false`},
			},
		},
		{
			name:    "failures keep rule order",
			payload: candidate(map[string]interface{}{"firstName": 1, "age": "old"}),
			expected: []Failure{
				{FieldPath: "candidate.id", Reason: ReasonRequired, Detail: "field is absent"},
				{FieldPath: "candidate.firstName", Reason: ReasonType, Detail: "expected string, got number"},
				{FieldPath: "candidate.age", Reason: ReasonType, Detail: "expected integer, got string"},
			},
		},
		{
			name:    "not an object",
			payload: models.String("CAND-001"),
			expected: []Failure{
				{FieldPath: "candidate.id", Reason: ReasonRequired, Detail: "field is absent"},
				{FieldPath: "candidate.firstName", Reason: ReasonRequired, Detail: "field is absent"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateIntegration(context.Background(), IntegrationRequest{IntegrationID: "ats", Payload: tt.payload})
			require.NoError(t, err)
			assert.Equal(t, "ats", result.IntegrationID)
			assert.Equal(t, tt.expected, result.Failures)
			assert.Equal(t, len(tt.expected) == 0, result.IsValid)
		})
	}
}

func TestValidateIntegration_EachRequiredFieldMissing(t *testing.T) {
	v := newTestValidator(t, "strict")
	full := map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}

	for field := range full {
		t.Run(field, func(t *testing.T) {
			partial := map[string]interface{}{}
			for k, val := range full {
				if k != field {
					partial[k] = val
				}
			}
			result, err := v.ValidateIntegration(context.Background(), IntegrationRequest{IntegrationID: "ats", Payload: candidate(partial)})
			require.NoError(t, err)
			assert.False(t, result.IsValid)
			require.Len(t, result.Failures, 1)
			assert.Equal(t, "candidate."+field, result.Failures[0].FieldPath)
			assert.Equal(t, ReasonRequired, result.Failures[0].Reason)
		})
	}
}

func TestValidateIntegration_Wrapper(t *testing.T) {
	v := newTestValidator(t, "strict")
	payload := map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		wrapper  models.Value
		expected []Failure
	}{
		{
			name:     "sox layout",
			wrapper:  models.NewIntegrationWrapper("ats", "TX-1", ts, true, candidate(payload)).Value(models.SOXWrapperLayout),
			expected: []Failure{},
		},
		{
			name:     "plain layout",
			wrapper:  models.NewIntegrationWrapper("ats", "TX-1", ts, false, candidate(payload)).Value(models.PlainWrapperLayout),
			expected: []Failure{},
		},
		{
			name: "payload rules apply to content",
			wrapper: models.NewIntegrationWrapper("ats", "TX-1", ts, true,
				candidate(map[string]interface{}{"id": "CAND-001"})).Value(models.SOXWrapperLayout),
			expected: []Failure{
				{FieldPath: "candidate.firstName", Reason: ReasonRequired, Detail: "field is absent"},
			},
		},
		{
			name: "broken envelope",
			wrapper: obj(map[string]interface{}{
				"sox_integration":           "hris",
				"sox_transaction_timestamp": "last tuesday",
				"sox_data": map[string]interface{}{
					"success": 2,
					"payload": map[string]interface{}{"candidate": payload},
				},
			}),
			expected: []Failure{
				{FieldPath: "sox_transaction_id", Reason: ReasonRequired, Detail: "field is absent"},
				{FieldPath: "sox_transaction_timestamp", Reason: ReasonType, Detail: "expected a timestamp"},
				{FieldPath: "sox_data.success", Reason: ReasonType, Detail: "expected 0 or 1"},
				{FieldPath: "sox_integration", Reason: ReasonPredicate, Detail: `wrapper is for integration "hris", validated as ats`},
			},
		},
		{
			name: "epoch timestamp and missing success",
			wrapper: obj(map[string]interface{}{
				"transactionId":        "TX-1",
				"transactionTimestamp": 1714557600000,
				"content":              map[string]interface{}{"payload": map[string]interface{}{"candidate": payload}},
			}),
			expected: []Failure{
				{FieldPath: "content.success", Reason: ReasonRequired, Detail: "field is absent"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateIntegration(context.Background(), IntegrationRequest{IntegrationID: "ats", Payload: tt.wrapper})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Failures)
		})
	}
}

func TestValidateIntegration_UnknownIntegration(t *testing.T) {
	payload := candidate(map[string]interface{}{"id": "x"})

	strict := newTestValidator(t, "strict")
	_, err := strict.ValidateIntegration(context.Background(), IntegrationRequest{IntegrationID: "crm", Payload: payload})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownIntegration(err))

	permissive := newTestValidator(t, "permissive")
	result, err := permissive.ValidateIntegration(context.Background(), IntegrationRequest{IntegrationID: "crm", Payload: payload})
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Failures)
}

func TestCompareMappings(t *testing.T) {
	v := newTestValidator(t, "strict")

	tests := []struct {
		name               string
		source             models.Value
		destination        models.Value
		missingSource      []string
		missingDestination []string
		mismatches         int
	}{
		{
			name:               "missing on destination",
			source:             candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-001"}),
			missingSource:      []string{},
			missingDestination: []string{"candidate.firstName"},
		},
		{
			name:               "missing on source",
			source:             candidate(map[string]interface{}{"id": "CAND-001"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}),
			missingSource:      []string{"candidate.firstName"},
			missingDestination: []string{},
		},
		{
			name:               "required entry missing on both",
			source:             candidate(map[string]interface{}{"id": "CAND-001"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-001"}),
			missingSource:      []string{"candidate.firstName"},
			missingDestination: []string{"candidate.firstName"},
		},
		{
			name:               "optional entry missing on both is not drift",
			source:             candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}),
			missingSource:      []string{},
			missingDestination: []string{},
		},
		{
			name:               "comparators normalize",
			source:             candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "email": "ALICE@EXAMPLE.COM", "hired": "2024-05-01T00:00:00Z"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "email": "alice@example.com", "startDate": "2024-05-01"}),
			missingSource:      []string{},
			missingDestination: []string{},
		},
		{
			name:               "mismatches",
			source:             candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "email": "a@example.com"}),
			destination:        candidate(map[string]interface{}{"id": "CAND-002", "firstName": "Alicia", "email": "b@example.com"}),
			missingSource:      []string{},
			missingDestination: []string{},
			mismatches:         3,
		},
		{
			name:               "no coercion by default",
			source:             candidate(map[string]interface{}{"id": "1", "firstName": "Alice"}),
			destination:        candidate(map[string]interface{}{"id": 1, "firstName": "Alice"}),
			missingSource:      []string{},
			missingDestination: []string{},
			mismatches:         1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			comparison, err := v.CompareMappings(context.Background(), PairRequest{
				SourceIntegrationID:      "ats",
				DestinationIntegrationID: "hris",
				SourcePayload:            tt.source,
				DestinationPayload:       tt.destination,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.missingSource, comparison.MissingSource)
			assert.Equal(t, tt.missingDestination, comparison.MissingDestination)
			assert.Len(t, comparison.Mismatches, tt.mismatches)
		})
	}
}

func TestCompareMappings_MismatchOrderAndValues(t *testing.T) {
	v := newTestValidator(t, "strict")

	comparison, err := v.CompareMappings(context.Background(), PairRequest{
		SourceIntegrationID:      "ats",
		DestinationIntegrationID: "hris",
		SourcePayload:            candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice", "email": "a@x"}),
		DestinationPayload:       candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alicia", "email": "b@x"}),
	})
	require.NoError(t, err)
	require.Len(t, comparison.Mismatches, 2)

	first := comparison.Mismatches[0]
	assert.Equal(t, "candidate.firstName", first.FieldPath)
	assert.Equal(t, "candidate.firstName", first.DestinationFieldPath)
	assert.Equal(t, models.String("Alice"), first.SourceValue)
	assert.Equal(t, models.String("Alicia"), first.DestinationValue)
	assert.Equal(t, "candidate.email", comparison.Mismatches[1].FieldPath)
}

func TestCompareMappings_DeduplicatesAndArrays(t *testing.T) {
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	snap, err := rules.Compile(rules.Definitions{
		Integrations: []rules.IntegrationDefinition{{ID: "pms"}, {ID: "crs"}},
		Mappings: []rules.MappingDefinition{{
			Source:      "pms",
			Destination: "crs",
			Fields: []rules.FieldMappingDefinition{
				{Source: "confirmationIds[0].value", Destination: "confirmation"},
				{Source: "confirmationIds[0].value", Destination: "altConfirmation"},
				{Source: "rooms[1].rate", Destination: "rate", Expression: "source > destination"},
			},
		}},
	}, eval)
	require.NoError(t, err)
	v, err := NewValidator(snap, "strict", logger.NopLogger())
	require.NoError(t, err)

	comparison, err := v.CompareMappings(context.Background(), PairRequest{
		SourceIntegrationID:      "pms",
		DestinationIntegrationID: "crs",
		SourcePayload:            obj(map[string]interface{}{"confirmationIds": []interface{}{}, "rooms": []interface{}{map[string]interface{}{}, map[string]interface{}{"rate": "high"}}}),
		DestinationPayload:       obj(map[string]interface{}{"confirmation": "ABC123", "altConfirmation": "ABC123", "rate": 100}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"confirmationIds[0].value"}, comparison.MissingSource)
	require.Len(t, comparison.Mismatches, 1)
	assert.Equal(t, "rooms[1].rate", comparison.Mismatches[0].FieldPath)
	assert.NotEmpty(t, comparison.Mismatches[0].Detail, "comparator error is recorded")
}

func TestCompareMappings_Unwraps(t *testing.T) {
	v := newTestValidator(t, "strict")
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	comparison, err := v.CompareMappings(context.Background(), PairRequest{
		SourceIntegrationID:      "ats",
		DestinationIntegrationID: "hris",
		SourcePayload: models.NewIntegrationWrapper("ats", "TX-1", ts, true,
			candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"})).Value(models.SOXWrapperLayout),
		DestinationPayload: candidate(map[string]interface{}{"id": "CAND-001", "firstName": "Alice"}),
	})
	require.NoError(t, err)
	assert.False(t, comparison.HasDiscrepancies())
}

func TestCompareMappings_LargeNumbers(t *testing.T) {
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	snap, err := rules.Compile(rules.Definitions{
		Integrations: []rules.IntegrationDefinition{{ID: "erp"}, {ID: "bank"}},
		Mappings: []rules.MappingDefinition{{
			Source:      "erp",
			Destination: "bank",
			Fields: []rules.FieldMappingDefinition{
				{Source: "accountId", Destination: "accountId"},
				{Source: "amount", Destination: "amount"},
			},
		}},
	}, eval)
	require.NoError(t, err)
	v, err := NewValidator(snap, "strict", logger.NopLogger())
	require.NoError(t, err)

	source, err := models.Parse([]byte(`{"accountId":9007199254740993,"amount":12345678901234567890}`))
	require.NoError(t, err)
	destination, err := models.Parse([]byte(`{"accountId":9007199254740992,"amount":12345678901234567891}`))
	require.NoError(t, err)

	comparison, err := v.CompareMappings(context.Background(), PairRequest{
		SourceIntegrationID:      "erp",
		DestinationIntegrationID: "bank",
		SourcePayload:            source,
		DestinationPayload:       destination,
	})
	require.NoError(t, err)
	require.Len(t, comparison.Mismatches, 2)
	assert.Equal(t, "accountId", comparison.Mismatches[0].FieldPath)
	assert.Equal(t, "amount", comparison.Mismatches[1].FieldPath)
	assert.Equal(t, "9007199254740993", comparison.Mismatches[0].SourceValue.String())
}
