package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/pkg/models"
)

func TestNamedComparers(t *testing.T) {
	tests := []struct {
		name     string
		compare  string
		source   models.Value
		dest     models.Value
		expected bool
	}{
		{name: "exact equal", compare: "", source: models.String("Alice"), dest: models.String("Alice"), expected: true},
		{name: "exact differs", compare: "exact", source: models.String("Alice"), dest: models.String("Alicia"), expected: false},
		{name: "exact no coercion", compare: "exact", source: models.Number(1), dest: models.String("1"), expected: false},
		{name: "exact deep object", compare: "exact",
			source:   models.MustFromInterface(map[string]interface{}{"a": []interface{}{1.0, "x"}}),
			dest:     models.MustFromInterface(map[string]interface{}{"a": []interface{}{1.0, "x"}}),
			expected: true},
		{name: "trimmed", compare: "trimmed", source: models.String("  P123 "), dest: models.String("P123"), expected: true},
		{name: "trimmed keeps case", compare: "trimmed", source: models.String("p123"), dest: models.String("P123"), expected: false},
		{name: "trimmed non strings", compare: "trimmed", source: models.Number(2), dest: models.Number(2), expected: true},
		{name: "case insensitive", compare: "case_insensitive", source: models.String("ALICE"), dest: models.String("alice"), expected: true},
		{name: "date same instant", compare: "date", source: models.String("2024-05-01T10:00:00Z"), dest: models.String("2024-05-01T12:00:00+02:00"), expected: true},
		{name: "date epoch millis", compare: "date", source: models.Number(0), dest: models.String("1970-01-01T00:00:00Z"), expected: true},
		{name: "date differs", compare: "date", source: models.String("2024-05-01"), dest: models.String("2024-05-02"), expected: false},
		{name: "date unparseable falls back", compare: "date", source: models.String("soon"), dest: models.String("soon"), expected: true},
		{name: "numeric string", compare: "numeric", source: models.String("10.50"), dest: models.Number(10.5), expected: true},
		{name: "numeric differs", compare: "numeric", source: models.Number(10), dest: models.Number(11), expected: false},
		{name: "numeric non number", compare: "numeric", source: models.String("ten"), dest: models.Number(10), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmp, err := NamedComparer(tt.compare)
			require.NoError(t, err)

			got, err := cmp.Equal(tt.source, tt.dest)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)

			reversed, err := cmp.Reverse().Equal(tt.dest, tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, reversed)
		})
	}
}

func TestNamedComparer_Unknown(t *testing.T) {
	_, err := NamedComparer("levenshtein")
	assert.Error(t, err)
}

func TestPrimitiveKind_Matches(t *testing.T) {
	tests := []struct {
		kind     PrimitiveKind
		value    models.Value
		expected bool
	}{
		{KindAny, models.Null(), true},
		{KindString, models.String("x"), true},
		{KindString, models.Number(1), false},
		{KindNumber, models.Number(1.5), true},
		{KindInteger, models.Number(3), true},
		{KindInteger, models.Number(3.5), false},
		{KindInteger, models.String("3"), false},
		{KindBoolean, models.Bool(false), true},
		{KindObject, models.Object(nil), true},
		{KindArray, models.Array(), true},
		{KindArray, models.Object(nil), false},
		{KindTimestamp, models.String("2024-05-01T10:00:00Z"), true},
		{KindTimestamp, models.String("2024-05-01"), true},
		{KindTimestamp, models.String("yesterday"), false},
		{KindTimestamp, models.Number(1714557600000), false},
		{KindString, models.Null(), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.value.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.Matches(tt.value))
		})
	}
}

func TestParsePrimitiveKind(t *testing.T) {
	k, err := ParsePrimitiveKind("")
	require.NoError(t, err)
	assert.Equal(t, KindAny, k)

	k, err = ParsePrimitiveKind(" Timestamp ")
	require.NoError(t, err)
	assert.Equal(t, KindTimestamp, k)

	_, err = ParsePrimitiveKind("decimal")
	assert.Error(t, err)
}
