package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/pkg/cel"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

func testDefinitions() Definitions {
	return Definitions{
		Integrations: []IntegrationDefinition{
			{
				ID: "int15-3-2",
				Rules: []RuleDefinition{
					{Field: "confirmationIds[0].value", Required: true, Type: "string", Predicate: "value.size() == 6"},
					{Field: "propertyCode", Required: true, Type: "string"},
					{Field: "nights", Type: "integer"},
				},
			},
			{
				ID: "int15-3-1",
				Rules: []RuleDefinition{
					{Field: "propertyCode", Required: true},
				},
			},
			{ID: "int99"},
		},
		Mappings: []MappingDefinition{
			{
				Source:      "int15-3-2",
				Destination: "int15-3-1",
				Fields: []FieldMappingDefinition{
					{Source: "propertyCode", Destination: "propertyCode", Compare: "trimmed"},
					{Source: "guest.name", Destination: "guestName", Expression: "source.lowerAscii() == destination.lowerAscii()", Required: true},
				},
			},
		},
	}
}

func compileTestSnapshot(t *testing.T, defs Definitions) *Snapshot {
	t.Helper()
	eval, err := cel.NewEvaluator()
	require.NoError(t, err)
	snap, err := Compile(defs, eval)
	require.NoError(t, err)
	return snap
}

func TestCompile_Rules(t *testing.T) {
	snap := compileTestSnapshot(t, testDefinitions())

	rules, err := snap.GetRules("int15-3-2")
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "confirmationIds[0].value", rules[0].FieldPath.String())
	assert.True(t, rules[0].Required)
	assert.Equal(t, KindString, rules[0].Type)
	require.NotNil(t, rules[0].Predicate)
	assert.Equal(t, "value.size() == 6", rules[0].Predicate.Expression())

	assert.Equal(t, KindInteger, rules[2].Type)
	assert.Nil(t, rules[2].Predicate)

	empty, err := snap.GetRules("int99")
	require.NoError(t, err)
	assert.Empty(t, empty)

	integrations, mappings := snap.Counts()
	assert.Equal(t, 3, integrations)
	assert.Equal(t, 1, mappings)
	assert.Equal(t, []string{"int15-3-1", "int15-3-2", "int99"}, snap.IntegrationIDs())
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Definitions)
	}{
		{
			name:   "missing integration id",
			mutate: func(d *Definitions) { d.Integrations[2].ID = "" },
		},
		{
			name:   "duplicate integration",
			mutate: func(d *Definitions) { d.Integrations[2].ID = "int15-3-1" },
		},
		{
			name:   "malformed field path",
			mutate: func(d *Definitions) { d.Integrations[0].Rules[1].Field = "a..b" },
		},
		{
			name:   "unknown type",
			mutate: func(d *Definitions) { d.Integrations[0].Rules[1].Type = "uuid" },
		},
		{
			name:   "predicate does not compile",
			mutate: func(d *Definitions) { d.Integrations[0].Rules[0].Predicate = "value ==" },
		},
		{
			name:   "mapping to undeclared integration",
			mutate: func(d *Definitions) { d.Mappings[0].Destination = "int404" },
		},
		{
			name:   "duplicate mapping",
			mutate: func(d *Definitions) { d.Mappings = append(d.Mappings, d.Mappings[0]) },
		},
		{
			name:   "unknown comparator",
			mutate: func(d *Definitions) { d.Mappings[0].Fields[0].Compare = "fuzzy" },
		},
		{
			name: "compare and expression together",
			mutate: func(d *Definitions) {
				d.Mappings[0].Fields[0].Expression = "source == destination"
			},
		},
		{
			name:   "comparator expression does not compile",
			mutate: func(d *Definitions) { d.Mappings[0].Fields[1].Expression = "value == 1" },
		},
	}

	eval, err := cel.NewEvaluator()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := testDefinitions()
			tt.mutate(&defs)

			snap, err := Compile(defs, eval)
			require.Error(t, err)
			assert.Nil(t, snap)
			assert.True(t, errors.Is(err, apperrors.ErrRuleCompilation))
		})
	}
}

func TestSnapshot_UnknownIntegration(t *testing.T) {
	snap := compileTestSnapshot(t, testDefinitions())

	_, err := snap.GetRules("int404")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownIntegration(err))

	_, err = snap.GetMapping("int15-3-2", "int404")
	require.Error(t, err)
	assert.True(t, apperrors.IsUnknownIntegration(err))

	var appErr *apperrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "int404", appErr.Details["integration_id"])
}

func TestSnapshot_GetMapping(t *testing.T) {
	snap := compileTestSnapshot(t, testDefinitions())

	forward, err := snap.GetMapping("int15-3-2", "int15-3-1")
	require.NoError(t, err)
	require.Len(t, forward, 2)
	assert.Equal(t, "guest.name", forward[1].SourcePath.String())
	assert.Equal(t, "guestName", forward[1].DestinationPath.String())
	assert.True(t, forward[1].Required)
	assert.Equal(t, CompareTrimmed, forward[0].Compare.Name())

	t.Run("reverse lookup swaps paths", func(t *testing.T) {
		reverse, err := snap.GetMapping("int15-3-1", "int15-3-2")
		require.NoError(t, err)
		require.Len(t, reverse, 2)
		assert.Equal(t, "guestName", reverse[1].SourcePath.String())
		assert.Equal(t, "guest.name", reverse[1].DestinationPath.String())
		assert.True(t, reverse[1].Required)
	})

	t.Run("known pair without mapping", func(t *testing.T) {
		none, err := snap.GetMapping("int15-3-2", "int99")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestSnapshot_ReverseExpressionSwapsArguments(t *testing.T) {
	defs := Definitions{
		Integrations: []IntegrationDefinition{{ID: "a"}, {ID: "b"}},
		Mappings: []MappingDefinition{{
			Source:      "a",
			Destination: "b",
			Fields: []FieldMappingDefinition{
				{Source: "amount", Destination: "amountCents", Expression: "int(source * 100.0) == int(destination)"},
			},
		}},
	}
	snap := compileTestSnapshot(t, defs)

	forward, err := snap.GetMapping("a", "b")
	require.NoError(t, err)
	ok, err := forward[0].Compare.Equal(models.Number(12.5), models.Number(1250))
	require.NoError(t, err)
	assert.True(t, ok)

	reverse, err := snap.GetMapping("b", "a")
	require.NoError(t, err)
	ok, err = reverse[0].Compare.Equal(models.Number(1250), models.Number(12.5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSnapshot_DeclaredReverseWins(t *testing.T) {
	defs := Definitions{
		Integrations: []IntegrationDefinition{{ID: "a"}, {ID: "b"}},
		Mappings: []MappingDefinition{
			{Source: "a", Destination: "b", Fields: []FieldMappingDefinition{{Source: "x", Destination: "y"}}},
			{Source: "b", Destination: "a", Fields: []FieldMappingDefinition{{Source: "p", Destination: "q"}}},
		},
	}
	snap := compileTestSnapshot(t, defs)

	reverse, err := snap.GetMapping("b", "a")
	require.NoError(t, err)
	require.Len(t, reverse, 1)
	assert.Equal(t, "p", reverse[0].SourcePath.String())

	_, mappings := snap.Counts()
	assert.Equal(t, 2, mappings)
}

func TestSnapshot_Definition(t *testing.T) {
	snap := compileTestSnapshot(t, testDefinitions())

	def, ok := snap.Definition("int15-3-1")
	require.True(t, ok)
	assert.Equal(t, "propertyCode", def.Rules[0].Field)

	_, ok = snap.Definition("int404")
	assert.False(t, ok)
}
