package cel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soxguard/pkg/models"
)

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestCompilePredicate(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{name: "size check", expr: `value.size() == 6`},
		{name: "string extension", expr: `value.lowerAscii() == "abc"`},
		{name: "invalid syntax", expr: `value ==`, wantError: true},
		{name: "undefined variable", expr: `payload.status == "active"`, wantError: true},
		{name: "non-bool result", expr: `value`, wantError: true},
		{name: "comparator variable", expr: `source == destination`, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := eval.CompilePredicate(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expr, p.Expression())
		})
	}
}

func TestPredicate_Eval(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		value     models.Value
		want      bool
		wantError bool
	}{
		{name: "six characters", expr: `value.size() == 6`, value: models.String("A1B2C3"), want: true},
		{name: "five characters", expr: `value.size() == 6`, value: models.String("A1B2C"), want: false},
		{name: "numeric range", expr: `value >= 0.0 && value <= 100.0`, value: models.Number(42), want: true},
		{name: "pattern", expr: `value.matches("^[A-Z]{3}$")`, value: models.String("ABC"), want: true},
		{
			name:  "object field",
			expr:  `has(value.id) && value.id != ""`,
			value: models.MustFromInterface(map[string]interface{}{"id": "CAND-001"}),
			want:  true,
		},
		{
			name:  "list size",
			expr:  `value.size() > 0`,
			value: models.Array(models.String("x")),
			want:  true,
		},
		{name: "wrong runtime type", expr: `value.size() == 6`, value: models.Bool(true), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := eval.CompilePredicate(tt.expr)
			require.NoError(t, err)

			got, err := p.Eval(tt.value)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComparator_Eval(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name        string
		expr        string
		source      models.Value
		destination models.Value
		want        bool
	}{
		{
			name:        "case insensitive equal",
			expr:        `source.lowerAscii() == destination.lowerAscii()`,
			source:      models.String("Alice"),
			destination: models.String("ALICE"),
			want:        true,
		},
		{
			name:        "case insensitive different",
			expr:        `source.lowerAscii() == destination.lowerAscii()`,
			source:      models.String("Alice"),
			destination: models.String("Alicia"),
			want:        false,
		},
		{
			name:        "scaled numbers",
			expr:        `source == destination * 100.0`,
			source:      models.Number(1250),
			destination: models.Number(12.5),
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := eval.CompileComparator(tt.expr)
			require.NoError(t, err)

			got, err := c.Eval(tt.source, tt.destination)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range PredicateExamples {
		t.Run("predicate/"+name, func(t *testing.T) {
			_, err := eval.CompilePredicate(expr)
			assert.NoError(t, err)
		})
	}

	for name, expr := range ComparatorExamples {
		t.Run("comparator/"+name, func(t *testing.T) {
			_, err := eval.CompileComparator(expr)
			assert.NoError(t, err)
		})
	}
}
