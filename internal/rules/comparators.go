package rules

import (
	"fmt"
	"strings"

	"soxguard/pkg/cel"
	"soxguard/pkg/models"
)

const (
	CompareExact           = "exact"
	CompareTrimmed         = "trimmed"
	CompareCaseInsensitive = "case_insensitive"
	CompareDate            = "date"
	CompareNumeric         = "numeric"
)

// Comparer decides whether a source value and a destination value agree.
// Implementations are stateless and safe for concurrent use.
type Comparer interface {
	Name() string
	Equal(source, destination models.Value) (bool, error)
	// Reverse returns the comparer to use when source and destination swap
	// roles.
	Reverse() Comparer
}

// NamedComparer returns a built-in comparer. An empty name is exact.
func NamedComparer(name string) (Comparer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", CompareExact:
		return exactComparer{}, nil
	case CompareTrimmed:
		return trimmedComparer{}, nil
	case CompareCaseInsensitive:
		return caseInsensitiveComparer{}, nil
	case CompareDate:
		return dateComparer{}, nil
	case CompareNumeric:
		return numericComparer{}, nil
	default:
		return nil, fmt.Errorf("unknown comparator %q", name)
	}
}

// ExactComparer is deep structural equality without coercion.
func ExactComparer() Comparer { return exactComparer{} }

type exactComparer struct{}

func (exactComparer) Name() string {
	return CompareExact
}

func (c exactComparer) Reverse() Comparer {
	return c
}

func (exactComparer) Equal(source, destination models.Value) (bool, error) {
	return source.Equal(destination), nil
}

// trimmedComparer ignores surrounding whitespace of two strings.
type trimmedComparer struct{}

func (trimmedComparer) Name() string {
	return CompareTrimmed
}

func (c trimmedComparer) Reverse() Comparer {
	return c
}

func (trimmedComparer) Equal(source, destination models.Value) (bool, error) {
	s, okS := source.AsString()
	d, okD := destination.AsString()
	if !okS || !okD {
		return source.Equal(destination), nil
	}
	return strings.TrimSpace(s) == strings.TrimSpace(d), nil
}

type caseInsensitiveComparer struct{}

func (caseInsensitiveComparer) Name() string {
	return CompareCaseInsensitive
}

func (c caseInsensitiveComparer) Reverse() Comparer {
	return c
}

func (caseInsensitiveComparer) Equal(source, destination models.Value) (bool, error) {
	s, okS := source.AsString()
	d, okD := destination.AsString()
	if !okS || !okD {
		return source.Equal(destination), nil
	}
	return strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(d)), nil
}

// dateComparer parses both sides as timestamps and compares instants. Values
// that do not parse fall back to exact equality.
type dateComparer struct{}

func (dateComparer) Name() string {
	return CompareDate
}

func (c dateComparer) Reverse() Comparer {
	return c
}

func (dateComparer) Equal(source, destination models.Value) (bool, error) {
	s, okS := models.ParseTimestamp(source)
	d, okD := models.ParseTimestamp(destination)
	if !okS || !okD {
		return source.Equal(destination), nil
	}
	return s.Equal(d), nil
}

// numericComparer compares numbers and numeric strings by value.
type numericComparer struct{}

func (numericComparer) Name() string {
	return CompareNumeric
}

func (c numericComparer) Reverse() Comparer {
	return c
}

func (numericComparer) Equal(source, destination models.Value) (bool, error) {
	s, okS := asNumber(source)
	d, okD := asNumber(destination)
	if !okS || !okD {
		return source.Equal(destination), nil
	}
	return s.Equal(d), nil
}

// asNumber accepts numbers and strings holding a JSON number literal.
func asNumber(v models.Value) (models.Value, bool) {
	if v.Kind() == models.KindNumber {
		return v, true
	}
	s, ok := v.AsString()
	if !ok {
		return models.Value{}, false
	}
	n, err := models.NumberLiteral(s)
	if err != nil {
		return models.Value{}, false
	}
	return n, true
}

// expressionComparer evaluates a CEL comparator. swapped binds the arguments
// in reverse so an inverted mapping keeps the declared semantics.
type expressionComparer struct {
	comparator *cel.Comparator
	swapped    bool
}

func (c expressionComparer) Name() string {
	return "expression"
}

func (c expressionComparer) Reverse() Comparer {
	return expressionComparer{comparator: c.comparator, swapped: !c.swapped}
}

func (c expressionComparer) Equal(source, destination models.Value) (bool, error) {
	if c.swapped {
		return c.comparator.Eval(destination, source)
	}
	return c.comparator.Eval(source, destination)
}

// Expression returns the CEL source of the comparator.
func (c expressionComparer) Expression() string {
	return c.comparator.Expression()
}
