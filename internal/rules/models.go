package rules

import (
	"fmt"
	"math"
	"strings"

	"soxguard/pkg/cel"
	"soxguard/pkg/models"
)

// PrimitiveKind is the expected kind of a validated field.
type PrimitiveKind string

const (
	KindAny       PrimitiveKind = "any"
	KindString    PrimitiveKind = "string"
	KindNumber    PrimitiveKind = "number"
	KindInteger   PrimitiveKind = "integer"
	KindBoolean   PrimitiveKind = "boolean"
	KindObject    PrimitiveKind = "object"
	KindArray     PrimitiveKind = "array"
	KindTimestamp PrimitiveKind = "timestamp"
)

// ParsePrimitiveKind accepts the kind names case-insensitively. An empty name
// is KindAny.
func ParsePrimitiveKind(name string) (PrimitiveKind, error) {
	k := PrimitiveKind(strings.ToLower(strings.TrimSpace(name)))
	switch k {
	case "":
		return KindAny, nil
	case KindAny, KindString, KindNumber, KindInteger, KindBoolean, KindObject, KindArray, KindTimestamp:
		return k, nil
	default:
		return "", fmt.Errorf("unknown type %q", name)
	}
}

// Matches reports whether v has kind k. Null matches only KindAny.
func (k PrimitiveKind) Matches(v models.Value) bool {
	switch k {
	case KindAny:
		return true
	case KindString:
		return v.Kind() == models.KindString
	case KindNumber:
		return v.Kind() == models.KindNumber
	case KindInteger:
		if r, ok := v.AsRat(); ok {
			return r.IsInt()
		}
		n, ok := v.AsNumber()
		return ok && n == math.Trunc(n)
	case KindBoolean:
		return v.Kind() == models.KindBool
	case KindObject:
		return v.Kind() == models.KindObject
	case KindArray:
		return v.Kind() == models.KindArray
	case KindTimestamp:
		s, ok := v.AsString()
		if !ok {
			return false
		}
		_, ok = models.ParseTimestampString(s)
		return ok
	default:
		return false
	}
}

// ValidationRule is one compiled field check of an integration.
type ValidationRule struct {
	FieldPath models.Path
	Required  bool
	Type      PrimitiveKind
	// Predicate is nil when the rule declares none.
	Predicate *cel.Predicate
}

// FieldMapping is one compiled source/destination field correspondence.
type FieldMapping struct {
	SourcePath      models.Path
	DestinationPath models.Path
	Required        bool
	Compare         Comparer
}

// Invert swaps the roles of source and destination.
func (m FieldMapping) Invert() FieldMapping {
	return FieldMapping{
		SourcePath:      m.DestinationPath,
		DestinationPath: m.SourcePath,
		Required:        m.Required,
		Compare:         m.Compare.Reverse(),
	}
}

// Definitions is the declarative rule set as stored in a file or database.
type Definitions struct {
	Integrations []IntegrationDefinition `mapstructure:"integrations" json:"integrations" bson:"integrations"`
	Mappings     []MappingDefinition     `mapstructure:"mappings" json:"mappings" bson:"mappings"`
}

type IntegrationDefinition struct {
	ID          string           `mapstructure:"id" json:"id" bson:"_id"`
	Description string           `mapstructure:"description" json:"description,omitempty" bson:"description,omitempty"`
	Rules       []RuleDefinition `mapstructure:"rules" json:"rules" bson:"rules"`
}

type RuleDefinition struct {
	Field     string `mapstructure:"field" json:"field" bson:"field"`
	Required  bool   `mapstructure:"required" json:"required" bson:"required"`
	Type      string `mapstructure:"type" json:"type,omitempty" bson:"type,omitempty"`
	Predicate string `mapstructure:"predicate" json:"predicate,omitempty" bson:"predicate,omitempty"`
}

type MappingDefinition struct {
	Source      string                   `mapstructure:"source" json:"source" bson:"source"`
	Destination string                   `mapstructure:"destination" json:"destination" bson:"destination"`
	Description string                   `mapstructure:"description" json:"description,omitempty" bson:"description,omitempty"`
	Fields      []FieldMappingDefinition `mapstructure:"fields" json:"fields" bson:"fields"`
}

// FieldMappingDefinition declares either a named comparator (Compare) or a
// CEL expression over `source` and `destination`, not both.
type FieldMappingDefinition struct {
	Source      string `mapstructure:"source" json:"source" bson:"source"`
	Destination string `mapstructure:"destination" json:"destination" bson:"destination"`
	Compare     string `mapstructure:"compare" json:"compare,omitempty" bson:"compare,omitempty"`
	Expression  string `mapstructure:"expression" json:"expression,omitempty" bson:"expression,omitempty"`
	Required    bool   `mapstructure:"required" json:"required" bson:"required"`
}
