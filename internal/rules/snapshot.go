package rules

import (
	"fmt"
	"sort"
	"time"

	"soxguard/pkg/cel"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

// Store resolves rules and mappings by integration identifier.
type Store interface {
	GetRules(integrationID string) ([]ValidationRule, error)
	GetMapping(sourceID, destinationID string) ([]FieldMapping, error)
}

type pairKey struct {
	source      string
	destination string
}

// Snapshot is an immutable compiled rule set. It is safe for concurrent
// reads.
type Snapshot struct {
	integrations map[string][]ValidationRule
	mappings     map[pairKey][]FieldMapping
	definitions  map[string]IntegrationDefinition
	declared     int
	loadedAt     time.Time
}

// EmptySnapshot knows no integrations.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		integrations: map[string][]ValidationRule{},
		mappings:     map[pairKey][]FieldMapping{},
		definitions:  map[string]IntegrationDefinition{},
	}
}

// Compile checks and compiles defs. Every path, type name, predicate and
// comparator is resolved here so validation never fails on a bad rule.
// A mapping declared only as A→B is also served for B→A with the roles
// swapped.
func Compile(defs Definitions, evaluator *cel.Evaluator) (*Snapshot, error) {
	snap := EmptySnapshot()
	snap.loadedAt = time.Now()

	for i, def := range defs.Integrations {
		if def.ID == "" {
			return nil, compileError(fmt.Errorf("integrations[%d]: missing id", i))
		}
		if _, dup := snap.integrations[def.ID]; dup {
			return nil, compileError(fmt.Errorf("integration %q declared twice", def.ID))
		}

		compiled := make([]ValidationRule, 0, len(def.Rules))
		for j, rd := range def.Rules {
			rule, err := compileRule(rd, evaluator)
			if err != nil {
				return nil, compileError(fmt.Errorf("integration %q rules[%d]: %w", def.ID, j, err))
			}
			compiled = append(compiled, rule)
		}
		snap.integrations[def.ID] = compiled
		snap.definitions[def.ID] = def
	}

	declared := make(map[pairKey]bool, len(defs.Mappings))
	for i, md := range defs.Mappings {
		key := pairKey{source: md.Source, destination: md.Destination}
		if md.Source == "" || md.Destination == "" {
			return nil, compileError(fmt.Errorf("mappings[%d]: source and destination are required", i))
		}
		for _, id := range []string{md.Source, md.Destination} {
			if _, ok := snap.integrations[id]; !ok {
				return nil, compileError(fmt.Errorf("mapping %s->%s: integration %q is not declared", md.Source, md.Destination, id))
			}
		}
		if declared[key] {
			return nil, compileError(fmt.Errorf("mapping %s->%s declared twice", md.Source, md.Destination))
		}

		fields := make([]FieldMapping, 0, len(md.Fields))
		for j, fd := range md.Fields {
			fm, err := compileFieldMapping(fd, evaluator)
			if err != nil {
				return nil, compileError(fmt.Errorf("mapping %s->%s fields[%d]: %w", md.Source, md.Destination, j, err))
			}
			fields = append(fields, fm)
		}
		declared[key] = true
		snap.mappings[key] = fields
	}
	snap.declared = len(declared)

	for key := range declared {
		reverse := pairKey{source: key.destination, destination: key.source}
		if declared[reverse] {
			continue
		}
		fields := snap.mappings[key]
		inverted := make([]FieldMapping, len(fields))
		for i, fm := range fields {
			inverted[i] = fm.Invert()
		}
		snap.mappings[reverse] = inverted
	}

	return snap, nil
}

func compileError(err error) error {
	return apperrors.ErrRuleCompilation.WithCause(err)
}

func compileRule(rd RuleDefinition, evaluator *cel.Evaluator) (ValidationRule, error) {
	path, err := models.ParsePath(rd.Field)
	if err != nil {
		return ValidationRule{}, err
	}
	kind, err := ParsePrimitiveKind(rd.Type)
	if err != nil {
		return ValidationRule{}, fmt.Errorf("field %q: %w", rd.Field, err)
	}

	rule := ValidationRule{FieldPath: path, Required: rd.Required, Type: kind}
	if rd.Predicate != "" {
		if evaluator == nil {
			return ValidationRule{}, fmt.Errorf("field %q: predicate requires a CEL evaluator", rd.Field)
		}
		rule.Predicate, err = evaluator.CompilePredicate(rd.Predicate)
		if err != nil {
			return ValidationRule{}, fmt.Errorf("field %q: %w", rd.Field, err)
		}
	}
	return rule, nil
}

func compileFieldMapping(fd FieldMappingDefinition, evaluator *cel.Evaluator) (FieldMapping, error) {
	src, err := models.ParsePath(fd.Source)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("source: %w", err)
	}
	dst, err := models.ParsePath(fd.Destination)
	if err != nil {
		return FieldMapping{}, fmt.Errorf("destination: %w", err)
	}

	fm := FieldMapping{SourcePath: src, DestinationPath: dst, Required: fd.Required}
	switch {
	case fd.Expression != "" && fd.Compare != "":
		return FieldMapping{}, fmt.Errorf("compare and expression are mutually exclusive")
	case fd.Expression != "":
		if evaluator == nil {
			return FieldMapping{}, fmt.Errorf("expression requires a CEL evaluator")
		}
		comparator, err := evaluator.CompileComparator(fd.Expression)
		if err != nil {
			return FieldMapping{}, err
		}
		fm.Compare = expressionComparer{comparator: comparator}
	default:
		fm.Compare, err = NamedComparer(fd.Compare)
		if err != nil {
			return FieldMapping{}, err
		}
	}
	return fm, nil
}

// GetRules returns the rules of integrationID in declaration order.
func (s *Snapshot) GetRules(integrationID string) ([]ValidationRule, error) {
	rules, ok := s.integrations[integrationID]
	if !ok {
		return nil, unknownIntegration(integrationID)
	}
	return rules, nil
}

// GetMapping returns the field mappings from sourceID to destinationID. Two
// known integrations without a declared mapping have no field mappings.
func (s *Snapshot) GetMapping(sourceID, destinationID string) ([]FieldMapping, error) {
	for _, id := range []string{sourceID, destinationID} {
		if _, ok := s.integrations[id]; !ok {
			return nil, unknownIntegration(id)
		}
	}
	return s.mappings[pairKey{source: sourceID, destination: destinationID}], nil
}

// Definition returns the declared form of one integration.
func (s *Snapshot) Definition(integrationID string) (IntegrationDefinition, bool) {
	def, ok := s.definitions[integrationID]
	return def, ok
}

// IntegrationIDs returns the known integration ids in sorted order.
func (s *Snapshot) IntegrationIDs() []string {
	ids := make([]string, 0, len(s.integrations))
	for id := range s.integrations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Counts returns the number of integrations and declared mappings.
func (s *Snapshot) Counts() (integrations, mappings int) {
	return len(s.integrations), s.declared
}

func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

func unknownIntegration(id string) error {
	return apperrors.ErrUnknownIntegration.
		WithMessage(fmt.Sprintf("integration %q has no configured rules", id)).
		WithDetail("integration_id", id)
}
