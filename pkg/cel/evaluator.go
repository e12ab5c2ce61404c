package cel

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"

	"soxguard/pkg/models"
)

const (
	VarValue       = "value"
	VarSource      = "source"
	VarDestination = "destination"

	// DefaultCostLimit bounds a single evaluation so a hostile rule cannot
	// stall validation.
	DefaultCostLimit uint64 = 100000
)

// Evaluator compiles rule predicates (`value`) and custom mapping comparators
// (`source`, `destination`). Compiled programs are safe for concurrent use.
type Evaluator struct {
	predicateEnv  *cel.Env
	comparatorEnv *cel.Env
	costLimit     uint64
}

func NewEvaluator() (*Evaluator, error) {
	predicateEnv, err := cel.NewEnv(
		cel.Variable(VarValue, cel.DynType),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL predicate environment: %w", err)
	}

	comparatorEnv, err := cel.NewEnv(
		cel.Variable(VarSource, cel.DynType),
		cel.Variable(VarDestination, cel.DynType),
		ext.Strings(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL comparator environment: %w", err)
	}

	return &Evaluator{
		predicateEnv:  predicateEnv,
		comparatorEnv: comparatorEnv,
		costLimit:     DefaultCostLimit,
	}, nil
}

// Predicate is a compiled boolean check over one field value.
type Predicate struct {
	expression string
	program    cel.Program
}

// Comparator is a compiled equivalence check between a source and a
// destination value.
type Comparator struct {
	expression string
	program    cel.Program
}

func (e *Evaluator) CompilePredicate(expression string) (*Predicate, error) {
	program, err := e.compileBool(e.predicateEnv, expression)
	if err != nil {
		return nil, err
	}
	return &Predicate{expression: expression, program: program}, nil
}

func (e *Evaluator) CompileComparator(expression string) (*Comparator, error) {
	program, err := e.compileBool(e.comparatorEnv, expression)
	if err != nil {
		return nil, err
	}
	return &Comparator{expression: expression, program: program}, nil
}

func (e *Evaluator) compileBool(env *cel.Env, expression string) (cel.Program, error) {
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression %q: %w", expression, issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("CEL expression %q must return bool, got %v", expression, ast.OutputType())
	}

	program, err := env.Program(ast, cel.CostLimit(e.costLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (p *Predicate) Expression() string { return p.expression }

// Eval reports whether v satisfies the predicate. Evaluation errors, such as
// calling size() on a number, are returned to the caller.
func (p *Predicate) Eval(v models.Value) (bool, error) {
	return evalBool(p.program, map[string]interface{}{
		VarValue: v.Interface(),
	})
}

func (c *Comparator) Expression() string { return c.expression }

func (c *Comparator) Eval(source, destination models.Value) (bool, error) {
	return evalBool(c.program, map[string]interface{}{
		VarSource:      source.Interface(),
		VarDestination: destination.Interface(),
	})
}

func evalBool(program cel.Program, vars map[string]interface{}) (bool, error) {
	result, _, err := program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}
