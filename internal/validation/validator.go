package validation

import (
	"context"
	"fmt"

	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/internal/rules"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/metrics"
	"soxguard/pkg/models"
)

// Policy decides how an integration without configured rules is treated.
type Policy string

const (
	// PolicyStrict fails validation of unknown integrations.
	PolicyStrict Policy = constants.UnknownIntegrationStrict
	// PolicyPermissive treats unknown integrations as having no constraints.
	PolicyPermissive Policy = constants.UnknownIntegrationPermissive
)

func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, PolicyPermissive:
		return Policy(s), nil
	default:
		return "", apperrors.ErrValidation.
			WithMessage(fmt.Sprintf("unknown integration policy %q, expected %q or %q", s, PolicyStrict, PolicyPermissive))
	}
}

// Validator runs payload validation and mapping comparison against a rule
// store. Results depend only on the rules and the inputs.
type Validator struct {
	store  rules.Store
	policy Policy
	logger logger.Logger
}

func NewValidator(store rules.Store, policy string, log logger.Logger) (*Validator, error) {
	p, err := ParsePolicy(policy)
	if err != nil {
		return nil, err
	}
	return &Validator{store: store, policy: p, logger: log}, nil
}

func (v *Validator) Policy() Policy {
	return v.policy
}

// ValidateIntegration checks one payload against the rules of its
// integration. The only error is an unknown integration under the strict
// policy.
func (v *Validator) ValidateIntegration(ctx context.Context, req IntegrationRequest) (ValidationResult, error) {
	ruleSet, err := v.rulesFor(ctx, req.IntegrationID)
	if err != nil {
		return ValidationResult{}, err
	}

	result := validatePayload(req.IntegrationID, req.Payload, ruleSet)
	metrics.IncIntegrationValidation(req.IntegrationID, resultLabel(result.IsValid))
	return result, nil
}

func (v *Validator) rulesFor(ctx context.Context, integrationID string) ([]rules.ValidationRule, error) {
	ruleSet, err := v.store.GetRules(integrationID)
	if err == nil {
		return ruleSet, nil
	}
	if apperrors.IsUnknownIntegration(err) && v.policy == PolicyPermissive {
		metrics.IncFallbackUsage("validation", string(PolicyPermissive), "unknown_integration")
		v.logger.DebugwCtx(ctx, "No rules configured, validating without constraints",
			"integration_id", integrationID,
		)
		return nil, nil
	}
	return nil, err
}

// validatePayload applies ruleSet to the content of payload in declaration
// order. An explicit null counts as absent.
func validatePayload(integrationID string, payload models.Value, ruleSet []rules.ValidationRule) ValidationResult {
	failures := make([]Failure, 0)

	if layout, ok := models.DetectWrapper(payload); ok {
		failures = append(failures, checkWrapper(integrationID, payload, layout)...)
	}

	content := models.UnwrapContent(payload)
	for _, rule := range ruleSet {
		if f, failed := checkRule(rule, content); failed {
			failures = append(failures, f)
		}
	}

	return ValidationResult{
		IsValid:       len(failures) == 0,
		IntegrationID: integrationID,
		Failures:      failures,
	}
}

func checkRule(rule rules.ValidationRule, content models.Value) (Failure, bool) {
	path := rule.FieldPath.String()

	value, ok := content.Lookup(rule.FieldPath)
	if !ok || value.IsNull() {
		if rule.Required {
			return Failure{FieldPath: path, Reason: ReasonRequired, Detail: "field is absent"}, true
		}
		return Failure{}, false
	}

	if !rule.Type.Matches(value) {
		return Failure{
			FieldPath: path,
			Reason:    ReasonType,
			Detail:    fmt.Sprintf("expected %s, got %s", rule.Type, value.Kind()),
		}, true
	}

	if rule.Predicate == nil {
		return Failure{}, false
	}
	passed, err := rule.Predicate.Eval(value)
	if err != nil {
		return Failure{FieldPath: path, Reason: ReasonPredicate, Detail: err.Error()}, true
	}
	if !passed {
		return Failure{
			FieldPath: path,
			Reason:    ReasonPredicate,
			Detail:    fmt.Sprintf("predicate %q is false", rule.Predicate.Expression()),
		}, true
	}
	return Failure{}, false
}

// checkWrapper validates the envelope keys of a wrapped payload.
func checkWrapper(integrationID string, payload models.Value, layout models.WrapperLayout) []Failure {
	var failures []Failure

	switch id, ok := payload.Field(layout.TransactionKey); {
	case !ok || id.IsNull():
		failures = append(failures, Failure{FieldPath: layout.TransactionKey, Reason: ReasonRequired, Detail: "field is absent"})
	default:
		if s, isString := id.AsString(); !isString || s == "" {
			failures = append(failures, Failure{FieldPath: layout.TransactionKey, Reason: ReasonType, Detail: "expected a non-empty string"})
		}
	}

	switch ts, ok := payload.Field(layout.TimestampKey); {
	case !ok || ts.IsNull():
		failures = append(failures, Failure{FieldPath: layout.TimestampKey, Reason: ReasonRequired, Detail: "field is absent"})
	default:
		if _, valid := models.ParseTimestamp(ts); !valid {
			failures = append(failures, Failure{FieldPath: layout.TimestampKey, Reason: ReasonType, Detail: "expected a timestamp"})
		}
	}

	content, _ := payload.Field(layout.ContentKey)
	successPath := layout.ContentField(layout.ContentSuccess)
	switch success, ok := content.Field(layout.ContentSuccess); {
	case !ok || success.IsNull():
		failures = append(failures, Failure{FieldPath: successPath, Reason: ReasonRequired, Detail: "field is absent"})
	default:
		if n, isNumber := success.AsNumber(); !isNumber || (n != 0 && n != 1) {
			failures = append(failures, Failure{FieldPath: successPath, Reason: ReasonType, Detail: "expected 0 or 1"})
		}
	}

	if declared, ok := payload.Field(layout.IntegrationKey); ok && !declared.IsNull() {
		if s, _ := declared.AsString(); s != integrationID {
			failures = append(failures, Failure{
				FieldPath: layout.IntegrationKey,
				Reason:    ReasonPredicate,
				Detail:    fmt.Sprintf("wrapper is for integration %s, validated as %s", declared, integrationID),
			})
		}
	}

	return failures
}
