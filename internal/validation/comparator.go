package validation

import (
	"context"

	"soxguard/internal/rules"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/models"
)

func (v *Validator) mappingFor(ctx context.Context, sourceID, destinationID string) ([]rules.FieldMapping, error) {
	mapping, err := v.store.GetMapping(sourceID, destinationID)
	if err == nil {
		return mapping, nil
	}
	if apperrors.IsUnknownIntegration(err) && v.policy == PolicyPermissive {
		v.logger.DebugwCtx(ctx, "No mapping configured, skipping comparison",
			"source_integration_id", sourceID,
			"destination_integration_id", destinationID,
		)
		return nil, nil
	}
	return nil, err
}

// CompareMappings compares the unwrapped contents of both payloads using the
// pair's field mappings.
func (v *Validator) CompareMappings(ctx context.Context, req PairRequest) (MappingComparison, error) {
	mapping, err := v.mappingFor(ctx, req.SourceIntegrationID, req.DestinationIntegrationID)
	if err != nil {
		return MappingComparison{}, err
	}
	return compareMappings(mapping, models.UnwrapContent(req.SourcePayload), models.UnwrapContent(req.DestinationPayload)), nil
}

// compareMappings resolves every mapping entry on both contents in declared
// order. Absence on both sides is only reported for required entries.
func compareMappings(mapping []rules.FieldMapping, source, destination models.Value) MappingComparison {
	comparison := MappingComparison{
		MissingSource:      make([]string, 0),
		MissingDestination: make([]string, 0),
		Mismatches:         make([]Mismatch, 0),
	}
	seenSource := make(map[string]bool)
	seenDestination := make(map[string]bool)

	addMissing := func(list *[]string, seen map[string]bool, path string) {
		if seen[path] {
			return
		}
		seen[path] = true
		*list = append(*list, path)
	}

	for _, fm := range mapping {
		srcPath := fm.SourcePath.String()
		dstPath := fm.DestinationPath.String()

		srcValue, srcOK := source.Lookup(fm.SourcePath)
		dstValue, dstOK := destination.Lookup(fm.DestinationPath)
		srcPresent := srcOK && !srcValue.IsNull()
		dstPresent := dstOK && !dstValue.IsNull()

		switch {
		case !srcPresent && !dstPresent:
			if fm.Required {
				addMissing(&comparison.MissingSource, seenSource, srcPath)
				addMissing(&comparison.MissingDestination, seenDestination, dstPath)
			}
		case !srcPresent:
			addMissing(&comparison.MissingSource, seenSource, srcPath)
		case !dstPresent:
			addMissing(&comparison.MissingDestination, seenDestination, dstPath)
		default:
			equal, err := fm.Compare.Equal(srcValue, dstValue)
			if err == nil && equal {
				continue
			}
			m := Mismatch{
				FieldPath:            srcPath,
				DestinationFieldPath: dstPath,
				SourceValue:          srcValue,
				DestinationValue:     dstValue,
			}
			if err != nil {
				m.Detail = err.Error()
			}
			comparison.Mismatches = append(comparison.Mismatches, m)
		}
	}

	return comparison
}
