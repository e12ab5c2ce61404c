package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateValidationRequest(req *ValidationRequest) error {
	if req == nil {
		return &ValidationError{
			Field:   "request",
			Message: "validation request cannot be nil",
		}
	}

	if req.SourceIntegrationID == "" {
		return &ValidationError{
			Field:   "sourceIntegrationId",
			Message: "source integration ID is required",
		}
	}

	if req.DestinationIntegrationID == "" {
		return &ValidationError{
			Field:   "destinationIntegrationId",
			Message: "destination integration ID is required",
		}
	}

	if req.SourcePayload.IsNull() {
		return &ValidationError{
			Field:   "sourcePayload",
			Message: "source payload cannot be null",
		}
	}

	if req.DestinationPayload.IsNull() {
		return &ValidationError{
			Field:   "destinationPayload",
			Message: "destination payload cannot be null",
		}
	}

	return nil
}
