package events

import (
	"context"

	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/models"
)

// LogTransport is a dry run: it logs the envelope and accepts it.
type LogTransport struct {
	logger logger.Logger
}

func NewLogTransport(log logger.Logger) *LogTransport {
	return &LogTransport{logger: log}
}

func (t *LogTransport) Name() string {
	return constants.TransportLog
}

func (t *LogTransport) Send(ctx context.Context, event models.CloudEvent) (Ack, error) {
	if err := ctx.Err(); err != nil {
		return Ack{}, err
	}
	t.logger.InfowCtx(ctx, "Business event (dry run)",
		"event_id", event.ID,
		"event_type", event.Type,
		"source_integration_id", event.Data.SourceIntegrationID,
		"destination_integration_id", event.Data.DestinationIntegrationID,
		"error_type", event.Data.ErrorType,
		"error_summary", event.Data.ErrorSummary,
	)
	return Ack{Status: StatusAccepted, Message: "event " + event.ID + " logged"}, nil
}
