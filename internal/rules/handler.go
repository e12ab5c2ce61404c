package rules

import (
	"context"
	"encoding/json"

	"soxguard/internal/broker"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/models"
)

type Reloader interface {
	ReloadRules(ctx context.Context, skipJitter ...bool) error
}

// Handler reloads the rule snapshot when a rule update event arrives on the
// rule update topic.
type Handler struct {
	reloader Reloader
	logger   logger.Logger
}

func NewHandler(reloader Reloader, log logger.Logger) *Handler {
	return &Handler{
		reloader: reloader,
		logger:   log,
	}
}

func (h *Handler) HandleRuleUpdateEvent(ctx context.Context, msg broker.Message) error {
	var event models.RuleUpdateEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to unmarshal rule update event",
			"error", err,
			"key", msg.Key,
		)
		return broker.NewDeadLetterError(constants.DLQReasonDecode, err)
	}

	switch event.EventType {
	case models.EventTypeIntegrationRulesUpdated, models.EventTypeFieldMappingUpdated:
	case "":
		h.logger.WarnwCtx(ctx, "Rule update event missing event_type", "key", msg.Key)
		return nil
	default:
		return nil
	}

	h.logger.InfowCtx(ctx, "Received rule update event",
		"event_type", event.EventType,
		"action", event.Action,
		"integration_id", event.IntegrationID,
		"changed_by", event.ChangedBy,
	)

	if err := h.reloader.ReloadRules(ctx); err != nil {
		h.logger.ErrorwCtx(ctx, "Failed to reload rules after update event", "error", err)
		return err
	}

	h.logger.InfowCtx(ctx, "Rules reloaded after update event", "action", event.Action)
	return nil
}
