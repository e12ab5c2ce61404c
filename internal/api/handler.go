package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"soxguard/internal/events"
	"soxguard/internal/logger"
	"soxguard/internal/rules"
	"soxguard/internal/validation"
	apperrors "soxguard/pkg/errors"
	"soxguard/pkg/logging"
	"soxguard/pkg/models"
)

type Validator interface {
	ValidateIntegration(ctx context.Context, req validation.IntegrationRequest) (validation.ValidationResult, error)
	ValidateIntegrationPair(ctx context.Context, req validation.PairRequest) (validation.PairValidationResult, error)
}

type Emitter interface {
	CreateBusinessEvent(ctx context.Context, req events.BusinessEventRequest) events.IngestResult
}

type RuleCatalog interface {
	Snapshot() *rules.Snapshot
	ReloadRules(ctx context.Context, skipJitter ...bool) error
}

// EventResponse is the body of POST /api/v1/events.
type EventResponse struct {
	Validation validation.PairValidationResult `json:"validation"`
	Ingest     events.IngestResult             `json:"ingest"`
}

type RuleSetResponse struct {
	Integrations int       `json:"integrations"`
	Mappings     int       `json:"mappings"`
	LoadedAt     time.Time `json:"loadedAt"`
}

type IntegrationsResponse struct {
	RuleSetResponse
	IntegrationIDs []string `json:"integrationIds"`
}

type Handler struct {
	validator Validator
	emitter   Emitter
	catalog   RuleCatalog
	logger    logger.Logger
}

// NewHandler wires the API. A nil emitter disables the events endpoint.
func NewHandler(validator Validator, emitter Emitter, catalog RuleCatalog, log logger.Logger) *Handler {
	return &Handler{
		validator: validator,
		emitter:   emitter,
		catalog:   catalog,
		logger:    log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		validate := v1.Group("/validate")
		{
			validate.POST("/integration", h.ValidateIntegration)
			validate.POST("/pair", h.ValidatePair)
		}

		v1.POST("/events", h.CreateEvent)

		v1.GET("/integrations", h.ListIntegrations)
		v1.GET("/integrations/:id/rules", h.GetIntegrationRules)
		v1.POST("/rules/reload", h.ReloadRules)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	} else {
		h.logger.DebugwCtx(c.Request.Context(), "Request rejected", "error", err, "path", c.Request.URL.Path)
	}
	c.JSON(status, apperrors.ToErrorResponse(err))
}

func badRequest(c *gin.Context, err error) {
	appErr := apperrors.ErrValidation.WithMessage(err.Error()).WithCause(err)
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		appErr = appErr.WithDetail("field", verr.Field)
	}
	c.JSON(http.StatusBadRequest, apperrors.ToErrorResponse(appErr))
}

// ValidateIntegration godoc
// @Summary      Validate one integration payload
// @Description  Check a payload against the rules of one integration
// @Tags         validation
// @Accept       json
// @Produce      json
// @Param        request  body      validation.IntegrationRequest  true  "Integration payload"
// @Success      200      {object}  validation.ValidationResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /validate/integration [post]
func (h *Handler) ValidateIntegration(c *gin.Context) {
	var req validation.IntegrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.IntegrationID == "" {
		badRequest(c, &models.ValidationError{Field: "integrationId", Message: "integration ID is required"})
		return
	}

	result, err := h.validator.ValidateIntegration(c.Request.Context(), req)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ValidatePair godoc
// @Summary      Validate an integration pair
// @Description  Validate both payloads and compare their mapped fields
// @Tags         validation
// @Accept       json
// @Produce      json
// @Param        request  body      models.ValidationRequest  true  "Pair validation request"
// @Success      200      {object}  validation.PairValidationResult
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Router       /validate/pair [post]
func (h *Handler) ValidatePair(c *gin.Context) {
	var req models.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := models.ValidateValidationRequest(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := logging.WithIntegrationPair(c.Request.Context(), req.SourceIntegrationID, req.DestinationIntegrationID)
	result, err := h.validator.ValidateIntegrationPair(ctx, validation.PairRequestFrom(req))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateEvent validates the pair and reports it as a business event. The
// response carries both results; 502 means the transport failed.
//
// @Summary      Validate a pair and emit a business event
// @Description  Validate both payloads and send the result as a CloudEvent
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request  body      models.ValidationRequest  true  "Pair validation request"
// @Success      200      {object}  EventResponse
// @Failure      400      {object}  errors.ErrorResponse
// @Failure      404      {object}  errors.ErrorResponse
// @Failure      502      {object}  EventResponse
// @Failure      503      {object}  errors.ErrorResponse
// @Router       /events [post]
func (h *Handler) CreateEvent(c *gin.Context) {
	if h.emitter == nil {
		h.handleError(c, apperrors.ErrServiceUnavailable.WithMessage("business event ingestion is not configured"))
		return
	}

	var req models.ValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := models.ValidateValidationRequest(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx := logging.WithIntegrationPair(c.Request.Context(), req.SourceIntegrationID, req.DestinationIntegrationID)
	result, err := h.validator.ValidateIntegrationPair(ctx, validation.PairRequestFrom(req))
	if err != nil {
		h.handleError(c, err)
		return
	}

	ingest := h.emitter.CreateBusinessEvent(ctx, events.BusinessEventRequestFrom(&req, result))
	status := http.StatusOK
	if !ingest.Success {
		status = http.StatusBadGateway
	}
	c.JSON(status, EventResponse{Validation: result, Ingest: ingest})
}

// ListIntegrations godoc
// @Summary      List integrations
// @Description  List the integrations of the active rule set
// @Tags         rules
// @Produce      json
// @Success      200  {object}  IntegrationsResponse
// @Router       /integrations [get]
func (h *Handler) ListIntegrations(c *gin.Context) {
	snap := h.catalog.Snapshot()
	c.JSON(http.StatusOK, IntegrationsResponse{
		RuleSetResponse: ruleSetResponse(snap),
		IntegrationIDs:  snap.IntegrationIDs(),
	})
}

// GetIntegrationRules godoc
// @Summary      Get integration rules
// @Description  Get the declared rules of one integration
// @Tags         rules
// @Produce      json
// @Param        id   path      string  true  "Integration ID"
// @Success      200  {object}  rules.IntegrationDefinition
// @Failure      404  {object}  errors.ErrorResponse
// @Router       /integrations/{id}/rules [get]
func (h *Handler) GetIntegrationRules(c *gin.Context) {
	id := c.Param("id")
	def, ok := h.catalog.Snapshot().Definition(id)
	if !ok {
		h.handleError(c, apperrors.ErrUnknownIntegration.
			WithMessage("integration has no configured rules").
			WithDetail("integration_id", id))
		return
	}
	c.JSON(http.StatusOK, def)
}

// ReloadRules godoc
// @Summary      Reload rules
// @Description  Reload the rule set from its source without jitter
// @Tags         rules
// @Produce      json
// @Success      200  {object}  RuleSetResponse
// @Failure      422  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /rules/reload [post]
func (h *Handler) ReloadRules(c *gin.Context) {
	if err := h.catalog.ReloadRules(c.Request.Context(), true); err != nil {
		if !errors.Is(err, apperrors.ErrRuleCompilation) {
			err = apperrors.ErrServiceUnavailable.WithMessage("rule reload failed").WithCause(err)
		}
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, ruleSetResponse(h.catalog.Snapshot()))
}

func ruleSetResponse(snap *rules.Snapshot) RuleSetResponse {
	integrations, mappings := snap.Counts()
	return RuleSetResponse{
		Integrations: integrations,
		Mappings:     mappings,
		LoadedAt:     snap.LoadedAt(),
	}
}
