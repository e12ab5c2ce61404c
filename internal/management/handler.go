package management

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"soxguard/internal/logger"
	"soxguard/internal/rules"
	"soxguard/pkg/errors"
)

// HeaderChangedBy names the operator recorded on imported rule sets.
const HeaderChangedBy = "X-Changed-By"

type RuleImporter interface {
	ImportRules(ctx context.Context, defs rules.Definitions, changedBy string) (ImportResult, error)
	ExportRules(ctx context.Context) (rules.Definitions, error)
}

type Handler struct {
	service RuleImporter
	logger  logger.Logger
}

func NewHandler(service RuleImporter, log logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")
	{
		v1.PUT("/rules", h.ImportRules)
		v1.GET("/rules/export", h.ExportRules)
	}
}

func (h *Handler) handleError(c *gin.Context, err error) {
	h.logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

// ImportRules godoc
// @Summary      Import a rule set
// @Description  Compile and store a complete rule set, replacing the current one
// @Tags         rules
// @Accept       json
// @Produce      json
// @Param        X-Changed-By  header    string             false  "Operator recorded on the update"
// @Param        rules         body      rules.Definitions  true   "Rule set"
// @Success      200           {object}  ImportResult
// @Failure      400           {object}  errors.ErrorResponse
// @Failure      422           {object}  errors.ErrorResponse
// @Failure      500           {object}  errors.ErrorResponse
// @Router       /rules [put]
func (h *Handler) ImportRules(c *gin.Context) {
	var defs rules.Definitions
	if err := c.ShouldBindJSON(&defs); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	result, err := h.service.ImportRules(c.Request.Context(), defs, c.GetHeader(HeaderChangedBy))
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExportRules godoc
// @Summary      Export the rule set
// @Description  Return the stored rule set as declared
// @Tags         rules
// @Produce      json
// @Success      200  {object}  rules.Definitions
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /rules/export [get]
func (h *Handler) ExportRules(c *gin.Context) {
	defs, err := h.service.ExportRules(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, defs)
}
