package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"soxguard/internal/config"
	"soxguard/internal/constants"
	"soxguard/internal/logger"
	"soxguard/pkg/health"
	"soxguard/pkg/middleware"
	"soxguard/pkg/ratelimit"
	"soxguard/pkg/tracing"
)

// RouteRegistrar mounts additional API routes behind the rate limiter.
type RouteRegistrar interface {
	RegisterRoutes(router gin.IRouter)
}

// NewRouter builds the gin engine with the ambient middleware chain, the
// health, metrics and swagger endpoints, and the handler's routes. h and
// limiter may be nil.
func NewRouter(h *Handler, registry *health.CheckerRegistry, limiter *ratelimit.Store, cfg *config.Config, log logger.Logger, extra ...RouteRegistrar) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}
	router.Use(middleware.LoggerMiddleware(log))

	router.GET("/health", registry.Handler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if h == nil && len(extra) == 0 {
		return router
	}

	api := router.Group("")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	if h != nil {
		h.RegisterRoutes(api)
	}
	for _, r := range extra {
		r.RegisterRoutes(api)
	}

	return router
}
