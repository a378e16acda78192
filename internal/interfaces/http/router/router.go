package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/infrastructure/logger"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// New builds the status server engine: request logging, health and metrics
// endpoints, and every registrar mounted under /api/v1.
func New(log *zap.Logger, registry *prometheus.Registry, registrars ...RouteRegistrar) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(logger.GinMiddleware(log.Named("http")), gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := engine.Group("/api/v1")
	for _, r := range registrars {
		r.RegisterRoutes(api)
	}

	return engine
}
