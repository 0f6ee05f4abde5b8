package handlers

import (
	"context"

	"mobiremote/internal/logger"
	"mobiremote/internal/metrics"
	"mobiremote/internal/models"
	"mobiremote/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// CommandSubmitter hands commands to the control loop.
type CommandSubmitter interface {
	Submit(ctx context.Context, cmd models.Command) error
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	commands CommandSubmitter
	log      *logger.Logger

	collector *metrics.Collector
	gatherer  prometheus.Gatherer
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, commands CommandSubmitter, log *logger.Logger) *Handler {
	return &Handler{services: services, commands: commands, log: log}
}

// WithMetrics enables request instrumentation and the /metrics endpoint.
func (h *Handler) WithMetrics(c *metrics.Collector, g prometheus.Gatherer) *Handler {
	h.collector = c
	h.gatherer = g
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if h.collector != nil {
		router.Use(metrics.GinMiddleware(h.collector))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	if h.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Snapshot stream, same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", h.register)
		auth.POST("/token", h.issueToken)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authenticate)
	{
		h.registerApplianceRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerApplianceRoutes(api *gin.RouterGroup) {
	appliance := api.Group("/appliance")
	{
		appliance.GET("/status", h.getStatus)
		// Body example: {"command":"target","payload":"8"}
		appliance.POST("/commands", h.postCommand)

		broker := appliance.Group("/broker", requireAdmin)
		broker.PUT("", h.putBroker)
		broker.DELETE("", h.deleteBroker)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
