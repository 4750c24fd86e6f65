// internal/routes/routes.go
package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/handler"
	"gateway-service/internal/middleware"
	"gateway-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config           *config.Config
	logger           *zap.Logger
	gatewayHandler   *handler.GatewayHandler
	discoveryHandler *handler.DiscoveryHandler
	healthHandler    *handler.HealthHandler
	wsHandler        *handler.WebSocketHandler
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	gateway handler.GatewayService,
	discoveryService handler.DiscoveryService,
	wsHandler *handler.WebSocketHandler,
) *Router {
	return &Router{
		config:           config,
		logger:           logger,
		gatewayHandler:   handler.NewGatewayHandler(gateway, logger),
		discoveryHandler: handler.NewDiscoveryHandler(discoveryService, logger),
		healthHandler:    handler.NewHealthHandler(gateway, config, logger),
		wsHandler:        wsHandler,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	switch {
	case r.config.App.Environment == "test":
		gin.SetMode(gin.TestMode)
	case r.config.IsDebugEnabled():
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	// Request ID first so recovery and access logs carry it
	router.Use(middleware.RequestIDMiddleware())

	// Recovery middleware
	router.Use(middleware.RecoveryMiddleware(r.logger))

	// Logging middleware
	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger, "/health", "/ready", "/live"))

	// CORS middleware
	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	// Health check routes
	r.addHealthRoutes(router)

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	r.addGatewayRoutes(apiV1)
	r.addDiscoveryRoutes(apiV1)

	// WebSocket routes
	if r.wsHandler != nil {
		r.addWebSocketRoutes(router)
	}

	// Documentation routes
	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine) {
	health := router.Group("")
	{
		health.GET("/health", r.healthHandler.HealthCheck)
		health.GET("/ready", r.healthHandler.ReadinessCheck)
		health.GET("/live", r.healthHandler.LivenessCheck)
	}
}

// addGatewayRoutes sets up gateway connection routes
func (r *Router) addGatewayRoutes(api *gin.RouterGroup) {
	gateway := api.Group("/gateway")
	{
		gateway.POST("/connect", r.gatewayHandler.Connect)
		gateway.POST("/disconnect", r.gatewayHandler.Disconnect)
		gateway.GET("/status", r.gatewayHandler.GetStatus)
		gateway.GET("/system-info", r.gatewayHandler.GetSystemInfo)
		gateway.GET("/network-config", r.gatewayHandler.GetNetworkConfig)
		gateway.GET("/config", r.gatewayHandler.GetConfig)
		gateway.PUT("/config", r.gatewayHandler.UpdateConfig)
	}
}

// addDiscoveryRoutes sets up serial port discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup) {
	discovery := api.Group("/discovery")
	{
		discovery.GET("/ports", r.discoveryHandler.ListPorts)
		discovery.GET("/detect", r.discoveryHandler.DetectTargetDevice)
		discovery.GET("/scan", r.discoveryHandler.ScanDevices)
	}
}

// addWebSocketRoutes sets up WebSocket routes
func (r *Router) addWebSocketRoutes(router *gin.Engine) {
	ws := router.Group("/ws")
	{
		ws.GET("/events", r.wsHandler.HandleEventConnection)
		ws.GET("/stats", r.wsHandler.GetConnectionStats)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	// Swagger redirect for convenience
	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
