// internal/handler/health_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/model"
	"gateway-service/internal/utils"
)

// StatusProvider reports the gateway connection state
type StatusProvider interface {
	GetStatus() *model.GatewayStatus
}

// HealthHandler handles health check requests
type HealthHandler struct {
	gateway   StatusProvider
	config    *config.Config
	startedAt time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gateway StatusProvider, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		gateway:   gateway,
		config:    config,
		startedAt: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck performs general health check
// @Summary Health check
// @Description Service health, including the gateway connection state. A disconnected gateway does not make the service unhealthy.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := h.gateway.GetStatus()

	gatewayCheck := CheckResult{
		Status:  "connected",
		Message: "Passerelle connectée",
		Data: map[string]interface{}{
			"protocol":      status.Protocol,
			"serial_number": status.SerialNumber,
			"ip":            status.IP,
			"port":          status.Port,
		},
	}
	if !status.Connected {
		gatewayCheck.Status = "disconnected"
		gatewayCheck.Message = "Passerelle non connectée"
	}

	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
		Checks: map[string]CheckResult{
			"gateway": gatewayCheck,
		},
	}

	h.logger.Debug("Health check", zap.Bool("gateway_connected", status.Connected))
	c.JSON(http.StatusOK, health)
}

// ReadinessCheck for Kubernetes readiness check
// @Summary Readiness check
// @Description The service accepts traffic whether or not the gateway is connected
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,gateway_connected=bool,timestamp=string} "Service is ready"
// @Router /ready [get]
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "ready",
		"gateway_connected": h.gateway.GetStatus().Connected,
		"timestamp":         time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness check
// @Summary Liveness check
// @Description Check if service is alive
// @Tags Health
// @Produce json
// @Success 200 {object} object{status=string,timestamp=string} "Service is alive"
// @Router /live [get]
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
