// internal/handler/gateway_handler.go
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gateway-service/internal/model"
	"gateway-service/internal/protocol"
	"gateway-service/internal/service"
	"gateway-service/internal/utils"
)

// GatewayService is the connection manager as seen by the HTTP layer
type GatewayService interface {
	Connect(ctx context.Context) (*model.OperationResult, error)
	Disconnect(ctx context.Context) (*model.OperationResult, error)
	GetStatus() *model.GatewayStatus
	GetSystemInfo(ctx context.Context) (*model.SystemInfo, error)
	GetNetworkConfig(ctx context.Context) (*model.NetworkConfig, error)
	GetConfig(ctx context.Context) (*model.GatewaySettings, error)
	UpdateConfig(ctx context.Context, update *model.GatewaySettingsUpdate) (*model.ConfigUpdateResult, error)
}

// GatewayHandler handles gateway connection requests
type GatewayHandler struct {
	gateway GatewayService
	logger  *utils.ServiceLogger
}

// NewGatewayHandler creates a new gateway handler
func NewGatewayHandler(gateway GatewayService, logger *zap.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway: gateway,
		logger:  utils.NewServiceLogger(logger, "gateway-handler"),
	}
}

// Connect opens the connection to the gateway
// @Summary Connect to the gateway
// @Description Open the connection using the configured protocol, retrying with backoff
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.OperationResult} "Connected"
// @Failure 502 {object} utils.APIResponse "Gateway unreachable"
// @Failure 504 {object} utils.APIResponse "Connection timed out"
// @Router /gateway/connect [post]
func (h *GatewayHandler) Connect(c *gin.Context) {
	result, err := h.gateway.Connect(c.Request.Context())
	if err != nil {
		h.respondError(c, "Connection failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}

// Disconnect closes the connection to the gateway
// @Summary Disconnect from the gateway
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.OperationResult} "Disconnected"
// @Failure 500 {object} utils.APIResponse "Transport close failed"
// @Router /gateway/disconnect [post]
func (h *GatewayHandler) Disconnect(c *gin.Context) {
	result, err := h.gateway.Disconnect(c.Request.Context())
	if err != nil {
		h.respondError(c, "Disconnect failed", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}

// GetStatus returns the in-memory connection state
// @Summary Gateway connection status
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.GatewayStatus}
// @Router /gateway/status [get]
func (h *GatewayHandler) GetStatus(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Statut de la passerelle", h.gateway.GetStatus())
}

// GetSystemInfo reads system information from the gateway
// @Summary Gateway system information
// @Description Degrades to fallback values when the device cannot be read
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.SystemInfo}
// @Failure 409 {object} utils.APIResponse "Gateway not connected"
// @Failure 504 {object} utils.APIResponse "MQTT request timed out"
// @Router /gateway/system-info [get]
func (h *GatewayHandler) GetSystemInfo(c *gin.Context) {
	info, err := h.gateway.GetSystemInfo(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to read system information", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Informations système", info)
}

// GetNetworkConfig reads the network configuration of the gateway
// @Summary Gateway network configuration
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.NetworkConfig}
// @Failure 409 {object} utils.APIResponse "Gateway not connected"
// @Failure 504 {object} utils.APIResponse "MQTT request timed out"
// @Router /gateway/network-config [get]
func (h *GatewayHandler) GetNetworkConfig(c *gin.Context) {
	network, err := h.gateway.GetNetworkConfig(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to read network configuration", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Configuration réseau", network)
}

// GetConfig returns the gateway settings
// @Summary Gateway settings
// @Tags Gateway
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.GatewaySettings}
// @Router /gateway/config [get]
func (h *GatewayHandler) GetConfig(c *gin.Context) {
	settings, err := h.gateway.GetConfig(c.Request.Context())
	if err != nil {
		h.respondError(c, "Failed to read configuration", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Configuration de la passerelle", settings)
}

// UpdateConfig validates and acknowledges a settings update
// @Summary Update gateway settings
// @Description Only present fields are validated; nothing is written to the device
// @Tags Gateway
// @Accept json
// @Produce json
// @Param request body model.GatewaySettingsUpdate true "Settings update"
// @Success 200 {object} utils.APIResponse{data=model.ConfigUpdateResult}
// @Failure 400 {object} utils.APIResponse "Invalid value"
// @Router /gateway/config [put]
func (h *GatewayHandler) UpdateConfig(c *gin.Context) {
	var update model.GatewaySettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.gateway.UpdateConfig(c.Request.Context(), &update)
	if err != nil {
		h.respondError(c, "Invalid configuration", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}

func (h *GatewayHandler) respondError(c *gin.Context, action string, err error) {
	status := statusForError(err)
	logger := utils.LoggerWithRequestID(h.logger.Logger, c.GetString("request_id"))
	if status >= http.StatusInternalServerError {
		utils.LogError(logger, action, err, zap.Int("status", status))
	} else {
		logger.Warn(action, zap.Error(err), zap.Int("status", status))
	}
	utils.ErrorResponse(c, status, err.Error(), err)
}

// statusForError maps service and driver errors to HTTP status codes
func statusForError(err error) int {
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotConnected):
		return http.StatusConflict
	case errors.Is(err, protocol.ErrConnectTimeout),
		errors.Is(err, protocol.ErrRequestTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, protocol.ErrConnectFailed),
		errors.Is(err, protocol.ErrInvalidResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
