// internal/handler/discovery_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gateway-service/internal/discovery"
	"gateway-service/internal/model"
	"gateway-service/internal/service"
	"gateway-service/internal/utils"
)

// DiscoveryService is the port discovery surface used by the HTTP layer
type DiscoveryService interface {
	ListPorts(ctx context.Context) ([]*model.SerialPortDescriptor, error)
	DetectTargetDevice(ctx context.Context) *model.DetectionResult
	Scan(ctx context.Context, scanType string) ([]*discovery.DiscoveredDevice, error)
}

// DiscoveryHandler handles serial port discovery requests
type DiscoveryHandler struct {
	discoveryService DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ListPorts lists host serial ports
// @Summary List serial ports
// @Description Enumerate serial ports; missing fields are reported as "Non spécifié"
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{count=int,ports=[]model.SerialPortDescriptor}}
// @Failure 500 {object} utils.APIResponse "Serial enumeration unavailable"
// @Router /discovery/ports [get]
func (h *DiscoveryHandler) ListPorts(c *gin.Context) {
	ports, err := h.discoveryService.ListPorts(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list serial ports", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, err.Error(), err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Ports série", gin.H{
		"count": len(ports),
		"ports": ports,
	})
}

// DetectTargetDevice guesses which serial port hosts the gateway
// @Summary Detect the gateway port
// @Description Never fails; check detected and error in the result
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=model.DetectionResult}
// @Router /discovery/detect [get]
func (h *DiscoveryHandler) DetectTargetDevice(c *gin.Context) {
	result := h.discoveryService.DetectTargetDevice(c.Request.Context())
	utils.SuccessResponse(c, http.StatusOK, result.Message, result)
}

// ScanDevices scans for candidate gateway endpoints
// @Summary Scan for gateway endpoints
// @Description Serial ports and reachable TCP endpoints of the configured gateway
// @Tags Discovery
// @Produce json
// @Param type query string false "Scan type" Enums(all, serial, tcp) default(all)
// @Success 200 {object} utils.APIResponse{data=object{devices_found=int,devices=[]discovery.DiscoveredDevice}} "Device scan completed"
// @Failure 400 {object} utils.APIResponse "Unsupported scan type"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/scan [get]
func (h *DiscoveryHandler) ScanDevices(c *gin.Context) {
	scanType := c.DefaultQuery("type", service.ScanTypeAll)

	devices, err := h.discoveryService.Scan(c.Request.Context(), scanType)
	if err != nil {
		status := statusForError(err)
		h.logger.Warn("Failed to scan devices", zap.Error(err), zap.Int("status", status))
		utils.ErrorResponse(c, status, "Failed to scan devices", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device scan completed", gin.H{
		"devices_found": len(devices),
		"devices":       devices,
	})
}
