// internal/service/discovery_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/discovery"
	"gateway-service/internal/discovery/serial"
	"gateway-service/internal/discovery/tcp"
	"gateway-service/internal/model"
	"gateway-service/internal/utils"
)

// PortScanner lists serial ports and guesses the gateway port
type PortScanner interface {
	ListPorts(ctx context.Context) ([]*model.SerialPortDescriptor, error)
	DetectTargetDevice(ctx context.Context) *model.DetectionResult
}

// Scan types accepted by Scan
const (
	ScanTypeAll    = "all"
	ScanTypeSerial = "serial"
	ScanTypeTCP    = "tcp"
)

// DiscoveryService exposes serial port discovery and endpoint scans.
// It holds no state of its own and is safe for concurrent use.
type DiscoveryService struct {
	ports          PortScanner
	scannerManager *discovery.ScannerManager
	logger         *utils.ServiceLogger
}

// NewDiscoveryService creates a discovery service over the given scanners
func NewDiscoveryService(ports PortScanner, scannerManager *discovery.ScannerManager, logger *zap.Logger) *DiscoveryService {
	return &DiscoveryService{
		ports:          ports,
		scannerManager: scannerManager,
		logger:         utils.NewServiceLogger(logger, "discovery-service"),
	}
}

// NewDefaultDiscoveryService wires the OS serial scanner and a TCP scanner
// over the configured gateway endpoints
func NewDefaultDiscoveryService(cfg *config.Config, logger *zap.Logger) *DiscoveryService {
	markers := append([]string{cfg.Gateway.Device.Manufacturer, cfg.Gateway.Device.Model}, cfg.Discovery.Markers...)
	serialScanner := serial.NewScanner(logger, markers, nil)

	scannerManager := discovery.NewScannerManager(logger)
	scannerManager.RegisterScanner(serialScanner)
	scannerManager.RegisterScanner(tcp.NewScanner(logger, &tcp.Config{
		Targets:     gatewayTargets(cfg.Gateway),
		ConnTimeout: cfg.Discovery.DialTimeout,
	}))

	ds := NewDiscoveryService(serialScanner, scannerManager, logger)
	ds.logger.Info("Discovery scanners initialized",
		zap.Strings("available_scanners", scannerManager.GetAvailableScanners()),
		zap.Strings("markers", serialScanner.Markers()),
	)
	return ds
}

// ListPorts enumerates host serial ports
func (ds *DiscoveryService) ListPorts(ctx context.Context) ([]*model.SerialPortDescriptor, error) {
	ports, err := ds.ports.ListPorts(ctx)
	if err != nil {
		ds.logger.Error("Serial port enumeration failed", zap.Error(err))
		return nil, err
	}
	return ports, nil
}

// DetectTargetDevice never fails; see model.DetectionResult.Error
func (ds *DiscoveryService) DetectTargetDevice(ctx context.Context) *model.DetectionResult {
	result := ds.ports.DetectTargetDevice(ctx)
	ds.logger.Info("Gateway port detection finished",
		zap.Bool("detected", result.Detected),
		zap.String("confidence", result.Confidence),
	)
	return result
}

// Scan runs the scanners selected by scanType
func (ds *DiscoveryService) Scan(ctx context.Context, scanType string) ([]*discovery.DiscoveredDevice, error) {
	ds.logger.Info("Starting device scan", zap.String("type", scanType))

	var devices []*discovery.DiscoveredDevice
	var err error

	switch scanType {
	case "", ScanTypeAll:
		devices, err = ds.scannerManager.ScanAll(ctx)
	case ScanTypeSerial, ScanTypeTCP:
		devices, err = ds.scannerManager.ScanByType(ctx, scanType)
	default:
		return nil, &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("type de scan non supporté: %s (all, serial, tcp)", scanType),
		}
	}

	if errors.Is(err, discovery.ErrScannerNotFound) {
		return nil, &ValidationError{Field: "type", Message: err.Error()}
	}
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	ds.logger.Info("Device scan completed",
		zap.Int("devices_found", len(devices)),
		zap.String("scan_type", scanType),
	)
	return devices, nil
}

// gatewayTargets lists the TCP endpoints the configured gateway may answer on
func gatewayTargets(gw config.GatewayConfig) []tcp.Target {
	var targets []tcp.Target
	seen := make(map[string]bool)
	add := func(target tcp.Target) {
		if target.Address == "" || seen[target.Address] {
			return
		}
		seen[target.Address] = true
		targets = append(targets, target)
	}

	if gw.Device.IP != "" && gw.Device.Port > 0 {
		add(tcp.Target{Name: "Modbus TCP", Address: gw.Device.Address(), Protocol: string(model.DriverModbusTCP)})
	}
	add(tcp.Target{Name: "API HTTP", Address: hostPort(gw.HTTP.BaseURL), Protocol: string(model.DriverHTTP)})
	add(tcp.Target{Name: "Broker MQTT", Address: hostPort(gw.MQTT.BrokerURL), Protocol: string(model.DriverMQTT)})
	return targets
}

// hostPort extracts host:port from a URL, filling in the scheme's default port
func hostPort(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	if u.Port() != "" {
		return u.Host
	}

	defaults := map[string]int{"http": 80, "https": 443, "tcp": 1883, "mqtt": 1883, "ssl": 8883, "tls": 8883, "mqtts": 8883, "ws": 80, "wss": 443}
	port, ok := defaults[u.Scheme]
	if !ok {
		return ""
	}
	return net.JoinHostPort(u.Hostname(), strconv.Itoa(port))
}
