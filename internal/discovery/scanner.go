// 📁 internal/discovery/scanner.go - Main Scanner Interface
package discovery

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// DeviceScanner interface - Strategy Pattern
type DeviceScanner interface {
	Scan(ctx context.Context) ([]*DiscoveredDevice, error)
	GetScannerType() string
	IsAvailable() bool
}

// DiscoveredDevice represents a candidate endpoint for the gateway
type DiscoveredDevice struct {
	Scanner      string                 `json:"scanner"`
	Address      string                 `json:"address"`
	Protocol     string                 `json:"protocol,omitempty"`
	Manufacturer string                 `json:"manufacturer,omitempty"`
	Description  string                 `json:"description,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	Confidence   float64                `json:"confidence"` // 0.0-1.0
}

// ScannerManager manages all device scanners - Facade Pattern.
// Scanners are registered at startup, before any scan runs.
type ScannerManager struct {
	scanners map[string]DeviceScanner
	logger   *zap.Logger
}

// NewScannerManager creates a new scanner manager
func NewScannerManager(logger *zap.Logger) *ScannerManager {
	return &ScannerManager{
		scanners: make(map[string]DeviceScanner),
		logger:   logger,
	}
}

// RegisterScanner registers a device scanner
func (sm *ScannerManager) RegisterScanner(scanner DeviceScanner) {
	scannerType := scanner.GetScannerType()
	sm.scanners[scannerType] = scanner
	sm.logger.Info("Scanner registered", zap.String("type", scannerType))
}

// ScanAll runs every available scanner. A failing scanner is logged and
// skipped so the others still report.
func (sm *ScannerManager) ScanAll(ctx context.Context) ([]*DiscoveredDevice, error) {
	allDevices := []*DiscoveredDevice{}

	for _, scannerType := range sm.types() {
		scanner := sm.scanners[scannerType]
		if !scanner.IsAvailable() {
			sm.logger.Debug("Scanner not available, skipping", zap.String("type", scannerType))
			continue
		}

		devices, err := scanner.Scan(ctx)
		if err != nil {
			sm.logger.Error("Scanner failed", zap.String("type", scannerType), zap.Error(err))
			continue
		}

		allDevices = append(allDevices, devices...)
		sm.logger.Info("Scanner completed",
			zap.String("type", scannerType),
			zap.Int("devices_found", len(devices)),
		)
	}

	return allDevices, ctx.Err()
}

// ScanByType scans specific scanner type
func (sm *ScannerManager) ScanByType(ctx context.Context, scannerType string) ([]*DiscoveredDevice, error) {
	scanner, exists := sm.scanners[scannerType]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrScannerNotFound, scannerType)
	}

	if !scanner.IsAvailable() {
		return nil, fmt.Errorf("scanner not available: %s", scannerType)
	}

	return scanner.Scan(ctx)
}

// GetAvailableScanners returns list of available scanner types
func (sm *ScannerManager) GetAvailableScanners() []string {
	available := []string{}
	for _, scannerType := range sm.types() {
		if sm.scanners[scannerType].IsAvailable() {
			available = append(available, scannerType)
		}
	}
	return available
}

func (sm *ScannerManager) types() []string {
	types := make([]string, 0, len(sm.scanners))
	for scannerType := range sm.scanners {
		types = append(types, scannerType)
	}
	sort.Strings(types)
	return types
}
