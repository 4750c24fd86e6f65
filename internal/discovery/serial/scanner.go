// 📁 internal/discovery/serial/scanner.go - Serial Scanner Implementation
package serial

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"

	"gateway-service/internal/discovery"
	"gateway-service/internal/model"
)

// ErrEnumeratorUnavailable means the OS serial port driver could not be queried
var ErrEnumeratorUnavailable = errors.New("énumération des ports série impossible (go.bug.st/serial)")

// PortLister enumerates the host serial ports
type PortLister func() ([]*enumerator.PortDetails, error)

// DefaultMarkers are always searched for, in addition to configured ones
var DefaultMarkers = []string{"zigbee", "gateway"}

// Scanner implements serial port discovery and target detection
type Scanner struct {
	listPorts PortLister
	vendors   *VendorDatabase
	markers   []string
	logger    *zap.Logger
}

// NewScanner creates a serial scanner matching the given markers.
// A nil lister uses the OS enumerator.
func NewScanner(logger *zap.Logger, markers []string, lister PortLister) *Scanner {
	if lister == nil {
		lister = enumerator.GetDetailedPortsList
	}

	normalized := make([]string, 0, len(markers)+len(DefaultMarkers))
	candidates := append(append([]string{}, markers...), DefaultMarkers...)
	for _, marker := range candidates {
		marker = strings.ToLower(strings.TrimSpace(marker))
		if marker != "" && !containsString(normalized, marker) {
			normalized = append(normalized, marker)
		}
	}

	return &Scanner{
		listPorts: lister,
		vendors:   NewVendorDatabase(),
		markers:   normalized,
		logger:    logger.With(zap.String("scanner", "serial")),
	}
}

// Markers returns the lowercased markers used by the detection heuristic
func (s *Scanner) Markers() []string {
	return s.markers
}

// ListPorts enumerates serial ports. Missing fields are reported as
// model.Unspecified; no ports is an empty slice, not an error.
func (s *Scanner) ListPorts(ctx context.Context) ([]*model.SerialPortDescriptor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details, err := s.listPorts()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnumeratorUnavailable, err)
	}

	ports := make([]*model.SerialPortDescriptor, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		ports = append(ports, s.describe(d))
	}

	s.logger.Debug("Serial ports enumerated", zap.Int("count", len(ports)))
	return ports, nil
}

func (s *Scanner) describe(d *enumerator.PortDetails) *model.SerialPortDescriptor {
	port := &model.SerialPortDescriptor{
		Path:         d.Name,
		Manufacturer: model.Unspecified,
		VendorID:     orUnspecified(strings.ToUpper(d.VID)),
		ProductID:    orUnspecified(strings.ToUpper(d.PID)),
		Description:  orUnspecified(d.Product),
		SerialNumber: orUnspecified(d.SerialNumber),
		PnpID:        model.Unspecified,
	}

	if !d.IsUSB || d.VID == "" {
		return port
	}

	vendor, product := s.vendors.Lookup(d.VID, d.PID)
	if vendor != "" {
		port.Manufacturer = vendor
	}
	if d.Product == "" && product != "" {
		port.Description = product
	}

	pnp := fmt.Sprintf(`USB\VID_%s&PID_%s`, strings.ToUpper(d.VID), strings.ToUpper(d.PID))
	if d.SerialNumber != "" {
		pnp += `\` + d.SerialNumber
	}
	port.PnpID = pnp
	return port
}

// DetectTargetDevice guesses which port hosts the gateway. It never fails:
// enumeration errors and panics become a result with Error set.
func (s *Scanner) DetectTargetDevice(ctx context.Context) (result *model.DetectionResult) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Detection panicked", zap.Any("panic", r))
			result = detectionFailure(fmt.Errorf("%v", r))
		}
	}()

	ports, err := s.ListPorts(ctx)
	if err != nil {
		s.logger.Warn("Detection failed", zap.Error(err))
		return detectionFailure(err)
	}

	if len(ports) == 0 {
		return &model.DetectionResult{
			Detected: false,
			Message:  "Aucun port série détecté. Vérifiez que la passerelle est branchée et que son pilote USB est installé.",
		}
	}

	for _, port := range ports {
		if marker, ok := s.match(port); ok {
			s.logger.Info("Gateway port detected",
				zap.String("path", port.Path),
				zap.String("marker", marker),
			)
			return &model.DetectionResult{
				Detected:   true,
				Port:       port,
				Confidence: model.ConfidenceHigh,
				Message:    fmt.Sprintf("Passerelle détectée sur %s", port.Path),
			}
		}
	}

	if len(ports) == 1 {
		return &model.DetectionResult{
			Detected:   true,
			Port:       ports[0],
			Confidence: model.ConfidenceMedium,
			Message:    fmt.Sprintf("Un seul port série disponible: %s", ports[0].Path),
		}
	}

	return &model.DetectionResult{
		Detected: false,
		Ports:    ports,
		Message:  fmt.Sprintf("%d ports série trouvés, sélection manuelle requise", len(ports)),
	}
}

// match reports the first marker found in the port's identifying fields
func (s *Scanner) match(port *model.SerialPortDescriptor) (string, bool) {
	fields := []string{port.Manufacturer, port.Description, port.VendorID, port.ProductID}
	for _, field := range fields {
		if field == model.Unspecified {
			continue
		}
		field = strings.ToLower(field)
		for _, marker := range s.markers {
			if strings.Contains(field, marker) {
				return marker, true
			}
		}
	}
	return "", false
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "serial"
}

// IsAvailable checks if serial scanning is available
func (s *Scanner) IsAvailable() bool {
	return true
}

// Scan reports every serial port as a candidate Modbus RTU endpoint
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	ports, err := s.ListPorts(ctx)
	if err != nil {
		return nil, err
	}

	devices := make([]*discovery.DiscoveredDevice, 0, len(ports))
	for _, port := range ports {
		confidence := 0.3
		if _, ok := s.match(port); ok {
			confidence = 0.9
		}
		devices = append(devices, &discovery.DiscoveredDevice{
			Scanner:      s.GetScannerType(),
			Address:      port.Path,
			Protocol:     string(model.DriverModbusRTU),
			Manufacturer: port.Manufacturer,
			Description:  port.Description,
			Details: map[string]interface{}{
				"vendorId":     port.VendorID,
				"productId":    port.ProductID,
				"serialNumber": port.SerialNumber,
				"pnpId":        port.PnpID,
			},
			Confidence: confidence,
		})
	}
	return devices, nil
}

func detectionFailure(err error) *model.DetectionResult {
	return &model.DetectionResult{
		Detected: false,
		Error:    true,
		Message:  fmt.Sprintf("Échec de la détection: %v", err),
	}
}

func orUnspecified(value string) string {
	if strings.TrimSpace(value) == "" {
		return model.Unspecified
	}
	return value
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
