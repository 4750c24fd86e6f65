// internal/model/gateway.go
package model

import "time"

// Sentinel values used in degraded and normalized records
const (
	Unspecified  = "Non spécifié"
	NotAvailable = "N/A"
	ReadError    = "Erreur de lecture"
)

// DriverKind identifies the concrete driver behind a gateway connection
type DriverKind string

const (
	DriverModbusRTU DriverKind = "modbus-rtu"
	DriverModbusTCP DriverKind = "modbus-tcp"
	DriverMQTT      DriverKind = "mqtt"
	DriverHTTP      DriverKind = "http"
)

// GatewayStatus is the in-memory connection snapshot
type GatewayStatus struct {
	Connected    bool   `json:"connected"`
	Protocol     string `json:"protocol"`
	SerialNumber string `json:"serialNumber"`
	IP           string `json:"ip"`
	Port         int    `json:"port"`
}

// SystemInfo represents gateway system telemetry
type SystemInfo struct {
	SerialNumber    string  `json:"serialNumber"`
	FirmwareVersion string  `json:"firmwareVersion"`
	Uptime          string  `json:"uptime"`
	Temperature     float64 `json:"temperature"`
	MemoryUsage     float64 `json:"memoryUsage"`
	CPUUsage        float64 `json:"cpuUsage"`
	Status          string  `json:"status"`
	Protocol        string  `json:"protocol"`
	LastUpdate      string  `json:"lastUpdate"`
}

// NetworkConfig represents the gateway network settings
type NetworkConfig struct {
	IPAddress  string `json:"ipAddress"`
	SubnetMask string `json:"subnetMask"`
	Gateway    string `json:"gateway"`
	DNS        string `json:"dns"`
	MACAddress string `json:"macAddress"`
	DHCP       bool   `json:"dhcp"`
	Port       int    `json:"port"`
	Protocol   string `json:"protocol"`
	Status     string `json:"status"`
}

// GatewaySettings is the configuration snapshot returned by GetConfig
type GatewaySettings struct {
	DeviceName    string `json:"deviceName"`
	Protocol      string `json:"protocol"`
	Port          int    `json:"port"`
	PollInterval  int    `json:"pollInterval"`
	Timeout       int    `json:"timeout"`
	Retries       int    `json:"retries"`
	AutoReconnect bool   `json:"autoReconnect"`
	DebugMode     bool   `json:"debugMode"`
}

// GatewaySettingsUpdate carries the optional fields of an UpdateConfig call.
// Nil fields are left out of validation.
type GatewaySettingsUpdate struct {
	DeviceName    *string `json:"deviceName,omitempty"`
	Protocol      *string `json:"protocol,omitempty"`
	Port          *int    `json:"port,omitempty"`
	PollInterval  *int    `json:"pollInterval,omitempty"`
	Timeout       *int    `json:"timeout,omitempty"`
	Retries       *int    `json:"retries,omitempty"`
	AutoReconnect *bool   `json:"autoReconnect,omitempty"`
	DebugMode     *bool   `json:"debugMode,omitempty"`
}

// OperationResult is returned by Connect and Disconnect
type OperationResult struct {
	Message  string `json:"message"`
	Protocol string `json:"protocol,omitempty"`
	Warning  string `json:"warning,omitempty"`
}

// ConfigUpdateResult acknowledges an UpdateConfig call
type ConfigUpdateResult struct {
	Message string                 `json:"message"`
	Config  *GatewaySettingsUpdate `json:"config"`
}

// SerialPortDescriptor describes one host serial port
type SerialPortDescriptor struct {
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer"`
	VendorID     string `json:"vendorId"`
	ProductID    string `json:"productId"`
	Description  string `json:"description"`
	SerialNumber string `json:"serialNumber"`
	PnpID        string `json:"pnpId"`
}

// Detection confidence levels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
)

// DetectionResult is the outcome of the target device heuristic
type DetectionResult struct {
	Detected   bool                    `json:"detected"`
	Port       *SerialPortDescriptor   `json:"port,omitempty"`
	Ports      []*SerialPortDescriptor `json:"ports,omitempty"`
	Confidence string                  `json:"confidence,omitempty"`
	Message    string                  `json:"message"`
	Error      bool                    `json:"error,omitempty"`
}

// FallbackSystemInfo returns the degraded record served when telemetry cannot be read
func FallbackSystemInfo(protocol string) *SystemInfo {
	return &SystemInfo{
		SerialNumber:    NotAvailable,
		FirmwareVersion: NotAvailable,
		Uptime:          NotAvailable,
		Status:          ReadError,
		Protocol:        protocol,
		LastUpdate:      time.Now().Format(time.RFC3339),
	}
}

// FallbackNetworkConfig returns the degraded network record
func FallbackNetworkConfig(protocol string) *NetworkConfig {
	return &NetworkConfig{
		IPAddress:  NotAvailable,
		SubnetMask: NotAvailable,
		Gateway:    NotAvailable,
		DNS:        NotAvailable,
		MACAddress: NotAvailable,
		Protocol:   protocol,
		Status:     ReadError,
	}
}
