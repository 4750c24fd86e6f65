// internal/protocol/protocol.go
package protocol

import (
	"context"

	"gateway-service/internal/model"
)

// GatewayDriver is an open (or openable) link to the gateway device.
// Exactly one implementation exists per supported protocol variant.
type GatewayDriver interface {
	// Connection lifecycle
	Open(ctx context.Context) error
	Close() error

	// Queries
	SystemInfo(ctx context.Context) (*model.SystemInfo, error)
	NetworkConfig(ctx context.Context) (*model.NetworkConfig, error)

	Kind() model.DriverKind
}

// ConnectWarner is implemented by drivers that can open with a soft failure
type ConnectWarner interface {
	ConnectWarning() string
}

// protocol labels reported in query records
const (
	labelModbusRTU = "Modbus RTU"
	labelModbusTCP = "Modbus TCP"
	labelMQTT      = "MQTT"
	labelHTTP      = "HTTP"
)

// status labels reported by healthy query records
const (
	statusOnline    = "En ligne"
	statusConnected = "Connecté"
)
