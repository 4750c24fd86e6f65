// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"net/http"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"gateway-service/internal/config"
)

// Transports bundles the transport constructors drivers are built from.
// Zero fields fall back to the production implementations.
type Transports struct {
	Modbus     ModbusDialer
	MQTT       MQTTClientFactory
	HTTPClient *http.Client
	Telemetry  TelemetrySource
}

// DefaultTransports returns the production transports
func DefaultTransports() Transports {
	return Transports{
		Modbus:    GoburrowDialer{},
		MQTT:      mqtt.NewClient,
		Telemetry: NewSimulatedTelemetry(),
	}
}

func (t Transports) withDefaults() Transports {
	defaults := DefaultTransports()
	if t.Modbus == nil {
		t.Modbus = defaults.Modbus
	}
	if t.MQTT == nil {
		t.MQTT = defaults.MQTT
	}
	if t.Telemetry == nil {
		t.Telemetry = defaults.Telemetry
	}
	return t
}

// NewDriver creates the driver for the configured protocol
func NewDriver(cfg config.GatewayConfig, transports Transports, logger *zap.Logger) (GatewayDriver, error) {
	transports = transports.withDefaults()

	switch {
	case cfg.Protocol == config.ProtocolModbus && cfg.Modbus.Type == config.ModbusTCP:
		logger.Info("Creating Modbus TCP driver", zap.String("address", cfg.Device.Address()))
		return NewModbusTCPDriver(cfg, transports.Modbus, transports.Telemetry, logger), nil

	case cfg.Protocol == config.ProtocolModbus:
		logger.Info("Creating Modbus RTU driver",
			zap.String("path", cfg.Modbus.Serial.Path),
			zap.Int("baud_rate", cfg.Modbus.Serial.BaudRate),
		)
		return NewModbusRTUDriver(cfg, transports.Modbus, transports.Telemetry, logger), nil

	case cfg.Protocol == config.ProtocolMQTT:
		logger.Info("Creating MQTT driver", zap.String("broker", cfg.MQTT.BrokerURL))
		return NewMQTTDriver(cfg.MQTT, transports.MQTT, logger), nil

	case cfg.Protocol.IsHTTP():
		logger.Info("Creating HTTP driver", zap.String("base_url", cfg.HTTP.BaseURL))
		return NewHTTPDriver(cfg.HTTP, transports.HTTPClient, logger), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, cfg.Protocol)
	}
}
