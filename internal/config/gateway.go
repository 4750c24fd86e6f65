// internal/config/gateway.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Protocol selects the driver used to talk to the gateway device
type Protocol string

const (
	ProtocolModbus Protocol = "modbus"
	ProtocolMQTT   Protocol = "mqtt"
	ProtocolHTTP   Protocol = "http"
	ProtocolREST   Protocol = "rest"
)

// ModbusMode selects the Modbus transport
type ModbusMode string

const (
	ModbusRTU ModbusMode = "RTU"
	ModbusTCP ModbusMode = "TCP"
)

// GatewayConfig represents the gateway device and its protocol bundles.
// Only the bundle matching Protocol is used; the others are parsed anyway.
type GatewayConfig struct {
	Protocol    Protocol
	AutoConnect bool
	Device      DeviceConfig
	Modbus      ModbusConfig
	MQTT        MQTTConfig
	HTTP        HTTPConfig
	Reconnect   ReconnectConfig
	Settings    SettingsConfig
}

// DeviceConfig identifies the physical gateway
type DeviceConfig struct {
	Name         string
	Manufacturer string
	Model        string
	SerialNumber string
	IP           string
	Port         int
}

// ModbusConfig represents Modbus RTU/TCP parameters
type ModbusConfig struct {
	Type    ModbusMode
	UnitID  byte
	Timeout time.Duration
	Retries int
	Serial  SerialLineConfig
}

// SerialLineConfig represents the RTU serial line settings
type SerialLineConfig struct {
	Path     string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

// MQTTConfig represents MQTT broker parameters
type MQTTConfig struct {
	BrokerURL      string
	ClientID       string
	Username       string
	Password       string
	TopicPrefix    string
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// HTTPConfig represents HTTP/REST device API parameters
type HTTPConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// ReconnectConfig controls connect retries with exponential backoff
type ReconnectConfig struct {
	MaxAttempts int
	Delay       time.Duration
	MaxDelay    time.Duration

	// TotalTimeout bounds a whole Connect call, retries included
	TotalTimeout time.Duration
}

// SettingsConfig holds the static values reported by the config endpoint
type SettingsConfig struct {
	PollInterval  time.Duration
	AutoReconnect bool
	DebugMode     bool
}

// IsHTTP reports whether the protocol is served by the HTTP driver
func (p Protocol) IsHTTP() bool {
	return p == ProtocolHTTP || p == ProtocolREST
}

// Address returns the device TCP address
func (d DeviceConfig) Address() string {
	return fmt.Sprintf("%s:%d", d.IP, d.Port)
}

// setGatewayDefaults sets default gateway values. Durations are in milliseconds.
func setGatewayDefaults(v *viper.Viper) {
	v.SetDefault("gateway.protocol", "modbus")
	v.SetDefault("gateway.auto_connect", false)

	v.SetDefault("gateway.device.name", "Passerelle IoT")
	v.SetDefault("gateway.device.manufacturer", "Silicon Labs")
	v.SetDefault("gateway.device.model", "CP210")
	v.SetDefault("gateway.device.serial_number", "GW-0000000000")
	v.SetDefault("gateway.device.ip", "192.168.1.100")
	v.SetDefault("gateway.device.port", 502)

	v.SetDefault("gateway.modbus.type", "RTU")
	v.SetDefault("gateway.modbus.unit_id", 1)
	v.SetDefault("gateway.modbus.timeout", 1000)
	v.SetDefault("gateway.modbus.retries", 3)
	v.SetDefault("gateway.modbus.serial.path", "/dev/ttyUSB0")
	v.SetDefault("gateway.modbus.serial.baud_rate", 9600)
	v.SetDefault("gateway.modbus.serial.data_bits", 8)
	v.SetDefault("gateway.modbus.serial.stop_bits", 1)
	v.SetDefault("gateway.modbus.serial.parity", "none")

	v.SetDefault("gateway.mqtt.broker_url", "tcp://localhost:1883")
	v.SetDefault("gateway.mqtt.client_id", "gateway-service")
	v.SetDefault("gateway.mqtt.username", "")
	v.SetDefault("gateway.mqtt.password", "")
	v.SetDefault("gateway.mqtt.topic_prefix", "gateway")
	v.SetDefault("gateway.mqtt.connect_timeout", 5000)
	v.SetDefault("gateway.mqtt.request_timeout", 5000)

	v.SetDefault("gateway.http.base_url", "http://192.168.1.100")
	v.SetDefault("gateway.http.token", "")
	v.SetDefault("gateway.http.timeout", 5000)

	v.SetDefault("gateway.reconnect.max_attempts", 3)
	v.SetDefault("gateway.reconnect.delay", 2000)
	v.SetDefault("gateway.reconnect.max_delay", 30000)
	v.SetDefault("gateway.reconnect.total_timeout", 25000)

	v.SetDefault("gateway.settings.poll_interval", 5000)
	v.SetDefault("gateway.settings.auto_reconnect", true)
	v.SetDefault("gateway.settings.debug_mode", false)
}

// gatewayLoader reads gateway keys, falling back to defaults on bad input
type gatewayLoader struct {
	v        *viper.Viper
	warnings []string
}

func loadGateway(v *viper.Viper) (GatewayConfig, []string) {
	l := &gatewayLoader{v: v}

	cfg := GatewayConfig{
		Protocol:    Protocol(strings.ToLower(strings.TrimSpace(l.str("gateway.protocol", "modbus")))),
		AutoConnect: l.boolean("gateway.auto_connect", false),
		Device: DeviceConfig{
			Name:         l.str("gateway.device.name", "Passerelle IoT"),
			Manufacturer: l.str("gateway.device.manufacturer", ""),
			Model:        l.str("gateway.device.model", ""),
			SerialNumber: l.str("gateway.device.serial_number", "GW-0000000000"),
			IP:           l.str("gateway.device.ip", "192.168.1.100"),
			Port:         l.integer("gateway.device.port", 502, 1, 65535),
		},
		Modbus: ModbusConfig{
			Type:    ModbusRTU,
			UnitID:  byte(l.integer("gateway.modbus.unit_id", 1, 0, 247)),
			Timeout: l.millis("gateway.modbus.timeout", 1000*time.Millisecond),
			Retries: l.integer("gateway.modbus.retries", 3, 0, 10),
			Serial: SerialLineConfig{
				Path:     l.str("gateway.modbus.serial.path", "/dev/ttyUSB0"),
				BaudRate: l.integer("gateway.modbus.serial.baud_rate", 9600, 300, 921600),
				DataBits: l.integer("gateway.modbus.serial.data_bits", 8, 5, 8),
				StopBits: l.integer("gateway.modbus.serial.stop_bits", 1, 1, 2),
				Parity:   l.parity("gateway.modbus.serial.parity"),
			},
		},
		MQTT: MQTTConfig{
			BrokerURL:      l.str("gateway.mqtt.broker_url", "tcp://localhost:1883"),
			ClientID:       l.str("gateway.mqtt.client_id", "gateway-service"),
			Username:       l.v.GetString("gateway.mqtt.username"),
			Password:       l.v.GetString("gateway.mqtt.password"),
			TopicPrefix:    strings.TrimSuffix(l.str("gateway.mqtt.topic_prefix", "gateway"), "/"),
			ConnectTimeout: l.millis("gateway.mqtt.connect_timeout", 5000*time.Millisecond),
			RequestTimeout: l.millis("gateway.mqtt.request_timeout", 5000*time.Millisecond),
		},
		HTTP: HTTPConfig{
			BaseURL: strings.TrimSuffix(l.str("gateway.http.base_url", "http://192.168.1.100"), "/"),
			Token:   l.v.GetString("gateway.http.token"),
			Timeout: l.millis("gateway.http.timeout", 5000*time.Millisecond),
		},
		Reconnect: ReconnectConfig{
			MaxAttempts:  l.integer("gateway.reconnect.max_attempts", 3, 0, 100),
			Delay:        l.millis("gateway.reconnect.delay", 2000*time.Millisecond),
			MaxDelay:     l.millis("gateway.reconnect.max_delay", 30000*time.Millisecond),
			TotalTimeout: l.millis("gateway.reconnect.total_timeout", 25000*time.Millisecond),
		},
		Settings: SettingsConfig{
			PollInterval:  l.millis("gateway.settings.poll_interval", 5000*time.Millisecond),
			AutoReconnect: l.boolean("gateway.settings.auto_reconnect", true),
			DebugMode:     l.boolean("gateway.settings.debug_mode", false),
		},
	}

	if strings.EqualFold(l.str("gateway.modbus.type", "RTU"), string(ModbusTCP)) {
		cfg.Modbus.Type = ModbusTCP
	}

	return cfg, l.warnings
}

func (l *gatewayLoader) warn(key string, raw interface{}, def interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf("%s: invalid value %q, using default %v", key, fmt.Sprint(raw), def))
}

func (l *gatewayLoader) str(key, def string) string {
	s := strings.TrimSpace(l.v.GetString(key))
	if s == "" {
		return def
	}
	return s
}

func (l *gatewayLoader) boolean(key string, def bool) bool {
	raw := l.v.Get(key)
	b, err := cast.ToBoolE(raw)
	if err != nil {
		l.warn(key, raw, def)
		return def
	}
	return b
}

func (l *gatewayLoader) integer(key string, def, min, max int) int {
	raw := l.v.Get(key)
	n, err := cast.ToIntE(raw)
	if err != nil || n < min || n > max {
		l.warn(key, raw, def)
		return def
	}
	return n
}

// millis accepts an integer number of milliseconds or a Go duration string
func (l *gatewayLoader) millis(key string, def time.Duration) time.Duration {
	raw := l.v.Get(key)

	var d time.Duration
	switch value := raw.(type) {
	case time.Duration:
		d = value
	default:
		if ms, err := cast.ToInt64E(value); err == nil {
			d = time.Duration(ms) * time.Millisecond
		} else if parsed, err := time.ParseDuration(cast.ToString(value)); err == nil {
			d = parsed
		} else {
			l.warn(key, raw, def)
			return def
		}
	}

	if d <= 0 {
		l.warn(key, raw, def)
		return def
	}
	return d
}

func (l *gatewayLoader) parity(key string) string {
	raw := strings.ToLower(strings.TrimSpace(l.v.GetString(key)))
	switch raw {
	case "none", "even", "odd":
		return raw
	case "":
		return "none"
	default:
		l.warn(key, raw, "none")
		return "none"
	}
}
