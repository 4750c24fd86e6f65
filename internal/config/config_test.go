package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func newTestViper(values map[string]interface{}) *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, value := range values {
		v.Set(key, value)
	}
	return v
}

func TestDecodeDefaults(t *testing.T) {
	cfg, err := decode(newTestViper(nil))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	gw := cfg.Gateway
	if gw.Protocol != ProtocolModbus {
		t.Errorf("expected protocol modbus, got %q", gw.Protocol)
	}
	if gw.Modbus.Type != ModbusRTU {
		t.Errorf("expected RTU, got %q", gw.Modbus.Type)
	}
	if gw.Modbus.Timeout != time.Second {
		t.Errorf("expected 1s modbus timeout, got %v", gw.Modbus.Timeout)
	}
	if gw.MQTT.ConnectTimeout != 5*time.Second || gw.MQTT.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected mqtt timeouts: %v / %v", gw.MQTT.ConnectTimeout, gw.MQTT.RequestTimeout)
	}
	if gw.Reconnect.MaxAttempts != 3 || gw.Reconnect.Delay != 2*time.Second || gw.Reconnect.MaxDelay != 30*time.Second {
		t.Errorf("unexpected reconnect defaults: %+v", gw.Reconnect)
	}
	if gw.Reconnect.TotalTimeout != 25*time.Second {
		t.Errorf("expected 25s total connect timeout, got %v", gw.Reconnect.TotalTimeout)
	}
	if gw.Settings.PollInterval != 5*time.Second || !gw.Settings.AutoReconnect {
		t.Errorf("unexpected settings defaults: %+v", gw.Settings)
	}
	if len(cfg.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", cfg.Warnings)
	}
}

func TestDecodeLenientFallback(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		check   func(GatewayConfig) bool
		warning bool
	}{
		{
			name:    "unparsable port",
			key:     "gateway.device.port",
			value:   "not-a-port",
			check:   func(g GatewayConfig) bool { return g.Device.Port == 502 },
			warning: true,
		},
		{
			name:    "out of range port",
			key:     "gateway.device.port",
			value:   70000,
			check:   func(g GatewayConfig) bool { return g.Device.Port == 502 },
			warning: true,
		},
		{
			name:  "port from env string",
			key:   "gateway.device.port",
			value: "1502",
			check: func(g GatewayConfig) bool { return g.Device.Port == 1502 },
		},
		{
			name:  "timeout as milliseconds string",
			key:   "gateway.modbus.timeout",
			value: "2500",
			check: func(g GatewayConfig) bool { return g.Modbus.Timeout == 2500*time.Millisecond },
		},
		{
			name:  "timeout as duration string",
			key:   "gateway.http.timeout",
			value: "3s",
			check: func(g GatewayConfig) bool { return g.HTTP.Timeout == 3*time.Second },
		},
		{
			name:    "garbage timeout",
			key:     "gateway.mqtt.request_timeout",
			value:   "soon",
			check:   func(g GatewayConfig) bool { return g.MQTT.RequestTimeout == 5*time.Second },
			warning: true,
		},
		{
			name:    "negative retries",
			key:     "gateway.modbus.retries",
			value:   -1,
			check:   func(g GatewayConfig) bool { return g.Modbus.Retries == 3 },
			warning: true,
		},
		{
			name:    "unknown parity",
			key:     "gateway.modbus.serial.parity",
			value:   "mark",
			check:   func(g GatewayConfig) bool { return g.Modbus.Serial.Parity == "none" },
			warning: true,
		},
		{
			name:  "tcp mode is case insensitive",
			key:   "gateway.modbus.type",
			value: "tcp",
			check: func(g GatewayConfig) bool { return g.Modbus.Type == ModbusTCP },
		},
		{
			name:  "unknown mode falls back to rtu",
			key:   "gateway.modbus.type",
			value: "ascii",
			check: func(g GatewayConfig) bool { return g.Modbus.Type == ModbusRTU },
		},
		{
			name:  "protocol is lowercased",
			key:   "gateway.protocol",
			value: "MQTT",
			check: func(g GatewayConfig) bool { return g.Protocol == ProtocolMQTT },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := decode(newTestViper(map[string]interface{}{tt.key: tt.value}))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !tt.check(cfg.Gateway) {
				t.Errorf("unexpected gateway config for %s=%v: %+v", tt.key, tt.value, cfg.Gateway)
			}
			hasWarning := false
			for _, w := range cfg.Warnings {
				if strings.HasPrefix(w, tt.key) {
					hasWarning = true
				}
			}
			if hasWarning != tt.warning {
				t.Errorf("expected warning=%v, got warnings %v", tt.warning, cfg.Warnings)
			}
		})
	}
}

func TestDecodeBoundsConnectBelowWriteTimeout(t *testing.T) {
	tests := []struct {
		name         string
		writeTimeout string
		total        int
		want         time.Duration
		warning      bool
	}{
		{name: "already below", writeTimeout: "30s", total: 25000, want: 25 * time.Second},
		{name: "above write timeout", writeTimeout: "10s", total: 25000, want: 9 * time.Second, warning: true},
		{name: "equal to write timeout", writeTimeout: "10s", total: 10000, want: 9 * time.Second, warning: true},
		{name: "sub-second write timeout", writeTimeout: "800ms", total: 25000, want: 400 * time.Millisecond, warning: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := decode(newTestViper(map[string]interface{}{
				"server.write_timeout":            tt.writeTimeout,
				"gateway.reconnect.total_timeout": tt.total,
			}))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got := cfg.Gateway.Reconnect.TotalTimeout; got != tt.want {
				t.Errorf("expected total timeout %v, got %v", tt.want, got)
			}

			warned := false
			for _, w := range cfg.Warnings {
				if strings.Contains(w, "gateway.reconnect.total_timeout") {
					warned = true
				}
			}
			if warned != tt.warning {
				t.Errorf("warning = %v, want %v (%v)", warned, tt.warning, cfg.Warnings)
			}
		})
	}
}

func TestDecodeRejectsUnknownProtocol(t *testing.T) {
	_, err := decode(newTestViper(map[string]interface{}{"gateway.protocol": "bacnet"}))
	if err == nil {
		t.Fatal("expected validation error for unknown protocol")
	}
	if !strings.Contains(err.Error(), "gateway.protocol") {
		t.Errorf("error should name the key, got %v", err)
	}
}

func TestProtocolIsHTTP(t *testing.T) {
	for _, p := range []Protocol{ProtocolHTTP, ProtocolREST} {
		if !p.IsHTTP() {
			t.Errorf("%s should be served by the http driver", p)
		}
	}
	if ProtocolMQTT.IsHTTP() {
		t.Error("mqtt is not an http protocol")
	}
}
