// internal/protocol/telemetry.go
package protocol

import (
	"context"
	"math"
	"math/rand"
)

// TelemetrySample holds the values read from a Modbus gateway
type TelemetrySample struct {
	FirmwareVersion string
	Temperature     float64
	MemoryUsage     float64
	CPUUsage        float64
}

// NetworkSample holds the network values read from a Modbus gateway
type NetworkSample struct {
	SubnetMask string
	DNS        string
	MACAddress string
	DHCP       bool
}

// TelemetrySource supplies Modbus query records. A register-backed
// implementation can replace SimulatedTelemetry without changing callers.
type TelemetrySource interface {
	Sample(ctx context.Context, link ModbusLink) (*TelemetrySample, error)
	Network(ctx context.Context, link ModbusLink) (*NetworkSample, error)
}

// SimulatedTelemetry produces bounded random values. No registers are read.
type SimulatedTelemetry struct {
	FirmwareVersion string
	MACAddress      string
}

// NewSimulatedTelemetry returns the default telemetry stub
func NewSimulatedTelemetry() *SimulatedTelemetry {
	return &SimulatedTelemetry{
		FirmwareVersion: "v2.1.4",
		MACAddress:      "00:1A:2B:3C:4D:5E",
	}
}

func (s *SimulatedTelemetry) Sample(ctx context.Context, _ ModbusLink) (*TelemetrySample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &TelemetrySample{
		FirmwareVersion: s.FirmwareVersion,
		Temperature:     between(35, 45),
		MemoryUsage:     between(30, 70),
		CPUUsage:        between(10, 40),
	}, nil
}

func (s *SimulatedTelemetry) Network(ctx context.Context, _ ModbusLink) (*NetworkSample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &NetworkSample{
		SubnetMask: "255.255.255.0",
		DNS:        "8.8.8.8",
		MACAddress: s.MACAddress,
	}, nil
}

// between returns a value in [min, max) rounded to one decimal
func between(min, max float64) float64 {
	return math.Round((min+rand.Float64()*(max-min))*10) / 10
}
