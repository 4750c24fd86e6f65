// internal/protocol/modbus.go
package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/model"
)

// ModbusLink is an open Modbus client together with its transport
type ModbusLink interface {
	modbus.Client
	Close() error
}

// ModbusDialer opens Modbus links over a serial line or a TCP socket
type ModbusDialer interface {
	DialRTU(ctx context.Context, cfg config.ModbusConfig) (ModbusLink, error)
	DialTCP(ctx context.Context, address string, cfg config.ModbusConfig) (ModbusLink, error)
}

// GoburrowDialer dials Modbus links with github.com/goburrow/modbus
type GoburrowDialer struct{}

type goburrowLink struct {
	modbus.Client
	closer io.Closer
}

func (l *goburrowLink) Close() error {
	return l.closer.Close()
}

// DialRTU opens the serial line described by cfg.Serial
func (GoburrowDialer) DialRTU(ctx context.Context, cfg config.ModbusConfig) (ModbusLink, error) {
	handler := modbus.NewRTUClientHandler(cfg.Serial.Path)
	handler.BaudRate = cfg.Serial.BaudRate
	handler.DataBits = cfg.Serial.DataBits
	handler.StopBits = cfg.Serial.StopBits
	handler.Parity = parityCode(cfg.Serial.Parity)
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID

	if err := connectWithTimeout(ctx, 0, handler.Connect, handler.Close); err != nil {
		return nil, err
	}
	return &goburrowLink{Client: modbus.NewClient(handler), closer: handler}, nil
}

// DialTCP dials address, racing the dial against cfg.Timeout
func (GoburrowDialer) DialTCP(ctx context.Context, address string, cfg config.ModbusConfig) (ModbusLink, error) {
	handler := modbus.NewTCPClientHandler(address)
	handler.Timeout = cfg.Timeout
	handler.SlaveId = cfg.UnitID

	if err := connectWithTimeout(ctx, cfg.Timeout, handler.Connect, handler.Close); err != nil {
		return nil, err
	}
	return &goburrowLink{Client: modbus.NewClient(handler), closer: handler}, nil
}

// connectWithTimeout runs connect in the background and gives up after
// timeout (when positive) or when ctx ends. A connect that completes after
// the caller gave up is torn down so no half-open transport survives.
// goburrow dials with the same timeout, so a dial that times out on its
// own is reported as ErrConnectTimeout too.
func connectWithTimeout(ctx context.Context, timeout time.Duration, connect func() error, teardown func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- connect()
	}()

	select {
	case err := <-done:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return fmt.Errorf("%w after %s: %w", ErrConnectTimeout, timeout, err)
		}
		return err
	case <-ctx.Done():
		go func() {
			if err := <-done; err == nil {
				_ = teardown()
			}
		}()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrConnectTimeout, timeout)
		}
		return ctx.Err()
	}
}

func parityCode(parity string) string {
	switch parity {
	case "even":
		return "E"
	case "odd":
		return "O"
	default:
		return "N"
	}
}

// modbusDriver holds what the RTU and TCP variants share
type modbusDriver struct {
	cfg       config.GatewayConfig
	dialer    ModbusDialer
	telemetry TelemetrySource
	logger    *zap.Logger

	mu          sync.Mutex
	link        ModbusLink
	connectedAt time.Time
}

func (d *modbusDriver) attach(link ModbusLink) {
	d.mu.Lock()
	d.link = link
	d.connectedAt = time.Now()
	d.mu.Unlock()
}

func (d *modbusDriver) current() (ModbusLink, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.link, d.connectedAt
}

// Close releases the link. Closing twice is a no-op.
func (d *modbusDriver) Close() error {
	d.mu.Lock()
	link := d.link
	d.link = nil
	d.mu.Unlock()

	if link == nil {
		return nil
	}
	return link.Close()
}

func (d *modbusDriver) systemInfo(ctx context.Context, label string) *model.SystemInfo {
	link, since := d.current()
	if link == nil {
		return model.FallbackSystemInfo(label)
	}

	sample, err := d.telemetry.Sample(ctx, link)
	if err != nil {
		d.logger.Warn("Telemetry read failed, serving fallback record", zap.Error(err))
		return model.FallbackSystemInfo(label)
	}

	return &model.SystemInfo{
		SerialNumber:    d.cfg.Device.SerialNumber,
		FirmwareVersion: sample.FirmwareVersion,
		Uptime:          formatUptime(time.Since(since)),
		Temperature:     sample.Temperature,
		MemoryUsage:     sample.MemoryUsage,
		CPUUsage:        sample.CPUUsage,
		Status:          statusOnline,
		Protocol:        label,
		LastUpdate:      time.Now().Format(time.RFC3339),
	}
}

func (d *modbusDriver) networkConfig(ctx context.Context, label string) *model.NetworkConfig {
	link, _ := d.current()
	if link == nil {
		return model.FallbackNetworkConfig(label)
	}

	sample, err := d.telemetry.Network(ctx, link)
	if err != nil {
		d.logger.Warn("Network read failed, serving fallback record", zap.Error(err))
		return model.FallbackNetworkConfig(label)
	}

	return &model.NetworkConfig{
		IPAddress:  d.cfg.Device.IP,
		SubnetMask: sample.SubnetMask,
		Gateway:    defaultGateway(d.cfg.Device.IP),
		DNS:        sample.DNS,
		MACAddress: sample.MACAddress,
		DHCP:       sample.DHCP,
		Port:       d.cfg.Device.Port,
		Protocol:   label,
		Status:     statusConnected,
	}
}

// ModbusRTUDriver talks Modbus over a serial line
type ModbusRTUDriver struct {
	modbusDriver
}

// NewModbusRTUDriver creates a Modbus RTU driver
func NewModbusRTUDriver(cfg config.GatewayConfig, dialer ModbusDialer, telemetry TelemetrySource, logger *zap.Logger) *ModbusRTUDriver {
	return &ModbusRTUDriver{modbusDriver{
		cfg:       cfg,
		dialer:    dialer,
		telemetry: telemetry,
		logger:    logger.With(zap.String("driver", string(model.DriverModbusRTU))),
	}}
}

// Open opens the serial line then issues one liveness read whose
// failure is only logged
func (d *ModbusRTUDriver) Open(ctx context.Context) error {
	path := d.cfg.Modbus.Serial.Path
	link, err := d.dialer.DialRTU(ctx, d.cfg.Modbus)
	if err != nil {
		return connectError(err, "Impossible de se connecter via Modbus RTU sur %s", path)
	}
	d.attach(link)

	if _, err := link.ReadHoldingRegisters(0, 1); err != nil {
		d.logger.Warn("Liveness read failed, keeping serial link open",
			zap.String("path", path),
			zap.Error(err),
		)
	} else {
		d.logger.Debug("Liveness read answered", zap.String("path", path))
	}
	return nil
}

func (d *ModbusRTUDriver) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	return d.systemInfo(ctx, labelModbusRTU), nil
}

func (d *ModbusRTUDriver) NetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	return d.networkConfig(ctx, labelModbusRTU), nil
}

func (d *ModbusRTUDriver) Kind() model.DriverKind {
	return model.DriverModbusRTU
}

// ModbusTCPDriver talks Modbus over a TCP socket
type ModbusTCPDriver struct {
	modbusDriver
}

// NewModbusTCPDriver creates a Modbus TCP driver
func NewModbusTCPDriver(cfg config.GatewayConfig, dialer ModbusDialer, telemetry TelemetrySource, logger *zap.Logger) *ModbusTCPDriver {
	return &ModbusTCPDriver{modbusDriver{
		cfg:       cfg,
		dialer:    dialer,
		telemetry: telemetry,
		logger:    logger.With(zap.String("driver", string(model.DriverModbusTCP))),
	}}
}

// Open dials ip:port with the configured Modbus timeout
func (d *ModbusTCPDriver) Open(ctx context.Context) error {
	address := d.cfg.Device.Address()
	link, err := d.dialer.DialTCP(ctx, address, d.cfg.Modbus)
	if err != nil {
		return connectError(err, "Impossible de se connecter via Modbus TCP à %s", address)
	}
	d.attach(link)
	return nil
}

func (d *ModbusTCPDriver) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	return d.systemInfo(ctx, labelModbusTCP), nil
}

func (d *ModbusTCPDriver) NetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	return d.networkConfig(ctx, labelModbusTCP), nil
}

func (d *ModbusTCPDriver) Kind() model.DriverKind {
	return model.DriverModbusTCP
}

// defaultGateway guesses the .1 router of an IPv4 /24
func defaultGateway(ip string) string {
	v4 := net.ParseIP(ip).To4()
	if v4 == nil {
		return model.NotAvailable
	}
	return net.IPv4(v4[0], v4[1], v4[2], 1).String()
}

func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	if days > 0 {
		return fmt.Sprintf("%dj %dh %dm", days, hours, minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
