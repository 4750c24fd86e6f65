// internal/service/connection_manager.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/events"
	"gateway-service/internal/model"
	"gateway-service/internal/protocol"
	"gateway-service/internal/utils"
)

// DriverFactory builds a fresh driver for every connect attempt
type DriverFactory func(cfg config.GatewayConfig) (protocol.GatewayDriver, error)

// NewDriverFactory returns a DriverFactory over the given transports
func NewDriverFactory(transports protocol.Transports, logger *zap.Logger) DriverFactory {
	return func(cfg config.GatewayConfig) (protocol.GatewayDriver, error) {
		return protocol.NewDriver(cfg, transports, logger)
	}
}

// ConnectionManager owns the single logical connection to the gateway.
//
// lifecycle serializes Connect and Disconnect. mu guards the driver: queries
// hold the read lock for the whole driver call so the driver cannot be
// closed under them. connected and reconnectAttempts are atomics so
// GetStatus never blocks.
type ConnectionManager struct {
	cfg       config.GatewayConfig
	newDriver DriverFactory
	publisher events.Publisher
	logger    *utils.GatewayLogger

	// sleep waits between connect attempts
	sleep func(ctx context.Context, d time.Duration) error

	lifecycle sync.Mutex
	mu        sync.RWMutex
	driver    protocol.GatewayDriver

	connected         atomic.Bool
	reconnectAttempts atomic.Int32
}

// NewConnectionManager creates a disconnected manager. publisher may be nil.
func NewConnectionManager(cfg config.GatewayConfig, newDriver DriverFactory, publisher events.Publisher, logger *zap.Logger) *ConnectionManager {
	return &ConnectionManager{
		cfg:       cfg,
		newDriver: newDriver,
		publisher: publisher,
		logger:    utils.NewGatewayLogger(logger, string(cfg.Protocol), cfg.Device.SerialNumber),
		sleep:     sleepContext,
	}
}

// Connect opens the configured driver, retrying with exponential backoff
// up to Reconnect.MaxAttempts times. A previous connection is closed first.
// The whole call, retries included, is bounded by Reconnect.TotalTimeout.
func (m *ConnectionManager) Connect(ctx context.Context) (*model.OperationResult, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	if total := m.cfg.Reconnect.TotalTimeout; total > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, total)
		defer cancel()
	}

	if previous := m.detach(); previous != nil {
		if err := previous.Close(); err != nil {
			m.logger.LogConnection("close_previous", false, err)
		}
	}

	maxAttempts := m.cfg.Reconnect.MaxAttempts
	m.reconnectAttempts.Store(0)

	var lastErr error
	for attempt := 0; attempt <= maxAttempts; attempt++ {
		if attempt > 0 {
			delay := m.backoff(attempt)
			m.reconnectAttempts.Store(int32(attempt))
			m.logger.LogRetry(attempt, maxAttempts, delay, lastErr)
			if err := m.sleep(ctx, delay); err != nil {
				break
			}
		}

		driver, err := m.newDriver(m.cfg)
		if err != nil {
			// configuration problem, retrying cannot help
			m.connected.Store(false)
			m.publishFailure(err, attempt)
			return nil, err
		}

		if err := driver.Open(ctx); err != nil {
			lastErr = err
			_ = driver.Close()
			m.logger.LogConnection("connect", false, err, zap.Int("attempt", attempt))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		return m.attach(driver), nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		cause := lastErr
		if cause == nil {
			cause = ctx.Err()
		}
		lastErr = fmt.Errorf("%w: tentatives de connexion abandonnées après %s: %w",
			protocol.ErrConnectTimeout, m.cfg.Reconnect.TotalTimeout, cause)
	} else if lastErr == nil {
		lastErr = ctx.Err()
	}

	m.connected.Store(false)
	m.publishFailure(lastErr, int(m.reconnectAttempts.Load()))
	return nil, lastErr
}

func (m *ConnectionManager) attach(driver protocol.GatewayDriver) *model.OperationResult {
	m.mu.Lock()
	m.driver = driver
	m.mu.Unlock()

	m.connected.Store(true)
	m.reconnectAttempts.Store(0)

	label := driverLabel(driver.Kind())
	result := &model.OperationResult{
		Message:  fmt.Sprintf("Connexion établie via %s", label),
		Protocol: label,
	}
	if warner, ok := driver.(protocol.ConnectWarner); ok {
		result.Warning = warner.ConnectWarning()
	}

	m.logger.LogConnection("connect", true, nil,
		zap.String("driver", string(driver.Kind())),
		zap.String("warning", result.Warning),
	)
	m.publish(events.GatewayConnected, map[string]interface{}{
		"driver":  string(driver.Kind()),
		"warning": result.Warning,
	})
	return result
}

// detach removes the current driver and marks the manager disconnected
func (m *ConnectionManager) detach() protocol.GatewayDriver {
	m.mu.Lock()
	driver := m.driver
	m.driver = nil
	m.mu.Unlock()

	m.connected.Store(false)
	return driver
}

// Disconnect closes the current driver. The manager is left disconnected
// even when closing fails; the close error is still returned.
func (m *ConnectionManager) Disconnect(ctx context.Context) (*model.OperationResult, error) {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()

	driver := m.detach()
	m.reconnectAttempts.Store(0)
	if driver == nil {
		return &model.OperationResult{Message: "Passerelle déjà déconnectée"}, nil
	}

	label := driverLabel(driver.Kind())
	err := driver.Close()
	m.logger.LogConnection("disconnect", err == nil, err)

	data := map[string]interface{}{"driver": string(driver.Kind())}
	if err != nil {
		data["error"] = err.Error()
	}
	m.publish(events.GatewayDisconnected, data)

	if err != nil {
		return nil, fmt.Errorf("échec de la déconnexion %s: %w", label, err)
	}
	return &model.OperationResult{
		Message:  "Passerelle déconnectée",
		Protocol: label,
	}, nil
}

// Close disconnects on shutdown
func (m *ConnectionManager) Close() error {
	_, err := m.Disconnect(context.Background())
	return err
}

// GetStatus returns the in-memory connection snapshot
func (m *ConnectionManager) GetStatus() *model.GatewayStatus {
	return &model.GatewayStatus{
		Connected:    m.connected.Load(),
		Protocol:     string(m.cfg.Protocol),
		SerialNumber: m.cfg.Device.SerialNumber,
		IP:           m.cfg.Device.IP,
		Port:         m.cfg.Device.Port,
	}
}

// ReconnectAttempts returns the retry count of the Connect in progress
func (m *ConnectionManager) ReconnectAttempts() int {
	return int(m.reconnectAttempts.Load())
}

func (m *ConnectionManager) GetSystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected.Load() || m.driver == nil {
		return nil, ErrNotConnected
	}
	return m.driver.SystemInfo(ctx)
}

func (m *ConnectionManager) GetNetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.connected.Load() || m.driver == nil {
		return nil, ErrNotConnected
	}
	return m.driver.NetworkConfig(ctx)
}

// GetConfig merges live connection parameters with the static settings
func (m *ConnectionManager) GetConfig(ctx context.Context) (*model.GatewaySettings, error) {
	return &model.GatewaySettings{
		DeviceName:    m.cfg.Device.Name,
		Protocol:      string(m.cfg.Protocol),
		Port:          m.cfg.Device.Port,
		PollInterval:  int(m.cfg.Settings.PollInterval.Milliseconds()),
		Timeout:       int(m.cfg.Modbus.Timeout.Milliseconds()),
		Retries:       m.cfg.Modbus.Retries,
		AutoReconnect: m.cfg.Settings.AutoReconnect,
		DebugMode:     m.cfg.Settings.DebugMode,
	}, nil
}

// UpdateConfig validates the present fields and acknowledges the update.
// Nothing is written to the device.
func (m *ConnectionManager) UpdateConfig(ctx context.Context, update *model.GatewaySettingsUpdate) (*model.ConfigUpdateResult, error) {
	if update == nil {
		return nil, &ValidationError{Field: "config", Message: "configuration manquante"}
	}

	checks := []struct {
		field    string
		value    *int
		min, max int
	}{
		{"pollInterval", update.PollInterval, 100, 60000},
		{"port", update.Port, 1, 65535},
		{"timeout", update.Timeout, 100, 30000},
		{"retries", update.Retries, 0, 10},
	}
	for _, c := range checks {
		if c.value != nil && (*c.value < c.min || *c.value > c.max) {
			return nil, rangeError(c.field, *c.value, c.min, c.max)
		}
	}

	m.logger.Info("Gateway configuration update acknowledged", zap.Any("update", update))
	return &model.ConfigUpdateResult{
		Message: "Configuration mise à jour",
		Config:  update,
	}, nil
}

// backoff returns Delay*2^(attempt-1) capped at MaxDelay, with ±25% jitter
func (m *ConnectionManager) backoff(attempt int) time.Duration {
	// doubling stops at MaxDelay so high attempt counts cannot overflow
	delay := m.cfg.Reconnect.Delay
	for i := 1; i < attempt && delay < m.cfg.Reconnect.MaxDelay; i++ {
		delay *= 2
	}
	if delay > m.cfg.Reconnect.MaxDelay || delay <= 0 {
		delay = m.cfg.Reconnect.MaxDelay
	}
	if delay <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/2+1)) - delay/4
	return delay + jitter
}

func (m *ConnectionManager) publishFailure(err error, attempts int) {
	data := map[string]interface{}{"attempts": attempts}
	if err != nil {
		data["error"] = err.Error()
	}
	m.publish(events.GatewayConnectFailed, data)
}

func (m *ConnectionManager) publish(eventType string, data map[string]interface{}) {
	if m.publisher == nil {
		return
	}
	data["protocol"] = string(m.cfg.Protocol)
	m.publisher.Publish(events.Event{
		Type:   eventType,
		Source: "connection-manager",
		Data:   data,
	})
}

func driverLabel(kind model.DriverKind) string {
	switch kind {
	case model.DriverModbusRTU:
		return "Modbus RTU"
	case model.DriverModbusTCP:
		return "Modbus TCP"
	case model.DriverMQTT:
		return "MQTT"
	case model.DriverHTTP:
		return "HTTP"
	default:
		return string(kind)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
