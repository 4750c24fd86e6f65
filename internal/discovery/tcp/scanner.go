// 📁 internal/discovery/tcp/scanner.go - TCP reachability scanner
package tcp

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"gateway-service/internal/discovery"
)

// Target is an endpoint the gateway may answer on
type Target struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	Protocol string `json:"protocol"`
}

// Config for TCP scanner
type Config struct {
	Targets     []Target      `json:"targets"`
	ConnTimeout time.Duration `json:"connection_timeout"`
}

// Scanner dials the configured endpoints and reports the reachable ones
type Scanner struct {
	logger *zap.Logger
	config *Config
	dialer *net.Dialer
}

// NewScanner creates a new TCP scanner
func NewScanner(logger *zap.Logger, config *Config) *Scanner {
	if config == nil {
		config = &Config{}
	}
	if config.ConnTimeout <= 0 {
		config.ConnTimeout = 2 * time.Second
	}

	return &Scanner{
		logger: logger.With(zap.String("scanner", "tcp")),
		config: config,
		dialer: &net.Dialer{Timeout: config.ConnTimeout},
	}
}

// GetScannerType returns scanner type
func (s *Scanner) GetScannerType() string {
	return "tcp"
}

// IsAvailable reports whether there is anything to dial
func (s *Scanner) IsAvailable() bool {
	return len(s.config.Targets) > 0
}

// Scan dials every target concurrently; results keep the target order
func (s *Scanner) Scan(ctx context.Context) ([]*discovery.DiscoveredDevice, error) {
	s.logger.Info("Starting TCP reachability scan", zap.Int("targets", len(s.config.Targets)))

	results := make([]*discovery.DiscoveredDevice, len(s.config.Targets))
	var wg sync.WaitGroup
	for i, target := range s.config.Targets {
		wg.Add(1)
		go func(i int, target Target) {
			defer wg.Done()
			results[i] = s.dial(ctx, target)
		}(i, target)
	}
	wg.Wait()

	discovered := []*discovery.DiscoveredDevice{}
	for _, device := range results {
		if device != nil {
			discovered = append(discovered, device)
		}
	}

	s.logger.Info("TCP scan completed", zap.Int("devices_found", len(discovered)))
	return discovered, ctx.Err()
}

func (s *Scanner) dial(ctx context.Context, target Target) *discovery.DiscoveredDevice {
	started := time.Now()
	conn, err := s.dialer.DialContext(ctx, "tcp", target.Address)
	if err != nil {
		s.logger.Debug("Target unreachable",
			zap.String("address", target.Address),
			zap.Error(err),
		)
		return nil
	}
	conn.Close()

	return &discovery.DiscoveredDevice{
		Scanner:     s.GetScannerType(),
		Address:     target.Address,
		Protocol:    target.Protocol,
		Description: target.Name,
		Details: map[string]interface{}{
			"latency_ms": time.Since(started).Milliseconds(),
		},
		Confidence: 0.6,
	}
}
