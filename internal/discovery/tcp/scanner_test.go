package tcp

import (
	"context"
	"net"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestScanReportsReachableTargets(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	// grab a free port, then release it so dialing it is refused
	closed, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedAddr := closed.Addr().String()
	closed.Close()

	s := NewScanner(zap.NewNop(), &Config{
		Targets: []Target{
			{Name: "Modbus TCP", Address: closedAddr, Protocol: "modbus-tcp"},
			{Name: "HTTP API", Address: listener.Addr().String(), Protocol: "http"},
		},
		ConnTimeout: time.Second,
	})

	devices, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 reachable target, got %d", len(devices))
	}
	if devices[0].Address != listener.Addr().String() || devices[0].Protocol != "http" || devices[0].Scanner != "tcp" {
		t.Errorf("unexpected device %+v", devices[0])
	}
}

func TestIsAvailableRequiresTargets(t *testing.T) {
	if NewScanner(zap.NewNop(), nil).IsAvailable() {
		t.Error("scanner without targets should not be available")
	}
	if !NewScanner(zap.NewNop(), &Config{Targets: []Target{{Address: "127.0.0.1:1"}}}).IsAvailable() {
		t.Error("scanner with targets should be available")
	}
}
