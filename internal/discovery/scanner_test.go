package discovery

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type stubScanner struct {
	kind      string
	available bool
	devices   []*DiscoveredDevice
	err       error
}

func (s *stubScanner) Scan(ctx context.Context) ([]*DiscoveredDevice, error) {
	return s.devices, s.err
}

func (s *stubScanner) GetScannerType() string { return s.kind }
func (s *stubScanner) IsAvailable() bool      { return s.available }

func newTestManager() *ScannerManager {
	sm := NewScannerManager(zap.NewNop())
	sm.RegisterScanner(&stubScanner{kind: "tcp", available: true, devices: []*DiscoveredDevice{{Address: "10.0.0.5:502"}}})
	sm.RegisterScanner(&stubScanner{kind: "serial", available: true, devices: []*DiscoveredDevice{{Address: "/dev/ttyUSB0"}}})
	sm.RegisterScanner(&stubScanner{kind: "broken", available: true, err: errors.New("boom")})
	sm.RegisterScanner(&stubScanner{kind: "offline", available: false})
	return sm
}

func TestScanAllSkipsFailingScanners(t *testing.T) {
	devices, err := newTestManager().ScanAll(context.Background())
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	// scanners run in type order
	if devices[0].Address != "/dev/ttyUSB0" || devices[1].Address != "10.0.0.5:502" {
		t.Errorf("unexpected order: %s, %s", devices[0].Address, devices[1].Address)
	}
}

func TestScanByType(t *testing.T) {
	sm := newTestManager()

	if _, err := sm.ScanByType(context.Background(), "usb"); !errors.Is(err, ErrScannerNotFound) {
		t.Errorf("expected ErrScannerNotFound, got %v", err)
	}
	if _, err := sm.ScanByType(context.Background(), "offline"); err == nil {
		t.Error("expected error for unavailable scanner")
	}

	devices, err := sm.ScanByType(context.Background(), "serial")
	if err != nil || len(devices) != 1 {
		t.Errorf("expected one serial device, got %v, %v", devices, err)
	}
}

func TestGetAvailableScanners(t *testing.T) {
	got := newTestManager().GetAvailableScanners()
	want := []string{"broken", "serial", "tcp"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %v, got %v", want, got)
		}
	}
}
