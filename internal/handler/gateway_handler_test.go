package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gateway-service/internal/model"
	"gateway-service/internal/protocol"
	"gateway-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeGateway struct {
	connectErr error
	queryErr   error
	updateErr  error
	connected  bool
	lastUpdate *model.GatewaySettingsUpdate
}

func (f *fakeGateway) Connect(ctx context.Context) (*model.OperationResult, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.connected = true
	return &model.OperationResult{Message: "Connexion établie via Modbus TCP", Protocol: "Modbus TCP"}, nil
}

func (f *fakeGateway) Disconnect(ctx context.Context) (*model.OperationResult, error) {
	f.connected = false
	return &model.OperationResult{Message: "Passerelle déconnectée"}, nil
}

func (f *fakeGateway) GetStatus() *model.GatewayStatus {
	return &model.GatewayStatus{Connected: f.connected, Protocol: "modbus", SerialNumber: "GW-1", IP: "10.0.0.2", Port: 502}
}

func (f *fakeGateway) GetSystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &model.SystemInfo{SerialNumber: "GW-1", FirmwareVersion: "v2.1.4"}, nil
}

func (f *fakeGateway) GetNetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return &model.NetworkConfig{IPAddress: "10.0.0.2", Port: 502}, nil
}

func (f *fakeGateway) GetConfig(ctx context.Context) (*model.GatewaySettings, error) {
	return &model.GatewaySettings{DeviceName: "Passerelle IoT", Protocol: "modbus", Port: 502}, nil
}

func (f *fakeGateway) UpdateConfig(ctx context.Context, update *model.GatewaySettingsUpdate) (*model.ConfigUpdateResult, error) {
	f.lastUpdate = update
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &model.ConfigUpdateResult{Message: "Configuration mise à jour", Config: update}, nil
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func newGatewayRouter(gateway GatewayService) *gin.Engine {
	h := NewGatewayHandler(gateway, zap.NewNop())
	router := gin.New()
	router.POST("/connect", h.Connect)
	router.POST("/disconnect", h.Disconnect)
	router.GET("/status", h.GetStatus)
	router.GET("/system-info", h.GetSystemInfo)
	router.GET("/network-config", h.GetNetworkConfig)
	router.GET("/config", h.GetConfig)
	router.PUT("/config", h.UpdateConfig)
	return router
}

func perform(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return w, resp
}

func TestGatewayHandlerConnect(t *testing.T) {
	gateway := &fakeGateway{}
	router := newGatewayRouter(gateway)

	w, resp := perform(t, router, http.MethodPost, "/connect", "")
	if w.Code != http.StatusOK || !resp.Success {
		t.Fatalf("expected 200 success, got %d %+v", w.Code, resp)
	}
	if resp.Message != "Connexion établie via Modbus TCP" {
		t.Errorf("unexpected message %q", resp.Message)
	}

	_, resp = perform(t, router, http.MethodGet, "/status", "")
	var status model.GatewayStatus
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Connected || status.SerialNumber != "GW-1" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestGatewayHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{
			name:   "connect refused",
			err:    fmt.Errorf("%w: %w", protocol.ErrConnectFailed, errors.New("connection refused")),
			status: http.StatusBadGateway,
			code:   "BAD_GATEWAY",
		},
		{
			name:   "connect timeout",
			err:    fmt.Errorf("%w: %w", protocol.ErrConnectFailed, protocol.ErrConnectTimeout),
			status: http.StatusGatewayTimeout,
			code:   "GATEWAY_TIMEOUT",
		},
		{
			name:   "unsupported protocol",
			err:    fmt.Errorf("%w: zigbee", protocol.ErrUnsupportedProtocol),
			status: http.StatusInternalServerError,
			code:   "INTERNAL_SERVER_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newGatewayRouter(&fakeGateway{connectErr: tt.err})

			w, resp := perform(t, router, http.MethodPost, "/connect", "")
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d", tt.status, w.Code)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("unexpected error body %+v", resp)
			}
			if resp.Message != tt.err.Error() {
				t.Errorf("message should carry the error text, got %q", resp.Message)
			}
		})
	}
}

func TestGatewayHandlerQueries(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		router := newGatewayRouter(&fakeGateway{queryErr: service.ErrNotConnected})

		for _, path := range []string{"/system-info", "/network-config"} {
			w, resp := perform(t, router, http.MethodGet, path, "")
			if w.Code != http.StatusConflict {
				t.Errorf("%s: expected 409, got %d", path, w.Code)
			}
			if resp.Message != service.ErrNotConnected.Error() {
				t.Errorf("%s: unexpected message %q", path, resp.Message)
			}
		}
	})

	t.Run("mqtt request timeout", func(t *testing.T) {
		router := newGatewayRouter(&fakeGateway{queryErr: fmt.Errorf("system/info: %w", protocol.ErrRequestTimeout)})

		if w, _ := perform(t, router, http.MethodGet, "/system-info", ""); w.Code != http.StatusGatewayTimeout {
			t.Errorf("expected 504, got %d", w.Code)
		}
	})

	t.Run("success", func(t *testing.T) {
		router := newGatewayRouter(&fakeGateway{connected: true})

		w, resp := perform(t, router, http.MethodGet, "/system-info", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
		var info model.SystemInfo
		if err := json.Unmarshal(resp.Data, &info); err != nil || info.FirmwareVersion != "v2.1.4" {
			t.Errorf("unexpected system info %s (%v)", resp.Data, err)
		}
	})
}

func TestGatewayHandlerUpdateConfig(t *testing.T) {
	t.Run("partial update is passed through", func(t *testing.T) {
		gateway := &fakeGateway{}
		router := newGatewayRouter(gateway)

		w, resp := perform(t, router, http.MethodPut, "/config", `{"pollInterval": 1000}`)
		if w.Code != http.StatusOK || resp.Message != "Configuration mise à jour" {
			t.Fatalf("unexpected response %d %+v", w.Code, resp)
		}
		if gateway.lastUpdate == nil || gateway.lastUpdate.PollInterval == nil || *gateway.lastUpdate.PollInterval != 1000 {
			t.Errorf("unexpected update %+v", gateway.lastUpdate)
		}
		if gateway.lastUpdate.Port != nil {
			t.Error("absent fields must stay nil")
		}
	})

	t.Run("validation error", func(t *testing.T) {
		gateway := &fakeGateway{updateErr: &service.ValidationError{Field: "port", Message: "port doit être compris entre 1 et 65535 (reçu: 0)"}}
		router := newGatewayRouter(gateway)

		w, resp := perform(t, router, http.MethodPut, "/config", `{"port": 0}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if !strings.Contains(resp.Message, "port doit être compris") {
			t.Errorf("unexpected message %q", resp.Message)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		gateway := &fakeGateway{}
		router := newGatewayRouter(gateway)

		w, _ := perform(t, router, http.MethodPut, "/config", `{"port": "abc"`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", w.Code)
		}
		if gateway.lastUpdate != nil {
			t.Error("service must not be called with an unparsable body")
		}
	})
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&service.ValidationError{Field: "retries"}, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", service.ErrNotConnected), http.StatusConflict},
		{protocol.ErrRequestTimeout, http.StatusGatewayTimeout},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{protocol.ErrInvalidResponse, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusForError(tt.err); got != tt.status {
			t.Errorf("statusForError(%v) = %d, want %d", tt.err, got, tt.status)
		}
	}
}
