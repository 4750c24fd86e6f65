// internal/protocol/http.go
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"syscall"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"gateway-service/internal/config"
	"gateway-service/internal/model"
)

const (
	pathStatus        = "/api/status"
	pathSystemInfo    = "/api/system/info"
	pathNetworkConfig = "/api/network/config"
)

// HTTPDriver queries the gateway REST API. There is no persistent
// connection; Open only checks that something answers on the base URL.
type HTTPDriver struct {
	cfg    config.HTTPConfig
	client *resty.Client
	logger *zap.Logger

	mu      sync.Mutex
	warning string
}

// NewHTTPDriver creates an HTTP driver. httpClient may be nil.
func NewHTTPDriver(cfg config.HTTPConfig, httpClient *http.Client, logger *zap.Logger) *HTTPDriver {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}

	client.
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}

	return &HTTPDriver{
		cfg:    cfg,
		client: client,
		logger: logger.With(zap.String("driver", string(model.DriverHTTP))),
	}
}

// Open fails only when the connection is refused. Any other problem is
// recorded as a warning and the driver stays usable.
func (d *HTTPDriver) Open(ctx context.Context) error {
	d.setWarning("")

	resp, err := d.client.R().SetContext(ctx).Get(pathStatus)
	if err != nil {
		if isConnectionRefused(err) {
			return connectError(err, "Impossible de se connecter via HTTP à %s", d.cfg.BaseURL)
		}
		d.setWarning(fmt.Sprintf("Statut de la passerelle indisponible: %v", err))
		return nil
	}

	switch {
	case resp.IsError():
		d.setWarning(fmt.Sprintf("Statut de la passerelle indisponible: HTTP %d", resp.StatusCode()))
	case !json.Valid(resp.Body()):
		d.setWarning("Statut de la passerelle illisible: réponse JSON invalide")
	}
	return nil
}

// ConnectWarning returns the soft failure of the last Open, if any
func (d *HTTPDriver) ConnectWarning() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.warning
}

func (d *HTTPDriver) setWarning(warning string) {
	d.mu.Lock()
	d.warning = warning
	d.mu.Unlock()
}

func (d *HTTPDriver) Close() error {
	return nil
}

func (d *HTTPDriver) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	var info model.SystemInfo
	if err := d.getJSON(ctx, pathSystemInfo, &info); err != nil {
		d.logger.Warn("System info request failed, serving fallback record", zap.Error(err))
		return model.FallbackSystemInfo(labelHTTP), nil
	}
	if info.Protocol == "" {
		info.Protocol = labelHTTP
	}
	return &info, nil
}

func (d *HTTPDriver) NetworkConfig(ctx context.Context) (*model.NetworkConfig, error) {
	var network model.NetworkConfig
	if err := d.getJSON(ctx, pathNetworkConfig, &network); err != nil {
		d.logger.Warn("Network config request failed, serving fallback record", zap.Error(err))
		return model.FallbackNetworkConfig(labelHTTP), nil
	}
	if network.Protocol == "" {
		network.Protocol = labelHTTP
	}
	return &network, nil
}

func (d *HTTPDriver) Kind() model.DriverKind {
	return model.DriverHTTP
}

func (d *HTTPDriver) getJSON(ctx context.Context, path string, out interface{}) error {
	resp, err := d.client.R().SetContext(ctx).Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: GET %s returned %d", ErrInvalidResponse, path, resp.StatusCode())
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrInvalidResponse, path, err)
	}
	return nil
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	// Windows reports WSAECONNREFUSED with its own wording
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "actively refused")
}
