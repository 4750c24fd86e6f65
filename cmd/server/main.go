// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "gateway-service/docs"
	"gateway-service/internal/config"
	"gateway-service/internal/events"
	"gateway-service/internal/handler"
	"gateway-service/internal/protocol"
	"gateway-service/internal/routes"
	"gateway-service/internal/service"
	"gateway-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config *config.Config
	logger *zap.Logger
	server *http.Server

	// background work is cancelled on shutdown
	ctx    context.Context
	cancel context.CancelFunc

	eventBus         *events.Bus
	gateway          *service.ConnectionManager
	discoveryService *service.DiscoveryService
	wsHandler        *handler.WebSocketHandler
}

// @title Gateway Service API
// @version 1.0.0
// @description IoT gateway connection service: Modbus RTU/TCP, MQTT and HTTP drivers, serial port discovery

// @contact.name Gateway Service API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8084
// @BasePath /api/v1
func main() {
	// Initialize application
	app, err := NewApplication()
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	// Start the application
	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication() (*Application, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "gateway-service")
	serviceLogger.LogServiceStart(cfg.App.Version, startupSummary(cfg))
	for _, warning := range cfg.Warnings {
		serviceLogger.Warn("Configuration value ignored", zap.String("warning", warning))
	}
	if cfg.IsProduction() && len(cfg.Security.AllowedOrigins) == 0 {
		serviceLogger.Warn("security.allowed_origins is empty, CORS and WebSocket accept any origin")
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &Application{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	app.initializeServices()
	app.initializeServer()

	return app, nil
}

// initializeServices creates the event bus, the connection manager and discovery
func (app *Application) initializeServices() {
	app.eventBus = events.NewBus(app.logger)

	app.gateway = service.NewConnectionManager(
		app.config.Gateway,
		service.NewDriverFactory(protocol.DefaultTransports(), app.logger),
		app.eventBus,
		app.logger,
	)

	app.discoveryService = service.NewDefaultDiscoveryService(app.config, app.logger)

	app.wsHandler = handler.NewWebSocketHandler(app.eventBus, app.gateway, &app.config.Security, app.logger)

	app.logger.Info("Services initialized successfully",
		zap.String("protocol", string(app.config.Gateway.Protocol)),
	)
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.gateway,
		app.discoveryService,
		app.wsHandler,
	)

	router := routerManager.SetupRouter()

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
		zap.Bool("tls_enabled", app.config.Server.TLS.Enabled),
	)
}

// startBackgroundServices starts background services
func (app *Application) startBackgroundServices() {
	go app.eventBus.Start()
	go app.wsHandler.Run(app.ctx)

	if app.config.Gateway.AutoConnect {
		go app.autoConnect()
	}

	app.logger.Info("Background services started")
}

// autoConnect connects at startup; failure is logged and the service keeps running
func (app *Application) autoConnect() {
	result, err := app.gateway.Connect(app.ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		utils.LogError(app.logger, "Automatic gateway connection failed", err)
		return
	}

	app.logger.Info("Automatic gateway connection established",
		zap.String("message", result.Message),
		zap.String("warning", result.Warning),
	)
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, "gateway-service")
	serviceLogger.LogServiceStop("shutdown signal received")

	// Stops auto connect and the WebSocket fan-out
	app.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if err := app.gateway.Close(); err != nil {
		app.logger.Error("Gateway disconnect error", zap.Error(err))
	} else {
		app.logger.Info("Gateway connection closed")
	}

	app.eventBus.Stop()

	app.logger.Info("Application shutdown completed")

	// Flush logger
	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server until a shutdown signal arrives
func (app *Application) Start() error {
	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		var err error
		if app.config.Server.TLS.Enabled {
			err = app.server.ListenAndServeTLS(
				app.config.Server.TLS.CertFile,
				app.config.Server.TLS.KeyFile,
			)
		} else {
			err = app.server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices()

	app.waitForShutdown()

	return nil
}

// startupSummary is the configuration logged at startup, without credentials
func startupSummary(cfg *config.Config) map[string]interface{} {
	gw := cfg.Gateway
	return map[string]interface{}{
		"environment":    cfg.App.Environment,
		"server_addr":    cfg.GetServerAddr(),
		"protocol":       gw.Protocol,
		"auto_connect":   gw.AutoConnect,
		"device_serial":  gw.Device.SerialNumber,
		"device_address": gw.Device.Address(),
		"modbus_type":    gw.Modbus.Type,
		"serial_path":    gw.Modbus.Serial.Path,
		"mqtt_broker":    redactURL(gw.MQTT.BrokerURL),
		"mqtt_auth":      gw.MQTT.Username != "",
		"http_base_url":  redactURL(gw.HTTP.BaseURL),
		"http_token_set": gw.HTTP.Token != "",
		"max_attempts":   gw.Reconnect.MaxAttempts,
	}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
