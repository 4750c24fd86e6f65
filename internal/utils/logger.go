// internal/utils/logger.go
package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"gateway-service/internal/config"
)

const defaultLogFile = "./logs/gateway-service.log"

// NewLogger creates a new logger instance based on configuration
func NewLogger(cfg *config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	writeSyncer, err := newWriteSyncer(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create write syncer: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Format), writeSyncer, level)

	return zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	), nil
}

// newEncoder returns a JSON encoder unless console output is requested
func newEncoder(format string) zapcore.Encoder {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
		return zapcore.NewConsoleEncoder(encoderConfig)
	}
	return zapcore.NewJSONEncoder(encoderConfig)
}

// newWriteSyncer writes to stdout, stderr or a rotated file
func newWriteSyncer(cfg *config.LoggingConfig) (zapcore.WriteSyncer, error) {
	switch cfg.Output {
	case "stdout":
		return zapcore.AddSync(os.Stdout), nil
	case "stderr":
		return zapcore.AddSync(os.Stderr), nil
	}

	filename := cfg.Output
	if filename == "" {
		filename = defaultLogFile
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   filename,
		MaxSize:    cfg.MaxSize, // MB
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}), nil
}

// GatewayLogger wraps zap.Logger with gateway connection context
type GatewayLogger struct {
	*zap.Logger
}

// NewGatewayLogger creates a gateway-specific logger
func NewGatewayLogger(baseLogger *zap.Logger, protocol, serialNumber string) *GatewayLogger {
	return &GatewayLogger{
		Logger: baseLogger.With(
			zap.String("component", "gateway"),
			zap.String("protocol", protocol),
			zap.String("serial_number", serialNumber),
		),
	}
}

// LogConnection logs connect and disconnect outcomes
func (gl *GatewayLogger) LogConnection(action string, success bool, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.String("action", action),
		zap.Bool("success", success),
	}, fields...)

	if err != nil {
		gl.Error("Gateway connection event", append(allFields, zap.Error(err))...)
		return
	}
	gl.Info("Gateway connection event", allFields...)
}

// LogRetry logs a scheduled connect retry
func (gl *GatewayLogger) LogRetry(attempt, maxAttempts int, delay time.Duration, err error) {
	gl.Warn("Gateway connect failed, retrying",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", maxAttempts),
		zap.Duration("delay", delay),
		zap.Error(err),
	)
}

// ServiceLogger provides service-level logging functionality
type ServiceLogger struct {
	*zap.Logger
}

// NewServiceLogger creates a service-specific logger
func NewServiceLogger(baseLogger *zap.Logger, serviceName string) *ServiceLogger {
	return &ServiceLogger{
		Logger: baseLogger.With(zap.String("service", serviceName)),
	}
}

// LogServiceStart logs service startup
func (sl *ServiceLogger) LogServiceStart(version string, summary map[string]interface{}) {
	sl.Info("Service starting",
		zap.String("version", version),
		zap.Any("config", summary),
	)
}

// LogServiceStop logs service shutdown
func (sl *ServiceLogger) LogServiceStop(reason string) {
	sl.Info("Service stopping", zap.String("reason", reason))
}

// APIRequest is one served HTTP request
type APIRequest struct {
	Method     string
	Path       string
	ClientIP   string
	UserAgent  string
	RequestID  string
	StatusCode int
	Duration   time.Duration
}

// LogAPIRequest logs at info, warn for 4xx and error for 5xx. quiet lowers
// successful requests to debug.
func (sl *ServiceLogger) LogAPIRequest(req APIRequest, quiet bool) {
	level := zapcore.InfoLevel
	switch {
	case req.StatusCode >= 500:
		level = zapcore.ErrorLevel
	case req.StatusCode >= 400:
		level = zapcore.WarnLevel
	case quiet:
		level = zapcore.DebugLevel
	}

	if ce := sl.Check(level, "API request"); ce != nil {
		ce.Write(
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("client_ip", req.ClientIP),
			zap.String("user_agent", req.UserAgent),
			zap.String("request_id", req.RequestID),
			zap.Int("status_code", req.StatusCode),
			zap.Duration("duration", req.Duration),
		)
	}
}

// LoggerWithRequestID adds request ID to logger
func LoggerWithRequestID(logger *zap.Logger, requestID string) *zap.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With(zap.String("request_id", requestID))
}

// LogError is a helper function for consistent error logging
func LogError(logger *zap.Logger, message string, err error, fields ...zap.Field) {
	logger.Error(message, append([]zap.Field{zap.Error(err)}, fields...)...)
}

// CloseLogger flushes buffered log entries
func CloseLogger(logger *zap.Logger) error {
	return logger.Sync()
}
