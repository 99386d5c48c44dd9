package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config contains logger configuration
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	// Unrecognized values fall back to info.
	Level string
	// ServiceName is attached to every log entry
	ServiceName string
	// Development enables console encoding and caller annotations
	Development bool
}

var globalLogger *zap.Logger = zap.NewNop()

// Init initializes the global logger
func Init(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("logger config is required")
	}

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "timestamp"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if level, err := zapcore.ParseLevel(cfg.Level); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	if cfg.ServiceName != "" {
		log = log.With(zap.String("service", cfg.ServiceName))
	}

	globalLogger = log
	return nil
}

// Get returns the global logger. Returns a no-op logger before Init.
func Get() *zap.Logger {
	return globalLogger
}

// Sync flushes any buffered log entries
func Sync() error {
	return globalLogger.Sync()
}
