// Package logging builds the framework's zap logger from configuration.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/km-arc/summer/framework/config"
)

// New returns a logger for cfg. Production environments get zap's JSON
// production config, everything else the coloured development console.
// Log.Encoding and Log.Level override the environment's defaults.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.Log.Encoding != "" {
		zc.Encoding = cfg.Log.Encoding
		if cfg.Log.Encoding == "json" {
			zc.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		}
	}
	if cfg.Log.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return log.With(zap.String("app", cfg.App.Name), zap.String("env", cfg.App.Env)), nil
}

// Nop returns a logger that discards everything.
func Nop() *zap.Logger { return zap.NewNop() }

// Named returns log scoped to a framework component, or a no-op logger
// when log is nil.
func Named(log *zap.Logger, component string) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log.Named(component)
}
