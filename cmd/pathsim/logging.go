package main

import (
	"strings"

	"github.com/kestrelgames/pathkeeper/pkg/pathfinder"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// buildLogger constructs a zap logger from a loaded Config's LogFormat and
// LogLevel fields.
func buildLogger(cfg *pathfinder.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if strings.ToLower(cfg.LogFormat) == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}
