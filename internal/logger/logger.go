// Package logger constructs the process-wide zap.Logger, following
// crs-gateway/internal/logger's development/production split.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger at the given level name (debug|info|warn|error).
// At warn and above it uses the production JSON encoder; below that it uses
// the development encoder with colorized levels, matching crs-gateway.
func New(levelName string) (*zap.Logger, error) {
	level := parseLevel(levelName)

	if level >= zapcore.WarnLevel {
		cfg := zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(level)
		return cfg.Build()
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

func parseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
