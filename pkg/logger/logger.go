package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON production logger at the given level. Unknown levels fall
// back to info.
func New(level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// NewWithFormat is New with a choice of "json" or "console" encoding.
func NewWithFormat(level, format string) *zap.Logger {
	if strings.EqualFold(format, "console") {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
		logger, err := cfg.Build()
		if err != nil {
			return zap.NewNop()
		}
		return logger
	}
	return New(level)
}

func ParseLevel(level string) zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
