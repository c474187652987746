package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	TraceIDKey   contextKey = "trace_id"
	RequestIDKey contextKey = "request_id"
	SessionIDKey contextKey = "session_id"
)

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.Logger
}

func NewContextLogger(logger *zap.Logger) *ContextLogger {
	return &ContextLogger{
		logger: logger,
	}
}

// WithValue stores a correlation value that WithContext will pick up.
func WithValue(ctx context.Context, key contextKey, value string) context.Context {
	return context.WithValue(ctx, key, value)
}

// WithContext adds correlation fields found in ctx to the logger
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.Logger {
	fields := []zapcore.Field{}

	for _, key := range []contextKey{TraceIDKey, RequestIDKey, SessionIDKey} {
		if id, ok := ctx.Value(key).(string); ok && id != "" {
			fields = append(fields, zap.String(string(key), id))
		}
	}

	if len(fields) == 0 {
		return cl.logger
	}

	return cl.logger.With(fields...)
}

// Sugar returns a sugared logger carrying the context fields.
func (cl *ContextLogger) Sugar(ctx context.Context) *zap.SugaredLogger {
	return cl.WithContext(ctx).Sugar()
}

// LogRequest logs an HTTP request with context
func (cl *ContextLogger) LogRequest(ctx context.Context, method, path string, statusCode int, durationMs int64) {
	cl.WithContext(ctx).Info("http_request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMs),
	)
}

// LogError logs an error with context
func (cl *ContextLogger) LogError(ctx context.Context, err error, message string, fields ...zapcore.Field) {
	logger := cl.WithContext(ctx).With(zap.Error(err))
	allFields := append(fields, zap.String("message", message))
	logger.Error("error_occurred", allFields...)
}
