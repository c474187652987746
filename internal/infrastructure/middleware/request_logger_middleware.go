package middleware

import (
	"time"

	"relaycast/pkg/logger"
	"relaycast/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

const RequestIDHeader = "X-Request-ID"

// RequestLoggerMiddleware tags the request context with request and trace ids
// and logs one line per request.
func RequestLoggerMiddleware(cl *logger.ContextLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = utils.NewRequestID()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithValue(c.Request.Context(), logger.RequestIDKey, requestID)
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			ctx = logger.WithValue(ctx, logger.TraceIDKey, sc.TraceID().String())
		}
		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		cl.LogRequest(ctx, c.Request.Method, path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
