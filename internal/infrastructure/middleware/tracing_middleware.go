package middleware

import (
	"time"

	"relaycast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TracingMiddleware opens a server span per request.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracing.TraceHTTPRequest(c.Request.Context(), c.Request.Method, route)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.host", c.Request.Host),
			attribute.String("http.user_agent", c.Request.UserAgent()),
			attribute.String("http.remote_addr", c.ClientIP()),
		)
		if id := c.Param("id"); id != "" {
			span.SetAttributes(attribute.String("http.route_id", id))
		}

		c.Request = c.Request.WithContext(ctx)

		start := time.Now()
		c.Next()

		span.SetAttributes(
			attribute.Int("http.status_code", c.Writer.Status()),
			attribute.Int64("http.duration_ms", time.Since(start).Milliseconds()),
		)
		if c.Writer.Status() >= 500 {
			span.SetStatus(codes.Error, c.Errors.String())
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
