package http

import (
	"net/http"

	"relaycast/internal/core/ports"
	"relaycast/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
)

const defaultMetricsPath = "/metrics"

// Routes bundles the handlers mounted by SetupRoutes.
type Routes struct {
	Layouts        ports.LayoutHTTPHandler
	SessionMonitor ports.SessionMonitorHTTPHandler
	Events         ports.EventHTTPHandler
	Configuration  ports.ConfigurationHTTPHandler
	Health         *HealthHandler

	// EventSecret guards every trigger route except provider callbacks.
	EventSecret string

	// Metrics is served on MetricsPath when set.
	Metrics     http.Handler
	MetricsPath string
}

func SetupRoutes(router *gin.Engine, r Routes) {
	router.GET("/health", r.Health.Health)
	router.GET("/ready", r.Health.Ready)

	if r.Metrics != nil {
		path := r.MetricsPath
		if path == "" {
			path = defaultMetricsPath
		}
		router.GET(path, gin.WrapH(r.Metrics))
	}

	// Provider callbacks carry no event secret.
	router.POST("/vonage/session-monitoring", r.SessionMonitor.HandleSessionMonitoring)

	protected := router.Group("/")
	protected.Use(middleware.EventSecretMiddleware(r.EventSecret))
	{
		protected.POST("/layouts/created", r.Layouts.HandleLayoutCreated)
		protected.POST("/event-sessions/:id/layouts", r.Layouts.SubmitLayout)
		protected.GET("/event-sessions/:id/layout", r.Layouts.GetLatestLayout)

		protected.PUT("/event-sessions/:id", r.Configuration.PutEventSession)
		protected.PUT("/events/:id/channel-stack", r.Configuration.PutChannelStack)

		protected.POST("/events/:id/broadcast/start", r.Events.StartBroadcast)
		protected.POST("/events/:id/broadcast/stop", r.Events.StopBroadcast)

		protected.POST("/sessions/:sessionId/connections/:connectionId/disconnect", r.SessionMonitor.DisconnectParticipant)
	}
}
