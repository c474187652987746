package http

import (
	"net/http"
	"time"

	"relaycast/internal/infrastructure/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

type HealthHandler struct {
	checker   *monitoring.HealthChecker
	clock     clockwork.Clock
	startedAt time.Time
}

func NewHealthHandler(checker *monitoring.HealthChecker, clock clockwork.Clock) *HealthHandler {
	return &HealthHandler{
		checker:   checker,
		clock:     clock,
		startedAt: clock.Now(),
	}
}

// Health reports liveness only.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    monitoring.StatusHealthy,
		"timestamp": h.clock.Now(),
		"uptime":    h.clock.Since(h.startedAt).String(),
	})
}

// Ready runs every registered dependency check.
func (h *HealthHandler) Ready(c *gin.Context) {
	status := h.checker.CheckAll(c.Request.Context())
	code := http.StatusOK
	if status.Status != monitoring.StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
