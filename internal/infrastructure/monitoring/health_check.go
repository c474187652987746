package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

type HealthChecker struct {
	checks []HealthCheck
	clock  clockwork.Clock
	mu     sync.RWMutex
}

type HealthCheck struct {
	Name    string
	Check   func(ctx context.Context) error
	Timeout time.Duration
}

type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthChecker(clock clockwork.Clock) *HealthChecker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &HealthChecker{
		checks: make([]HealthCheck, 0),
		clock:  clock,
	}
}

func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error, timeout time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.checks = append(h.checks, HealthCheck{
		Name:    name,
		Check:   check,
		Timeout: timeout,
	})
}

// CheckAll runs every registered check; any failure marks the status unhealthy.
func (h *HealthChecker) CheckAll(ctx context.Context) HealthStatus {
	h.mu.RLock()
	checks := append([]HealthCheck(nil), h.checks...)
	h.mu.RUnlock()

	status := HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.clock.Now(),
		Checks:    make(map[string]string, len(checks)),
	}

	for _, check := range checks {
		if err := runCheck(ctx, check); err != nil {
			status.Status = StatusUnhealthy
			status.Checks[check.Name] = err.Error()
			continue
		}
		status.Checks[check.Name] = StatusHealthy
	}

	return status
}

func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusHealthy
}

func runCheck(ctx context.Context, check HealthCheck) error {
	if check.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, check.Timeout)
		defer cancel()
	}
	return check.Check(ctx)
}
