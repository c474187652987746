package monitoring

import (
	"context"
	"fmt"
	"time"

	"relaycast/pkg/circuitbreaker"
)

// AddStorageCheck registers a ping of the active repository backend.
func (h *HealthChecker) AddStorageCheck(ping func(ctx context.Context) error, timeout time.Duration) {
	h.AddCheck("storage", ping, timeout)
}

// AddProviderCheck fails readiness while the provider circuit breaker is open.
func (h *HealthChecker) AddProviderCheck(state func() circuitbreaker.State) {
	h.AddCheck("provider", func(ctx context.Context) error {
		if s := state(); s == circuitbreaker.StateOpen {
			return fmt.Errorf("circuit breaker %s", s)
		}
		return nil
	}, 0)
}
