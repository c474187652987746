package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"relaycast/pkg/circuitbreaker"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestHealthChecker_AllHealthy(t *testing.T) {
	clock := clockwork.NewFakeClock()
	checker := NewHealthChecker(clock)
	checker.AddStorageCheck(func(ctx context.Context) error { return nil }, time.Second)
	checker.AddProviderCheck(func() circuitbreaker.State { return circuitbreaker.StateClosed })

	status := checker.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status.Status)
	assert.Equal(t, clock.Now(), status.Timestamp)
	assert.Equal(t, map[string]string{"storage": StatusHealthy, "provider": StatusHealthy}, status.Checks)
	assert.True(t, checker.IsReady(context.Background()))
}

func TestHealthChecker_StorageFailure(t *testing.T) {
	checker := NewHealthChecker(clockwork.NewFakeClock())
	checker.AddStorageCheck(func(ctx context.Context) error { return errors.New("connection refused") }, time.Second)

	status := checker.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Equal(t, "connection refused", status.Checks["storage"])
	assert.False(t, checker.IsReady(context.Background()))
}

func TestHealthChecker_OpenBreakerNotReady(t *testing.T) {
	checker := NewHealthChecker(clockwork.NewFakeClock())
	checker.AddProviderCheck(func() circuitbreaker.State { return circuitbreaker.StateOpen })

	status := checker.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status.Status)
	assert.Contains(t, status.Checks["provider"], "open")
}

func TestHealthChecker_AppliesTimeout(t *testing.T) {
	checker := NewHealthChecker(nil)
	checker.AddStorageCheck(func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		assert.True(t, ok)
		return nil
	}, time.Second)

	assert.True(t, checker.IsReady(context.Background()))
}
