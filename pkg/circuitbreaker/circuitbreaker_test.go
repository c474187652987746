package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTestError = errors.New("test error")
	errIgnored   = errors.New("ignored error")
)

func testConfig() Config {
	return Config{
		FailureThreshold:    2,
		SuccessThreshold:    2,
		Timeout:             time.Second,
		MaxRequestsHalfOpen: 3,
	}
}

func fail() error    { return errTestError }
func succeed() error { return nil }

func openBreaker(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	for i := 0; i < cb.config.FailureThreshold; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	require.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_ClosedState_Success(t *testing.T) {
	cb := New(DefaultConfig())

	assert.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_ClosedState_FailureIsReturnedUnchanged(t *testing.T) {
	cb := New(DefaultConfig())

	err := cb.Execute(context.Background(), fail)
	assert.ErrorIs(t, err, errTestError)
	assert.Equal(t, StateClosed, cb.GetState())
	assert.Equal(t, 1, cb.GetStats().FailureCount)
}

func TestCircuitBreaker_OpenState_RejectsRequests(t *testing.T) {
	cb := NewWithClock(testConfig(), clockwork.NewFakeClock())
	openBreaker(t, cb)

	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_HalfOpenState_TransitionToClosed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewWithClock(testConfig(), clock)
	openBreaker(t, cb)

	clock.Advance(time.Second)

	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateHalfOpen, cb.GetState())
	require.NoError(t, cb.Execute(context.Background(), succeed))
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenState_FailureReopens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewWithClock(testConfig(), clock)
	openBreaker(t, cb)

	clock.Advance(time.Second)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errTestError)
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestCircuitBreaker_HalfOpenState_MaxRequestsLimit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cfg := testConfig()
	cfg.SuccessThreshold = 5
	cfg.MaxRequestsHalfOpen = 2
	cb := NewWithClock(cfg, clock)
	openBreaker(t, cb)

	clock.Advance(time.Second)

	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Execute(context.Background(), succeed), "request %d", i+1)
	}
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.ErrorIs(t, cb.Execute(context.Background(), succeed), ErrOpen)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	cfg := testConfig()
	cfg.IsFailure = func(err error) bool { return !errors.Is(err, errIgnored) }
	cb := New(cfg)

	for i := 0; i < 5; i++ {
		err := cb.Execute(context.Background(), func() error { return errIgnored })
		assert.ErrorIs(t, err, errIgnored)
	}
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestDo(t *testing.T) {
	cb := NewWithClock(testConfig(), clockwork.NewFakeClock())

	result, err := Do(context.Background(), cb, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	result, err = Do(context.Background(), cb, func() (string, error) { return "partial", errTestError })
	assert.ErrorIs(t, err, errTestError)
	assert.Empty(t, result)

	openBreaker(t, cb)
	_, err = Do(context.Background(), cb, func() (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrOpen)
}

func TestCircuitBreaker_OnStateChange_Callback(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cb := NewWithClock(testConfig(), clock)

	var (
		mu      sync.Mutex
		changes []State
		done    = make(chan struct{}, 8)
	)
	cb.OnStateChange(func(from, to State) {
		mu.Lock()
		changes = append(changes, to)
		mu.Unlock()
		done <- struct{}{}
	})

	openBreaker(t, cb)
	clock.Advance(time.Second)
	_ = cb.Execute(context.Background(), succeed)
	_ = cb.Execute(context.Background(), succeed)

	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for state change callback")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []State{StateOpen, StateHalfOpen, StateClosed}, changes)
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb := NewWithClock(testConfig(), clockwork.NewFakeClock())
	openBreaker(t, cb)

	cb.Reset()

	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Execute(context.Background(), succeed))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
