package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrOpen is returned when the breaker rejects a call without running it.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // Normal operation, requests pass through
	StateOpen                  // Circuit is open, requests fail immediately
	StateHalfOpen              // Testing if service recovered, limited requests allowed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // Number of failures before opening circuit
	SuccessThreshold    int           // Number of successes in half-open state to close circuit
	Timeout             time.Duration // Time to wait before transitioning from open to half-open
	MaxRequestsHalfOpen int           // Max requests allowed in half-open state

	// IsFailure decides whether an error counts against the breaker.
	// Nil counts every error.
	IsFailure func(err error) bool
}

// DefaultConfig returns a default circuit breaker configuration
func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 3,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	config Config
	clock  clockwork.Clock

	mu               sync.RWMutex
	state            State
	failureCount     int
	successCount     int
	halfOpenRequests int
	lastFailureTime  time.Time
	stateChangeTime  time.Time

	onStateChange func(from, to State)
}

// New creates a new circuit breaker with the given configuration
func New(config Config) *CircuitBreaker {
	return NewWithClock(config, clockwork.NewRealClock())
}

// NewWithClock is New with an explicit time source.
func NewWithClock(config Config, clock clockwork.Clock) *CircuitBreaker {
	return &CircuitBreaker{
		config:          config,
		clock:           clock,
		state:           StateClosed,
		stateChangeTime: clock.Now(),
	}
}

// OnStateChange sets a callback function that is called when the circuit breaker state changes
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute executes a function through the circuit breaker
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if !cb.allowRequest() {
		return fmt.Errorf("%w (state %s)", ErrOpen, cb.getState())
	}

	err := fn()
	cb.record(err)
	return err
}

// Do runs fn through cb and returns its result.
func Do[T any](ctx context.Context, cb *CircuitBreaker, fn func() (T, error)) (T, error) {
	var result T
	err := cb.Execute(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

func (cb *CircuitBreaker) record(err error) {
	if err == nil {
		cb.onSuccess()
		return
	}
	if cb.config.IsFailure != nil && !cb.config.IsFailure(err) {
		cb.onSuccess()
		return
	}
	cb.onFailure()
}

// allowRequest checks if a request should be allowed based on current state
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.clock.Now()

	if cb.state == StateOpen {
		if now.Sub(cb.stateChangeTime) < cb.config.Timeout {
			return false
		}
		cb.transitionTo(StateHalfOpen)
	}

	if cb.state == StateHalfOpen {
		if cb.halfOpenRequests >= cb.config.MaxRequestsHalfOpen {
			return false
		}
		cb.halfOpenRequests++
		return true
	}

	return true
}

// onFailure records a failure and updates circuit breaker state
func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.clock.Now()
	cb.successCount = 0

	if cb.state == StateClosed && cb.failureCount >= cb.config.FailureThreshold {
		cb.transitionTo(StateOpen)
	} else if cb.state == StateHalfOpen {
		// Any failure in half-open state goes back to open
		cb.transitionTo(StateOpen)
	}
}

// onSuccess records a success and updates circuit breaker state
func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successCount++
	cb.failureCount = 0

	if cb.state == StateHalfOpen && cb.successCount >= cb.config.SuccessThreshold {
		cb.transitionTo(StateClosed)
	}
}

// transitionTo must be called with mu held.
func (cb *CircuitBreaker) transitionTo(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.stateChangeTime = cb.clock.Now()

	if newState == StateClosed || newState == StateHalfOpen {
		cb.failureCount = 0
		cb.successCount = 0
		cb.halfOpenRequests = 0
	}

	if cb.onStateChange != nil {
		go cb.onStateChange(oldState, newState)
	}
}

func (cb *CircuitBreaker) getState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	return cb.getState()
}

// GetStats returns current circuit breaker statistics
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	return Stats{
		State:            cb.state,
		FailureCount:     cb.failureCount,
		SuccessCount:     cb.successCount,
		HalfOpenRequests: cb.halfOpenRequests,
		LastFailureTime:  cb.lastFailureTime,
		StateChangeTime:  cb.stateChangeTime,
	}
}

// Stats holds circuit breaker statistics
type Stats struct {
	State            State
	FailureCount     int
	SuccessCount     int
	HalfOpenRequests int
	LastFailureTime  time.Time
	StateChangeTime  time.Time
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(StateClosed)
}
