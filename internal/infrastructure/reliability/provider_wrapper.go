package reliability

import (
	"context"
	"errors"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/circuitbreaker"
	"relaycast/pkg/retry"

	"go.uber.org/zap"
)

// ProviderWrapper retries VideoProvider reads on ErrProviderUnavailable and,
// when built with a breaker, guards every call with it. Mutating calls run at
// most once.
type ProviderWrapper struct {
	provider ports.VideoProvider
	logger   *zap.SugaredLogger

	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

var _ ports.VideoProvider = (*ProviderWrapper)(nil)

func NewProviderWrapper(
	provider ports.VideoProvider,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *ProviderWrapper {
	// A rejected request says nothing about provider health.
	cbConfig.IsFailure = func(err error) bool {
		return errors.Is(err, domain.ErrProviderUnavailable)
	}

	wrapper := &ProviderWrapper{
		provider:       provider,
		logger:         logger,
		retryConfig:    retry.OnlyRetry(retryConfig, domain.ErrProviderUnavailable),
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("provider circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

// NewRetryingProvider retries reads without a circuit breaker.
func NewRetryingProvider(provider ports.VideoProvider, retryConfig retry.Config, logger *zap.SugaredLogger) *ProviderWrapper {
	return &ProviderWrapper{
		provider:    provider,
		logger:      logger,
		retryConfig: retry.OnlyRetry(retryConfig, domain.ErrProviderUnavailable),
	}
}

// State reports the breaker state for health checks. Without a breaker it is
// always closed.
func (w *ProviderWrapper) State() circuitbreaker.State {
	if w.circuitBreaker == nil {
		return circuitbreaker.StateClosed
	}
	return w.circuitBreaker.GetState()
}

func (w *ProviderWrapper) ListStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error) {
	return retry.RetryWithResult(ctx, w.retryConfig, func() ([]domain.Stream, error) {
		return guardedResult(ctx, w.circuitBreaker, func() ([]domain.Stream, error) {
			return w.provider.ListStreams(ctx, sessionID)
		})
	})
}

func (w *ProviderWrapper) ListBroadcasts(ctx context.Context, filter ports.BroadcastFilter) ([]domain.Broadcast, error) {
	return retry.RetryWithResult(ctx, w.retryConfig, func() ([]domain.Broadcast, error) {
		return guardedResult(ctx, w.circuitBreaker, func() ([]domain.Broadcast, error) {
			return w.provider.ListBroadcasts(ctx, filter)
		})
	})
}

func (w *ProviderWrapper) SetStreamClassLists(ctx context.Context, sessionID domain.SessionID, mutations []domain.StreamClassMutation) error {
	return guarded(ctx, w.circuitBreaker, func() error {
		return w.provider.SetStreamClassLists(ctx, sessionID, mutations)
	})
}

func (w *ProviderWrapper) SetBroadcastLayout(ctx context.Context, broadcastID domain.BroadcastID, layout domain.Algorithm) error {
	return guarded(ctx, w.circuitBreaker, func() error {
		return w.provider.SetBroadcastLayout(ctx, broadcastID, layout)
	})
}

func (w *ProviderWrapper) StartBroadcast(ctx context.Context, sessionID domain.SessionID, req domain.StartBroadcastRequest) (*domain.Broadcast, error) {
	return guardedResult(ctx, w.circuitBreaker, func() (*domain.Broadcast, error) {
		return w.provider.StartBroadcast(ctx, sessionID, req)
	})
}

func (w *ProviderWrapper) StopBroadcast(ctx context.Context, broadcastID domain.BroadcastID) error {
	return guarded(ctx, w.circuitBreaker, func() error {
		return w.provider.StopBroadcast(ctx, broadcastID)
	})
}

func (w *ProviderWrapper) Signal(ctx context.Context, sessionID domain.SessionID, signal domain.Signal) error {
	return guarded(ctx, w.circuitBreaker, func() error {
		return w.provider.Signal(ctx, sessionID, signal)
	})
}

func (w *ProviderWrapper) ForceDisconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	return guarded(ctx, w.circuitBreaker, func() error {
		return w.provider.ForceDisconnect(ctx, sessionID, connectionID)
	})
}

// guarded maps an open breaker to ErrProviderUnavailable. A nil breaker runs fn directly.
func guarded(ctx context.Context, cb *circuitbreaker.CircuitBreaker, fn func() error) error {
	if cb == nil {
		return fn()
	}
	err := cb.Execute(ctx, fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return err
}

func guardedResult[T any](ctx context.Context, cb *circuitbreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	if cb == nil {
		return fn()
	}
	result, err := circuitbreaker.Do(ctx, cb, fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return result, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return result, err
}
