package services

import (
	"context"
	"errors"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/tracing"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Orchestrator reconciles one layout intent:
// Idle -> Pruning -> Translating -> Applying -> Signalling -> Done.
//
// It works only on the record it is handed and never re-reads the latest
// intent. Concurrent reconciliations of one session are not serialized; the
// last to reach the provider wins. A failed reconciliation is not retried here.
type Orchestrator struct {
	eventSessions ports.EventSessionRepository
	reconciler    ports.ParticipantReconciler
	translator    ports.LayoutTranslator
	applier       ports.LayoutApplier
	provider      ports.VideoProvider
	metrics       ports.MetricsRecorder
	publisher     ports.OutcomePublisher
	clock         clockwork.Clock
	logger        *zap.SugaredLogger
}

func NewOrchestrator(
	eventSessions ports.EventSessionRepository,
	reconciler ports.ParticipantReconciler,
	translator ports.LayoutTranslator,
	applier ports.LayoutApplier,
	provider ports.VideoProvider,
	metrics ports.MetricsRecorder,
	publisher ports.OutcomePublisher,
	clock clockwork.Clock,
	logger *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		eventSessions: eventSessions,
		reconciler:    reconciler,
		translator:    translator,
		applier:       applier,
		provider:      provider,
		metrics:       metrics,
		publisher:     publisher,
		clock:         clock,
		logger:        logger,
	}
}

func (o *Orchestrator) Reconcile(ctx context.Context, record *domain.LayoutIntentRecord) *domain.ReconcileOutcome {
	outcome := &domain.ReconcileOutcome{
		State:     domain.ReconcileIdle,
		StartedAt: o.clock.Now(),
	}
	defer o.finish(ctx, outcome)

	if record == nil || record.Intent == nil {
		o.fail(outcome, fmt.Errorf("%w: empty layout record", domain.ErrInvalidLayoutData))
		return outcome
	}
	outcome.IntentID = record.ID
	outcome.EventSessionID = record.EventSessionID
	outcome.Kind = record.Intent.Kind()

	es, err := o.eventSessions.GetByID(ctx, record.EventSessionID)
	if err != nil {
		if errors.Is(err, domain.ErrEventSessionNotFound) {
			err = fmt.Errorf("%w: %v", domain.ErrConfigurationMissing, err)
		}
		o.fail(outcome, err)
		return outcome
	}
	if es.SessionID == "" {
		o.fail(outcome, fmt.Errorf("%w: event session %s has no provider session", domain.ErrConfigurationMissing, es.ID))
		return outcome
	}
	outcome.SessionID = es.SessionID

	// Pruning. Only a provider outage stops the reconciliation here.
	err = o.step(ctx, outcome, domain.ReconcilePruning, func(ctx context.Context) error {
		pruned, err := o.reconciler.PruneInvalid(ctx, outcome.SessionID)
		outcome.Pruned = pruned
		if err != nil && !errors.Is(err, domain.ErrProviderUnavailable) {
			o.logger.Warnw("participant stream pruning skipped",
				"session_id", outcome.SessionID,
				"intent_id", outcome.IntentID,
				"error", err,
			)
			return nil
		}
		return err
	})
	if err != nil {
		return outcome
	}

	var descriptor domain.LayoutDescriptor
	_ = o.step(ctx, outcome, domain.ReconcileTranslating, func(context.Context) error {
		descriptor = o.translator.Translate(record.Intent)
		return nil
	})

	err = o.step(ctx, outcome, domain.ReconcileApplying, func(ctx context.Context) error {
		report, err := o.applier.Apply(ctx, outcome.SessionID, descriptor)
		if report != nil {
			outcome.InvalidStreams = report.InvalidStreams
			outcome.BroadcastFailures = report.BroadcastFailures
		}
		return err
	})
	if err != nil {
		return outcome
	}

	err = o.step(ctx, outcome, domain.ReconcileSignalling, func(ctx context.Context) error {
		data, err := domain.MarshalLayoutData(record.Intent)
		if err != nil {
			return err
		}
		return o.provider.Signal(ctx, outcome.SessionID, domain.Signal{Type: domain.LayoutSignalType, Data: data})
	})
	if err != nil {
		return outcome
	}

	outcome.State = domain.ReconcileDone
	return outcome
}

// step runs fn as state, failing the outcome on error.
func (o *Orchestrator) step(ctx context.Context, outcome *domain.ReconcileOutcome, state domain.ReconcileState, fn func(ctx context.Context) error) error {
	outcome.State = state

	ctx, span := tracing.TraceReconcileStep(ctx, string(state), string(outcome.SessionID), string(outcome.IntentID))
	defer span.End()
	span.SetAttributes(tracing.LayoutKindKey.String(string(outcome.Kind)))

	if err := fn(ctx); err != nil {
		tracing.RecordError(ctx, err)
		o.fail(outcome, err)
		return err
	}
	return nil
}

func (o *Orchestrator) fail(outcome *domain.ReconcileOutcome, err error) {
	outcome.FailedAt = outcome.State
	outcome.State = domain.ReconcileFailed
	outcome.Err = err
}

func (o *Orchestrator) finish(ctx context.Context, outcome *domain.ReconcileOutcome) {
	outcome.FinishedAt = o.clock.Now()
	o.metrics.RecordReconciliation(outcome.State, outcome.Duration())

	fields := []interface{}{
		"session_id", outcome.SessionID,
		"event_session_id", outcome.EventSessionID,
		"intent_id", outcome.IntentID,
		"layout", outcome.Kind,
		"pruned", outcome.Pruned,
		"invalid_streams", len(outcome.InvalidStreams),
		"broadcast_failures", len(outcome.BroadcastFailures),
		"duration", outcome.Duration(),
	}
	if outcome.State == domain.ReconcileFailed {
		o.logger.Errorw("layout reconciliation failed", append(fields, "failed_at", outcome.FailedAt, "error", outcome.Err)...)
	} else {
		o.logger.Infow("layout reconciled", fields...)
	}

	if err := o.publisher.PublishReconciled(context.WithoutCancel(ctx), outcome); err != nil {
		o.logger.Warnw("failed to publish reconciliation outcome", "intent_id", outcome.IntentID, "error", err)
	}
}
