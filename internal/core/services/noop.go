package services

import (
	"context"
	"time"

	"relaycast/internal/core/domain"
)

// NoopMetrics discards all measurements.
type NoopMetrics struct{}

func (NoopMetrics) RecordReconciliation(domain.ReconcileState, time.Duration) {}
func (NoopMetrics) RecordInvalidReferences(int)                               {}
func (NoopMetrics) RecordLayoutPushFailure()                                  {}
func (NoopMetrics) RecordBroadcastStarted(bool)                               {}
func (NoopMetrics) RecordBroadcastStopped(bool)                               {}
func (NoopMetrics) RecordBroadcastAnomaly(int)                                {}
func (NoopMetrics) RecordParticipantStreamsPruned(int)                        {}

// NoopPublisher drops all outcome events.
type NoopPublisher struct{}

func (NoopPublisher) PublishReconciled(context.Context, *domain.ReconcileOutcome) error { return nil }

func (NoopPublisher) PublishBroadcastStarted(context.Context, domain.SessionID, *domain.Broadcast) error {
	return nil
}

func (NoopPublisher) PublishBroadcastsStopped(context.Context, domain.SessionID, []domain.BroadcastID) error {
	return nil
}
