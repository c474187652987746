package ports

import (
	"context"
	"time"

	"relaycast/internal/core/domain"
)

type SessionInspector interface {
	ListLiveStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error)
	ListBroadcasts(ctx context.Context, sessionID domain.SessionID) ([]domain.Broadcast, error)
	ListStartedBroadcasts(ctx context.Context, sessionID domain.SessionID) ([]domain.Broadcast, error)
}

type LayoutTranslator interface {
	Translate(intent domain.LayoutIntent) domain.LayoutDescriptor
}

type LayoutApplier interface {
	Apply(ctx context.Context, sessionID domain.SessionID, descriptor domain.LayoutDescriptor) (*domain.ApplyReport, error)
}

type BroadcastManager interface {
	EnsureStarted(ctx context.Context, sessionID domain.SessionID, dest domain.RTMPDestination, current domain.LayoutDescriptor) (*domain.EnsureResult, error)
	StopAll(ctx context.Context, sessionID domain.SessionID) (*domain.StopReport, error)
}

type ParticipantReconciler interface {
	PruneInvalid(ctx context.Context, sessionID domain.SessionID) (int, error)
	RecordStream(ctx context.Context, sessionID domain.SessionID, registrantID domain.RegistrantID, stream domain.Stream) error
	RemoveStream(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID, streamID domain.StreamID) error
	Disconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error
}

type Orchestrator interface {
	Reconcile(ctx context.Context, record *domain.LayoutIntentRecord) *domain.ReconcileOutcome
}

type EventBroadcastService interface {
	Details(ctx context.Context, eventID domain.EventID) (*domain.EventBroadcastDetails, error)
	Start(ctx context.Context, eventID domain.EventID) (*domain.EnsureResult, error)
	Stop(ctx context.Context, eventID domain.EventID) (*domain.StopReport, error)
}

type LayoutService interface {
	Submit(ctx context.Context, eventSessionID domain.EventSessionID, intent domain.LayoutIntent) (*domain.LayoutIntentRecord, *domain.ReconcileOutcome, error)
	Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error)
}

// ConfigurationService upserts the event-session and channel rows reconciliation reads.
type ConfigurationService interface {
	SaveEventSession(ctx context.Context, session *domain.EventSession) error
	SaveChannelStack(ctx context.Context, stack *domain.ChannelStack) error
}

// MetricsRecorder receives reconciliation and broadcast lifecycle measurements.
type MetricsRecorder interface {
	RecordReconciliation(state domain.ReconcileState, duration time.Duration)
	RecordInvalidReferences(count int)
	RecordLayoutPushFailure()
	RecordBroadcastStarted(success bool)
	RecordBroadcastStopped(success bool)
	RecordBroadcastAnomaly(extra int)
	RecordParticipantStreamsPruned(count int)
}

// OutcomePublisher fans reconciliation results out to other instances.
type OutcomePublisher interface {
	PublishReconciled(ctx context.Context, outcome *domain.ReconcileOutcome) error
	PublishBroadcastStarted(ctx context.Context, sessionID domain.SessionID, broadcast *domain.Broadcast) error
	PublishBroadcastsStopped(ctx context.Context, sessionID domain.SessionID, stopped []domain.BroadcastID) error
}
