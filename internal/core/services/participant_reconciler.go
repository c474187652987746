package services

import (
	"context"
	"errors"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// ParticipantReconciler keeps participant-stream records in line with the
// provider's live streams. Records are scoped to the event that owns the
// session; rows of other events are never touched.
type ParticipantReconciler struct {
	provider      ports.VideoProvider
	inspector     ports.SessionInspector
	eventSessions ports.EventSessionRepository
	participants  ports.ParticipantStreamRepository
	metrics       ports.MetricsRecorder
	clock         clockwork.Clock
	logger        *zap.SugaredLogger
}

func NewParticipantReconciler(
	provider ports.VideoProvider,
	inspector ports.SessionInspector,
	eventSessions ports.EventSessionRepository,
	participants ports.ParticipantStreamRepository,
	metrics ports.MetricsRecorder,
	clock clockwork.Clock,
	logger *zap.SugaredLogger,
) *ParticipantReconciler {
	return &ParticipantReconciler{
		provider:      provider,
		inspector:     inspector,
		eventSessions: eventSessions,
		participants:  participants,
		metrics:       metrics,
		clock:         clock,
		logger:        logger,
	}
}

// PruneInvalid deletes the session's records whose stream is no longer live.
// It returns domain.ErrConfigurationMissing when the session has no event.
func (r *ParticipantReconciler) PruneInvalid(ctx context.Context, sessionID domain.SessionID) (int, error) {
	es, err := r.resolve(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if es == nil {
		return 0, fmt.Errorf("%w: session %s has no event", domain.ErrConfigurationMissing, sessionID)
	}

	live, err := r.inspector.ListLiveStreams(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	keep := make([]domain.StreamID, 0, len(live))
	for _, s := range live {
		keep = append(keep, s.ID)
	}

	pruned, err := r.participants.RemoveExcept(ctx, es.EventID, keep)
	if err != nil {
		return 0, fmt.Errorf("prune participant streams of event %s: %w", es.EventID, err)
	}

	if pruned > 0 {
		r.metrics.RecordParticipantStreamsPruned(pruned)
		r.logger.Infow("pruned stale participant streams",
			"session_id", sessionID,
			"event_id", es.EventID,
			"pruned", pruned,
		)
	}
	return pruned, nil
}

// RecordStream stores that registrantID publishes stream in the session's
// event. Unknown sessions and duplicates are no-ops.
func (r *ParticipantReconciler) RecordStream(ctx context.Context, sessionID domain.SessionID, registrantID domain.RegistrantID, stream domain.Stream) error {
	es, err := r.resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if es == nil {
		r.logger.Debugw("stream created before session was linked to an event",
			"session_id", sessionID,
			"stream_id", stream.ID,
		)
		return nil
	}

	record := &domain.ParticipantStream{
		ID:           uuid.NewString(),
		ConferenceID: es.ConferenceID,
		EventID:      es.EventID,
		RegistrantID: registrantID,
		ConnectionID: stream.ConnectionID,
		StreamID:     stream.ID,
		Kind:         domain.NormalizeStreamKind(stream.Kind),
		CreatedAt:    r.clock.Now(),
	}
	if err := r.participants.Add(ctx, record); err != nil {
		if errors.Is(err, domain.ErrParticipantStreamExists) {
			r.logger.Debugw("participant stream already recorded",
				"session_id", sessionID,
				"connection_id", stream.ConnectionID,
				"stream_id", stream.ID,
			)
			return nil
		}
		return fmt.Errorf("record participant stream %s: %w", stream.ID, err)
	}

	r.logger.Infow("participant stream recorded",
		"session_id", sessionID,
		"event_id", es.EventID,
		"registrant_id", registrantID,
		"connection_id", stream.ConnectionID,
		"stream_id", stream.ID,
		"kind", record.Kind,
	)
	return nil
}

func (r *ParticipantReconciler) RemoveStream(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID, streamID domain.StreamID) error {
	es, err := r.resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if es == nil {
		return nil
	}

	removed, err := r.participants.Remove(ctx, es.EventID, connectionID, streamID)
	if err != nil {
		return fmt.Errorf("remove participant stream %s: %w", streamID, err)
	}
	r.logger.Infow("participant stream removed",
		"session_id", sessionID,
		"event_id", es.EventID,
		"connection_id", connectionID,
		"stream_id", streamID,
		"found", removed,
	)
	return nil
}

// Disconnect force-disconnects a connection and drops all of its records.
func (r *ParticipantReconciler) Disconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error {
	if err := r.provider.ForceDisconnect(ctx, sessionID, connectionID); err != nil {
		return fmt.Errorf("force disconnect %s: %w", connectionID, err)
	}

	es, err := r.resolve(ctx, sessionID)
	if err != nil {
		return err
	}
	if es == nil {
		return nil
	}

	removed, err := r.participants.RemoveByConnection(ctx, es.EventID, connectionID)
	if err != nil {
		return fmt.Errorf("remove streams of connection %s: %w", connectionID, err)
	}
	r.logger.Infow("participant disconnected",
		"session_id", sessionID,
		"event_id", es.EventID,
		"connection_id", connectionID,
		"streams_removed", removed,
	)
	return nil
}

// resolve returns nil without error when the session has no event.
func (r *ParticipantReconciler) resolve(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	es, err := r.eventSessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrEventSessionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve event of session %s: %w", sessionID, err)
	}
	return es, nil
}
