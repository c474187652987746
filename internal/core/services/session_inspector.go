package services

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"go.uber.org/zap"
)

// SessionInspector reads live session state from the provider. Every call goes
// to the provider; nothing is cached between calls.
type SessionInspector struct {
	provider ports.VideoProvider
	logger   *zap.SugaredLogger
}

func NewSessionInspector(provider ports.VideoProvider, logger *zap.SugaredLogger) *SessionInspector {
	return &SessionInspector{
		provider: provider,
		logger:   logger,
	}
}

func (s *SessionInspector) ListLiveStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error) {
	streams, err := s.provider.ListStreams(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list streams for session %s: %w", sessionID, err)
	}
	if streams == nil {
		streams = []domain.Stream{}
	}

	s.logger.Debugw("listed live streams",
		"session_id", sessionID,
		"streams", len(streams),
	)
	return streams, nil
}

// ListBroadcasts returns every broadcast of the session regardless of status.
func (s *SessionInspector) ListBroadcasts(ctx context.Context, sessionID domain.SessionID) ([]domain.Broadcast, error) {
	broadcasts, err := s.provider.ListBroadcasts(ctx, ports.BroadcastFilter{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("list broadcasts for session %s: %w", sessionID, err)
	}

	// The provider filter is trusted but a broadcast that names another
	// session must never be acted on.
	owned := make([]domain.Broadcast, 0, len(broadcasts))
	for _, b := range broadcasts {
		if b.SessionID != "" && b.SessionID != sessionID {
			s.logger.Warnw("provider returned broadcast of another session",
				"session_id", sessionID,
				"broadcast_id", b.ID,
				"broadcast_session_id", b.SessionID,
			)
			continue
		}
		owned = append(owned, b)
	}
	return owned, nil
}

func (s *SessionInspector) ListStartedBroadcasts(ctx context.Context, sessionID domain.SessionID) ([]domain.Broadcast, error) {
	broadcasts, err := s.ListBroadcasts(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return domain.StartedBroadcasts(broadcasts), nil
}
