package ports

import (
	"context"

	"relaycast/internal/core/domain"
)

type BroadcastFilter struct {
	SessionID domain.SessionID
}

// VideoProvider is the narrow slice of the media provider API the core uses.
// Implementations return domain.ErrProviderUnavailable (wrapped) when a call
// could not complete.
type VideoProvider interface {
	ListStreams(ctx context.Context, sessionID domain.SessionID) ([]domain.Stream, error)
	ListBroadcasts(ctx context.Context, filter BroadcastFilter) ([]domain.Broadcast, error)
	SetStreamClassLists(ctx context.Context, sessionID domain.SessionID, mutations []domain.StreamClassMutation) error
	SetBroadcastLayout(ctx context.Context, broadcastID domain.BroadcastID, layout domain.Algorithm) error
	StartBroadcast(ctx context.Context, sessionID domain.SessionID, req domain.StartBroadcastRequest) (*domain.Broadcast, error)
	StopBroadcast(ctx context.Context, broadcastID domain.BroadcastID) error
	Signal(ctx context.Context, sessionID domain.SessionID, signal domain.Signal) error
	ForceDisconnect(ctx context.Context, sessionID domain.SessionID, connectionID domain.ConnectionID) error
}
