package ports

import (
	"context"

	"relaycast/internal/core/domain"
)

type EventSessionRepository interface {
	Save(ctx context.Context, session *domain.EventSession) error
	GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error)
	GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error)
	GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error)
}

type ChannelStackRepository interface {
	Save(ctx context.Context, stack *domain.ChannelStack) error
	GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.ChannelStack, error)
}

type LayoutRepository interface {
	Create(ctx context.Context, record *domain.LayoutIntentRecord) error
	// Latest returns the most recently created record, or domain.ErrLayoutNotFound.
	Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error)
}

type ParticipantStreamRepository interface {
	// Add returns domain.ErrParticipantStreamExists when (event, connection, stream) is already recorded.
	Add(ctx context.Context, stream *domain.ParticipantStream) error
	Remove(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID, streamID domain.StreamID) (bool, error)
	RemoveByConnection(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID) (int, error)
	ListByEvent(ctx context.Context, eventID domain.EventID) ([]*domain.ParticipantStream, error)
	// RemoveExcept deletes the event's records whose stream id is not in keep.
	RemoveExcept(ctx context.Context, eventID domain.EventID, keep []domain.StreamID) (int, error)
}
