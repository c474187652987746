package memory

import (
	"context"
	"sync"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
)

type participantKey struct {
	eventID      domain.EventID
	connectionID domain.ConnectionID
	streamID     domain.StreamID
}

func keyOf(s *domain.ParticipantStream) participantKey {
	return participantKey{eventID: s.EventID, connectionID: s.ConnectionID, streamID: s.StreamID}
}

type MemoryParticipantStreamRepository struct {
	streams map[participantKey]domain.ParticipantStream
	mu      sync.RWMutex
}

func NewMemoryParticipantStreamRepository() ports.ParticipantStreamRepository {
	return &MemoryParticipantStreamRepository{
		streams: make(map[participantKey]domain.ParticipantStream),
	}
}

func (r *MemoryParticipantStreamRepository) Add(ctx context.Context, stream *domain.ParticipantStream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyOf(stream)
	if _, exists := r.streams[key]; exists {
		return domain.ErrParticipantStreamExists
	}
	r.streams[key] = *stream
	return nil
}

func (r *MemoryParticipantStreamRepository) Remove(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID, streamID domain.StreamID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := participantKey{eventID: eventID, connectionID: connectionID, streamID: streamID}
	if _, exists := r.streams[key]; !exists {
		return false, nil
	}
	delete(r.streams, key)
	return true, nil
}

func (r *MemoryParticipantStreamRepository) RemoveByConnection(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.streams {
		if key.eventID == eventID && key.connectionID == connectionID {
			delete(r.streams, key)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryParticipantStreamRepository) ListByEvent(ctx context.Context, eventID domain.EventID) ([]*domain.ParticipantStream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var streams []*domain.ParticipantStream
	for key, stream := range r.streams {
		if key.eventID == eventID {
			s := stream
			streams = append(streams, &s)
		}
	}
	return streams, nil
}

func (r *MemoryParticipantStreamRepository) RemoveExcept(ctx context.Context, eventID domain.EventID, keep []domain.StreamID) (int, error) {
	keepSet := make(map[domain.StreamID]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key := range r.streams {
		if key.eventID != eventID {
			continue
		}
		if _, ok := keepSet[key.streamID]; !ok {
			delete(r.streams, key)
			removed++
		}
	}
	return removed, nil
}
