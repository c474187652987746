package memory

import (
	"context"
	"sync"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
)

type MemoryEventSessionRepository struct {
	sessions map[domain.EventSessionID]domain.EventSession
	mu       sync.RWMutex
}

func NewMemoryEventSessionRepository() ports.EventSessionRepository {
	return &MemoryEventSessionRepository{
		sessions: make(map[domain.EventSessionID]domain.EventSession),
	}
}

func (r *MemoryEventSessionRepository) Save(ctx context.Context, session *domain.EventSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = *session
	return nil
}

func (r *MemoryEventSessionRepository) GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, domain.ErrEventSessionNotFound
	}
	return &session, nil
}

func (r *MemoryEventSessionRepository) GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	return r.find(func(s domain.EventSession) bool { return s.SessionID == sessionID })
}

func (r *MemoryEventSessionRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error) {
	return r.find(func(s domain.EventSession) bool { return s.EventID == eventID })
}

func (r *MemoryEventSessionRepository) find(match func(domain.EventSession) bool) (*domain.EventSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, session := range r.sessions {
		if match(session) {
			found := session
			return &found, nil
		}
	}
	return nil, domain.ErrEventSessionNotFound
}
