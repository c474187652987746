package repositories

import (
	"context"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/cache"

	"github.com/jonboulle/clockwork"
)

// CachedEventSessionRepository serves event session lookups from a TTL cache.
// Misses and errors go to the wrapped repository; Save evicts the entries of
// the saved session. A session id that was reassigned to another event may
// resolve to the old mapping until its entry expires.
type CachedEventSessionRepository struct {
	inner ports.EventSessionRepository
	cache *cache.Cache[string, domain.EventSession]
}

var _ ports.EventSessionRepository = (*CachedEventSessionRepository)(nil)

func NewCachedEventSessionRepository(inner ports.EventSessionRepository, ttl time.Duration, clock clockwork.Clock) *CachedEventSessionRepository {
	return &CachedEventSessionRepository{
		inner: inner,
		cache: cache.New[string, domain.EventSession](ttl, clock),
	}
}

func idKey(id domain.EventSessionID) string { return "id:" + string(id) }
func sessionKey(id domain.SessionID) string { return "session:" + string(id) }
func eventKey(id domain.EventID) string     { return "event:" + string(id) }

func (r *CachedEventSessionRepository) Save(ctx context.Context, session *domain.EventSession) error {
	if old, err := r.inner.GetByID(ctx, session.ID); err == nil {
		r.evict(old)
	}
	if err := r.inner.Save(ctx, session); err != nil {
		return err
	}
	r.evict(session)
	return nil
}

func (r *CachedEventSessionRepository) GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error) {
	return r.load(ctx, idKey(id), func(ctx context.Context) (*domain.EventSession, error) {
		return r.inner.GetByID(ctx, id)
	})
}

func (r *CachedEventSessionRepository) GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	return r.load(ctx, sessionKey(sessionID), func(ctx context.Context) (*domain.EventSession, error) {
		return r.inner.GetBySessionID(ctx, sessionID)
	})
}

func (r *CachedEventSessionRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error) {
	return r.load(ctx, eventKey(eventID), func(ctx context.Context) (*domain.EventSession, error) {
		return r.inner.GetByEventID(ctx, eventID)
	})
}

// Stop ends the cache's background sweep.
func (r *CachedEventSessionRepository) Stop() {
	r.cache.Stop()
}

func (r *CachedEventSessionRepository) load(ctx context.Context, key string, fetch func(context.Context) (*domain.EventSession, error)) (*domain.EventSession, error) {
	value, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (domain.EventSession, error) {
		session, err := fetch(ctx)
		if err != nil {
			return domain.EventSession{}, err
		}
		return *session, nil
	})
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *CachedEventSessionRepository) evict(session *domain.EventSession) {
	r.cache.Delete(idKey(session.ID), sessionKey(session.SessionID), eventKey(session.EventID))
}
