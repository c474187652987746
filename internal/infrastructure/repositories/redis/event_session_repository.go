package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisEventSessionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisEventSessionRepository(client *redis.Client) ports.EventSessionRepository {
	return &RedisEventSessionRepository{
		client: client,
		prefix: keyPrefix + "event_session:",
	}
}

func (r *RedisEventSessionRepository) sessionKey(id domain.EventSessionID) string {
	return r.prefix + string(id)
}

func (r *RedisEventSessionRepository) bySessionKey(sessionID domain.SessionID) string {
	return r.prefix + "by_session:" + string(sessionID)
}

func (r *RedisEventSessionRepository) byEventKey(eventID domain.EventID) string {
	return r.prefix + "by_event:" + string(eventID)
}

func (r *RedisEventSessionRepository) Save(ctx context.Context, session *domain.EventSession) error {
	data, err := json.Marshal(eventSessionRecord{
		ID:           session.ID,
		EventID:      session.EventID,
		ConferenceID: session.ConferenceID,
		SessionID:    session.SessionID,
		RTMPInput:    session.RTMPInput,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event session: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(session.ID), data, 0)
	if session.SessionID != "" {
		pipe.Set(ctx, r.bySessionKey(session.SessionID), string(session.ID), 0)
	}
	if session.EventID != "" {
		pipe.Set(ctx, r.byEventKey(session.EventID), string(session.ID), 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save event session in Redis: %w", err)
	}
	return nil
}

func (r *RedisEventSessionRepository) GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrEventSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event session from Redis: %w", err)
	}

	var record eventSessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event session: %w", err)
	}
	return &domain.EventSession{
		ID:           record.ID,
		EventID:      record.EventID,
		ConferenceID: record.ConferenceID,
		SessionID:    record.SessionID,
		RTMPInput:    record.RTMPInput,
	}, nil
}

func (r *RedisEventSessionRepository) GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	return r.resolve(ctx, r.bySessionKey(sessionID))
}

func (r *RedisEventSessionRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error) {
	return r.resolve(ctx, r.byEventKey(eventID))
}

func (r *RedisEventSessionRepository) resolve(ctx context.Context, indexKey string) (*domain.EventSession, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrEventSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve event session index: %w", err)
	}
	return r.GetByID(ctx, domain.EventSessionID(id))
}
