package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisParticipantStreamRepository keeps one hash per event. Fields are
// "<connection>|<stream>", which enforces the uniqueness key.
type RedisParticipantStreamRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisParticipantStreamRepository(client *redis.Client) ports.ParticipantStreamRepository {
	return &RedisParticipantStreamRepository{
		client: client,
		prefix: keyPrefix + "participants:",
	}
}

func (r *RedisParticipantStreamRepository) eventKey(eventID domain.EventID) string {
	return r.prefix + string(eventID)
}

func field(connectionID domain.ConnectionID, streamID domain.StreamID) string {
	return string(connectionID) + "|" + string(streamID)
}

func (r *RedisParticipantStreamRepository) Add(ctx context.Context, stream *domain.ParticipantStream) error {
	data, err := json.Marshal(participantFromDomain(stream))
	if err != nil {
		return fmt.Errorf("failed to marshal participant stream: %w", err)
	}

	added, err := r.client.HSetNX(ctx, r.eventKey(stream.EventID), field(stream.ConnectionID, stream.StreamID), data).Result()
	if err != nil {
		return fmt.Errorf("failed to add participant stream: %w", err)
	}
	if !added {
		return domain.ErrParticipantStreamExists
	}
	return nil
}

func (r *RedisParticipantStreamRepository) Remove(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID, streamID domain.StreamID) (bool, error) {
	n, err := r.client.HDel(ctx, r.eventKey(eventID), field(connectionID, streamID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove participant stream: %w", err)
	}
	return n > 0, nil
}

func (r *RedisParticipantStreamRepository) RemoveByConnection(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID) (int, error) {
	return r.removeWhere(ctx, eventID, func(s *domain.ParticipantStream) bool {
		return s.ConnectionID == connectionID
	})
}

func (r *RedisParticipantStreamRepository) RemoveExcept(ctx context.Context, eventID domain.EventID, keep []domain.StreamID) (int, error) {
	keepSet := make(map[domain.StreamID]struct{}, len(keep))
	for _, id := range keep {
		keepSet[id] = struct{}{}
	}
	return r.removeWhere(ctx, eventID, func(s *domain.ParticipantStream) bool {
		_, ok := keepSet[s.StreamID]
		return !ok
	})
}

func (r *RedisParticipantStreamRepository) ListByEvent(ctx context.Context, eventID domain.EventID) ([]*domain.ParticipantStream, error) {
	entries, err := r.load(ctx, eventID)
	if err != nil {
		return nil, err
	}
	streams := make([]*domain.ParticipantStream, 0, len(entries))
	for _, s := range entries {
		streams = append(streams, s)
	}
	return streams, nil
}

func (r *RedisParticipantStreamRepository) load(ctx context.Context, eventID domain.EventID) (map[string]*domain.ParticipantStream, error) {
	raw, err := r.client.HGetAll(ctx, r.eventKey(eventID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list participant streams: %w", err)
	}

	entries := make(map[string]*domain.ParticipantStream, len(raw))
	for f, data := range raw {
		var record participantStreamRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal participant stream: %w", err)
		}
		entries[f] = record.toDomain()
	}
	return entries, nil
}

func (r *RedisParticipantStreamRepository) removeWhere(ctx context.Context, eventID domain.EventID, match func(*domain.ParticipantStream) bool) (int, error) {
	entries, err := r.load(ctx, eventID)
	if err != nil {
		return 0, err
	}

	var fields []string
	for f, s := range entries {
		if match(s) {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return 0, nil
	}

	n, err := r.client.HDel(ctx, r.eventKey(eventID), fields...).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to remove participant streams: %w", err)
	}
	return int(n), nil
}
