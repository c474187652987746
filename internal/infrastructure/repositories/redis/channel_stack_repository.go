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

type RedisChannelStackRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisChannelStackRepository(client *redis.Client) ports.ChannelStackRepository {
	return &RedisChannelStackRepository{
		client: client,
		prefix: keyPrefix + "channel_stack:",
	}
}

func (r *RedisChannelStackRepository) Save(ctx context.Context, stack *domain.ChannelStack) error {
	data, err := json.Marshal(channelStackRecord{
		EventID:       stack.EventID,
		RTMPAInputURI: stack.RTMPAInputURI,
		RTMPBInputURI: stack.RTMPBInputURI,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal channel stack: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+string(stack.EventID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set channel stack in Redis: %w", err)
	}
	return nil
}

func (r *RedisChannelStackRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.ChannelStack, error) {
	data, err := r.client.Get(ctx, r.prefix+string(eventID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrChannelStackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get channel stack from Redis: %w", err)
	}

	var record channelStackRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel stack: %w", err)
	}
	return &domain.ChannelStack{
		EventID:       record.EventID,
		RTMPAInputURI: record.RTMPAInputURI,
		RTMPBInputURI: record.RTMPBInputURI,
	}, nil
}
