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

type RedisLayoutRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisLayoutRepository(client *redis.Client) ports.LayoutRepository {
	return &RedisLayoutRepository{
		client: client,
		prefix: keyPrefix + "layout:",
	}
}

func (r *RedisLayoutRepository) layoutKey(id domain.LayoutID) string {
	return r.prefix + string(id)
}

// historyKey is a sorted set of layout ids scored by creation time.
func (r *RedisLayoutRepository) historyKey(eventSessionID domain.EventSessionID) string {
	return keyPrefix + "layouts:" + string(eventSessionID)
}

func (r *RedisLayoutRepository) Create(ctx context.Context, record *domain.LayoutIntentRecord) error {
	stored, err := toLayoutRecord(record)
	if err != nil {
		return err
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal layout: %w", err)
	}

	// The record and its index entry are written in one MULTI so neither can
	// exist without the other. ZAddNX leaves the score of a duplicate id alone.
	var created *redis.BoolCmd
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		created = pipe.SetNX(ctx, r.layoutKey(record.ID), data, 0)
		pipe.ZAddNX(ctx, r.historyKey(record.EventSessionID), redis.Z{
			Score:  float64(record.CreatedAt.UnixMilli()),
			Member: string(record.ID),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store layout in Redis: %w", err)
	}
	if !created.Val() {
		return fmt.Errorf("layout already exists: %s", record.ID)
	}
	return nil
}

func (r *RedisLayoutRepository) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	ids, err := r.client.ZRevRange(ctx, r.historyKey(eventSessionID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read layout history: %w", err)
	}
	if len(ids) == 0 {
		return nil, domain.ErrLayoutNotFound
	}

	data, err := r.client.Get(ctx, r.layoutKey(domain.LayoutID(ids[0]))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrLayoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get layout from Redis: %w", err)
	}

	var stored layoutRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal layout: %w", err)
	}
	return stored.toDomain()
}
