package postgres

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresChannelStackRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresChannelStackRepository(pool *pgxpool.Pool) ports.ChannelStackRepository {
	return &PostgresChannelStackRepository{pool: pool}
}

func (r *PostgresChannelStackRepository) Save(ctx context.Context, stack *domain.ChannelStack) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO channel_stacks (event_id, rtmp_a_input_uri, rtmp_b_input_uri)
VALUES ($1, $2, $3)
ON CONFLICT (event_id) DO UPDATE SET
	rtmp_a_input_uri = EXCLUDED.rtmp_a_input_uri,
	rtmp_b_input_uri = EXCLUDED.rtmp_b_input_uri
`, string(stack.EventID), stack.RTMPAInputURI, stack.RTMPBInputURI)
	if err != nil {
		return fmt.Errorf("failed to save channel stack: %w", err)
	}
	return nil
}

func (r *PostgresChannelStackRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.ChannelStack, error) {
	stack := &domain.ChannelStack{EventID: eventID}
	err := r.pool.QueryRow(ctx, `
SELECT rtmp_a_input_uri, rtmp_b_input_uri
FROM channel_stacks
WHERE event_id = $1
`, string(eventID)).Scan(&stack.RTMPAInputURI, &stack.RTMPBInputURI)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrChannelStackNotFound
		}
		return nil, fmt.Errorf("failed to query channel stack: %w", err)
	}
	return stack, nil
}
