package postgres

import (
	"context"
	"fmt"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresLayoutRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresLayoutRepository(pool *pgxpool.Pool) ports.LayoutRepository {
	return &PostgresLayoutRepository{pool: pool}
}

func (r *PostgresLayoutRepository) Create(ctx context.Context, record *domain.LayoutIntentRecord) error {
	data, err := domain.MarshalLayoutData(record.Intent)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
INSERT INTO event_vonage_session_layouts (id, event_vonage_session_id, layout_data, created_at)
VALUES ($1, $2, $3, $4)
`, string(record.ID), string(record.EventSessionID), data, record.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert layout: %w", err)
	}
	return nil
}

// Latest orders by created_at, then insertion order.
func (r *PostgresLayoutRepository) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	var (
		id        string
		data      []byte
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, `
SELECT id, layout_data, created_at
FROM event_vonage_session_layouts
WHERE event_vonage_session_id = $1
ORDER BY created_at DESC, seq DESC
LIMIT 1
`, string(eventSessionID)).Scan(&id, &data, &createdAt)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrLayoutNotFound
		}
		return nil, fmt.Errorf("failed to query latest layout: %w", err)
	}

	intent, err := domain.ParseLayoutData(data)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", id, err)
	}
	return &domain.LayoutIntentRecord{
		ID:             domain.LayoutID(id),
		EventSessionID: eventSessionID,
		Intent:         intent,
		CreatedAt:      createdAt.UTC(),
	}, nil
}
