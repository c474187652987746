package postgres

import (
	"context"
	"fmt"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresParticipantStreamRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresParticipantStreamRepository(pool *pgxpool.Pool) ports.ParticipantStreamRepository {
	return &PostgresParticipantStreamRepository{pool: pool}
}

func (r *PostgresParticipantStreamRepository) Add(ctx context.Context, stream *domain.ParticipantStream) error {
	tag, err := r.pool.Exec(ctx, `
INSERT INTO event_participant_streams
	(id, conference_id, event_id, registrant_id, vonage_connection_id, vonage_stream_id, vonage_stream_type, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (event_id, vonage_connection_id, vonage_stream_id) DO NOTHING
`, stream.ID, string(stream.ConferenceID), string(stream.EventID), string(stream.RegistrantID),
		string(stream.ConnectionID), string(stream.StreamID), string(stream.Kind), stream.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert participant stream: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantStreamExists
	}
	return nil
}

func (r *PostgresParticipantStreamRepository) Remove(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID, streamID domain.StreamID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM event_participant_streams
WHERE event_id = $1 AND vonage_connection_id = $2 AND vonage_stream_id = $3
`, string(eventID), string(connectionID), string(streamID))
	if err != nil {
		return false, fmt.Errorf("failed to delete participant stream: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresParticipantStreamRepository) RemoveByConnection(ctx context.Context, eventID domain.EventID, connectionID domain.ConnectionID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM event_participant_streams
WHERE event_id = $1 AND vonage_connection_id = $2
`, string(eventID), string(connectionID))
	if err != nil {
		return 0, fmt.Errorf("failed to delete connection streams: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresParticipantStreamRepository) RemoveExcept(ctx context.Context, eventID domain.EventID, keep []domain.StreamID) (int, error) {
	ids := make([]string, 0, len(keep))
	for _, id := range keep {
		ids = append(ids, string(id))
	}
	tag, err := r.pool.Exec(ctx, `
DELETE FROM event_participant_streams
WHERE event_id = $1 AND NOT (vonage_stream_id = ANY($2))
`, string(eventID), ids)
	if err != nil {
		return 0, fmt.Errorf("failed to prune participant streams: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresParticipantStreamRepository) ListByEvent(ctx context.Context, eventID domain.EventID) ([]*domain.ParticipantStream, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, conference_id, registrant_id, vonage_connection_id, vonage_stream_id, vonage_stream_type, created_at
FROM event_participant_streams
WHERE event_id = $1
ORDER BY created_at
`, string(eventID))
	if err != nil {
		return nil, fmt.Errorf("failed to list participant streams: %w", err)
	}
	defer rows.Close()

	var streams []*domain.ParticipantStream
	for rows.Next() {
		var (
			id, conferenceID, registrantID, connectionID, streamID, kind string
			createdAt                                                    time.Time
		)
		if err := rows.Scan(&id, &conferenceID, &registrantID, &connectionID, &streamID, &kind, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant stream: %w", err)
		}
		streams = append(streams, &domain.ParticipantStream{
			ID:           id,
			ConferenceID: domain.ConferenceID(conferenceID),
			EventID:      eventID,
			RegistrantID: domain.RegistrantID(registrantID),
			ConnectionID: domain.ConnectionID(connectionID),
			StreamID:     domain.StreamID(streamID),
			Kind:         domain.StreamKind(kind),
			CreatedAt:    createdAt.UTC(),
		})
	}
	return streams, rows.Err()
}
