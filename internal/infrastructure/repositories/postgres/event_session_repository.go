package postgres

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresEventSessionRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresEventSessionRepository(pool *pgxpool.Pool) ports.EventSessionRepository {
	return &PostgresEventSessionRepository{pool: pool}
}

const selectEventSession = `
SELECT id, event_id, conference_id, vonage_session_id, rtmp_input_name
FROM event_vonage_sessions
`

func (r *PostgresEventSessionRepository) Save(ctx context.Context, session *domain.EventSession) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO event_vonage_sessions (id, event_id, conference_id, vonage_session_id, rtmp_input_name)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	event_id = EXCLUDED.event_id,
	conference_id = EXCLUDED.conference_id,
	vonage_session_id = EXCLUDED.vonage_session_id,
	rtmp_input_name = EXCLUDED.rtmp_input_name
`, string(session.ID), string(session.EventID), string(session.ConferenceID), string(session.SessionID), string(session.RTMPInput))
	if err != nil {
		return fmt.Errorf("failed to save event session: %w", err)
	}
	return nil
}

func (r *PostgresEventSessionRepository) GetByID(ctx context.Context, id domain.EventSessionID) (*domain.EventSession, error) {
	return r.queryOne(ctx, selectEventSession+`WHERE id = $1`, string(id))
}

func (r *PostgresEventSessionRepository) GetBySessionID(ctx context.Context, sessionID domain.SessionID) (*domain.EventSession, error) {
	return r.queryOne(ctx, selectEventSession+`WHERE vonage_session_id = $1 LIMIT 1`, string(sessionID))
}

func (r *PostgresEventSessionRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.EventSession, error) {
	return r.queryOne(ctx, selectEventSession+`WHERE event_id = $1 LIMIT 1`, string(eventID))
}

func (r *PostgresEventSessionRepository) queryOne(ctx context.Context, query string, arg string) (*domain.EventSession, error) {
	var (
		id, eventID, conferenceID, sessionID, input string
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&id, &eventID, &conferenceID, &sessionID, &input); err != nil {
		if isNoRows(err) {
			return nil, domain.ErrEventSessionNotFound
		}
		return nil, fmt.Errorf("failed to query event session: %w", err)
	}
	return &domain.EventSession{
		ID:           domain.EventSessionID(id),
		EventID:      domain.EventID(eventID),
		ConferenceID: domain.ConferenceID(conferenceID),
		SessionID:    domain.SessionID(sessionID),
		RTMPInput:    domain.RTMPInput(input),
	}, nil
}
