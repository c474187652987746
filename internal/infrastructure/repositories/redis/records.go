package redis

import (
	"encoding/json"
	"fmt"
	"time"

	"relaycast/internal/core/domain"
)

type eventSessionRecord struct {
	ID           domain.EventSessionID `json:"id"`
	EventID      domain.EventID        `json:"event_id"`
	ConferenceID domain.ConferenceID   `json:"conference_id"`
	SessionID    domain.SessionID      `json:"session_id"`
	RTMPInput    domain.RTMPInput      `json:"rtmp_input"`
}

type channelStackRecord struct {
	EventID       domain.EventID `json:"event_id"`
	RTMPAInputURI string         `json:"rtmp_a_input_uri"`
	RTMPBInputURI string         `json:"rtmp_b_input_uri"`
}

type layoutRecord struct {
	ID             domain.LayoutID       `json:"id"`
	EventSessionID domain.EventSessionID `json:"event_session_id"`
	LayoutData     json.RawMessage       `json:"layout_data"`
	CreatedAt      time.Time             `json:"created_at"`
}

type participantStreamRecord struct {
	ID           string              `json:"id"`
	ConferenceID domain.ConferenceID `json:"conference_id"`
	EventID      domain.EventID      `json:"event_id"`
	RegistrantID domain.RegistrantID `json:"registrant_id"`
	ConnectionID domain.ConnectionID `json:"connection_id"`
	StreamID     domain.StreamID     `json:"stream_id"`
	Kind         domain.StreamKind   `json:"kind"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toLayoutRecord(r *domain.LayoutIntentRecord) (*layoutRecord, error) {
	data, err := domain.MarshalLayoutData(r.Intent)
	if err != nil {
		return nil, err
	}
	return &layoutRecord{
		ID:             r.ID,
		EventSessionID: r.EventSessionID,
		LayoutData:     data,
		CreatedAt:      r.CreatedAt,
	}, nil
}

// toDomain returns the record together with any ErrInvalidLayoutData from
// decoding the stored intent.
func (r *layoutRecord) toDomain() (*domain.LayoutIntentRecord, error) {
	intent, err := domain.ParseLayoutData(r.LayoutData)
	if err != nil {
		return nil, fmt.Errorf("layout %s: %w", r.ID, err)
	}
	return &domain.LayoutIntentRecord{
		ID:             r.ID,
		EventSessionID: r.EventSessionID,
		Intent:         intent,
		CreatedAt:      r.CreatedAt,
	}, nil
}

func participantFromDomain(s *domain.ParticipantStream) participantStreamRecord {
	return participantStreamRecord{
		ID:           s.ID,
		ConferenceID: s.ConferenceID,
		EventID:      s.EventID,
		RegistrantID: s.RegistrantID,
		ConnectionID: s.ConnectionID,
		StreamID:     s.StreamID,
		Kind:         s.Kind,
		CreatedAt:    s.CreatedAt,
	}
}

func (r participantStreamRecord) toDomain() *domain.ParticipantStream {
	return &domain.ParticipantStream{
		ID:           r.ID,
		ConferenceID: r.ConferenceID,
		EventID:      r.EventID,
		RegistrantID: r.RegistrantID,
		ConnectionID: r.ConnectionID,
		StreamID:     r.StreamID,
		Kind:         r.Kind,
		CreatedAt:    r.CreatedAt,
	}
}
