package http

import (
	"encoding/json"
	"time"

	"relaycast/internal/core/domain"
)

type broadcastFailureResponse struct {
	BroadcastID domain.BroadcastID `json:"broadcast_id"`
	Error       string             `json:"error"`
}

type outcomeResponse struct {
	IntentID          domain.LayoutID            `json:"intent_id"`
	EventSessionID    domain.EventSessionID      `json:"event_session_id"`
	SessionID         domain.SessionID           `json:"session_id,omitempty"`
	Kind              domain.LayoutKind          `json:"kind,omitempty"`
	State             domain.ReconcileState      `json:"state"`
	FailedAt          domain.ReconcileState      `json:"failed_at,omitempty"`
	Pruned            int                        `json:"pruned"`
	InvalidStreams    []domain.StreamID          `json:"invalid_streams"`
	BroadcastFailures []broadcastFailureResponse `json:"broadcast_failures"`
	Error             string                     `json:"error,omitempty"`
	DurationMs        int64                      `json:"duration_ms"`
}

func newOutcomeResponse(o *domain.ReconcileOutcome) outcomeResponse {
	resp := outcomeResponse{
		IntentID:          o.IntentID,
		EventSessionID:    o.EventSessionID,
		SessionID:         o.SessionID,
		Kind:              o.Kind,
		State:             o.State,
		FailedAt:          o.FailedAt,
		Pruned:            o.Pruned,
		InvalidStreams:    o.InvalidStreams,
		BroadcastFailures: failures(o.BroadcastFailures),
		DurationMs:        o.Duration().Milliseconds(),
	}
	if resp.InvalidStreams == nil {
		resp.InvalidStreams = []domain.StreamID{}
	}
	if o.Err != nil {
		resp.Error = o.Err.Error()
	}
	return resp
}

func failures(in []domain.BroadcastFailure) []broadcastFailureResponse {
	out := make([]broadcastFailureResponse, 0, len(in))
	for _, f := range in {
		out = append(out, broadcastFailureResponse{BroadcastID: f.BroadcastID, Error: f.Err.Error()})
	}
	return out
}

type layoutResponse struct {
	ID             domain.LayoutID       `json:"id"`
	EventSessionID domain.EventSessionID `json:"event_session_id"`
	LayoutData     json.RawMessage       `json:"layout_data"`
	CreatedAt      time.Time             `json:"created_at"`
}

func newLayoutResponse(r *domain.LayoutIntentRecord) (layoutResponse, error) {
	data, err := domain.MarshalLayoutData(r.Intent)
	if err != nil {
		return layoutResponse{}, err
	}
	return layoutResponse{
		ID:             r.ID,
		EventSessionID: r.EventSessionID,
		LayoutData:     data,
		CreatedAt:      r.CreatedAt,
	}, nil
}

type broadcastResponse struct {
	ID           domain.BroadcastID     `json:"id"`
	Status       domain.BroadcastStatus `json:"status"`
	Destinations []string               `json:"destinations"`
}

func newBroadcastResponse(b *domain.Broadcast) *broadcastResponse {
	if b == nil {
		return nil
	}
	dests := make([]string, 0, len(b.Destinations))
	for _, d := range b.Destinations {
		dests = append(dests, d.String())
	}
	return &broadcastResponse{ID: b.ID, Status: b.Status, Destinations: dests}
}

type ensureResponse struct {
	Started       *broadcastResponse         `json:"started,omitempty"`
	Existing      *broadcastResponse         `json:"existing,omitempty"`
	StoppedExtras []domain.BroadcastID       `json:"stopped_extras"`
	StopFailures  []broadcastFailureResponse `json:"stop_failures"`
}

func newEnsureResponse(r *domain.EnsureResult) ensureResponse {
	resp := ensureResponse{
		Started:       newBroadcastResponse(r.Started),
		Existing:      newBroadcastResponse(r.Existing),
		StoppedExtras: r.StoppedExtras,
		StopFailures:  failures(r.StopFailures),
	}
	if resp.StoppedExtras == nil {
		resp.StoppedExtras = []domain.BroadcastID{}
	}
	return resp
}

type stopResponse struct {
	Stopped  []domain.BroadcastID       `json:"stopped"`
	Failures []broadcastFailureResponse `json:"failures"`
}

func newStopResponse(r *domain.StopReport) stopResponse {
	resp := stopResponse{Stopped: r.Stopped, Failures: failures(r.Failures)}
	if resp.Stopped == nil {
		resp.Stopped = []domain.BroadcastID{}
	}
	return resp
}
