package domain

import (
	"time"
)

type SessionID string
type StreamID string
type ConnectionID string
type EventID string
type EventSessionID string
type ConferenceID string
type RegistrantID string

type StreamKind string

const (
	StreamKindCamera StreamKind = "camera"
	StreamKindScreen StreamKind = "screen"
	StreamKindCustom StreamKind = "custom"
)

// NormalizeStreamKind maps an unreported video type to camera.
func NormalizeStreamKind(kind StreamKind) StreamKind {
	if kind == "" {
		return StreamKindCamera
	}
	return kind
}

// Stream is the provider's view of a live contribution to a session.
// ConnectionID is only set from session-monitoring callbacks; live listings
// from the provider leave it empty, so never key on it.
type Stream struct {
	ID              StreamID
	ConnectionID    ConnectionID
	Kind            StreamKind
	Name            string
	LayoutClassList []string
}

// HasClasses reports whether the provider currently carries any layout class for the stream.
func (s Stream) HasClasses() bool {
	return len(s.LayoutClassList) > 0
}

// ParticipantStream mirrors "this registrant has this stream in this event".
type ParticipantStream struct {
	ID           string
	ConferenceID ConferenceID
	EventID      EventID
	RegistrantID RegistrantID
	ConnectionID ConnectionID
	StreamID     StreamID
	Kind         StreamKind
	CreatedAt    time.Time
}

// StreamClassMutation sets the full class list of one stream. An empty list clears it.
type StreamClassMutation struct {
	StreamID  StreamID
	ClassList []string
}

// StreamIDSet builds a lookup set from live streams.
func StreamIDSet(streams []Stream) map[StreamID]struct{} {
	set := make(map[StreamID]struct{}, len(streams))
	for _, s := range streams {
		set[s.ID] = struct{}{}
	}
	return set
}
