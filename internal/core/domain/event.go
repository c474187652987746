package domain

type RTMPInput string

const (
	RTMPInputA RTMPInput = "RTMP_A"
	RTMPInputB RTMPInput = "RTMP_B"
)

// EventSession maps a scheduled event to its provider session.
type EventSession struct {
	ID           EventSessionID
	EventID      EventID
	ConferenceID ConferenceID
	SessionID    SessionID
	RTMPInput    RTMPInput
}

// ChannelStack holds the ingest URIs of the channel an event's room feeds.
type ChannelStack struct {
	EventID       EventID
	RTMPAInputURI string
	RTMPBInputURI string
}

// InputURI picks the push URI for the given input, falling back to A when B is unset.
func (c ChannelStack) InputURI(input RTMPInput) string {
	if input == RTMPInputB && c.RTMPBInputURI != "" {
		return c.RTMPBInputURI
	}
	return c.RTMPAInputURI
}

// EventBroadcastDetails is everything needed to relay an event's session.
type EventBroadcastDetails struct {
	EventID       EventID
	SessionID     SessionID
	Destination   RTMPDestination
	CurrentLayout LayoutDescriptor
}
