package domain

import "errors"

var (
	// Provider failures.
	ErrProviderUnavailable = errors.New("video provider unavailable")
	ErrProviderRejected    = errors.New("video provider rejected request")

	// Reconciliation conditions.
	ErrInvalidReference     = errors.New("layout references a stream that is not live")
	ErrAnomalousState       = errors.New("more than one started broadcast for session")
	ErrConfigurationMissing = errors.New("configuration missing")

	// Store lookups.
	ErrEventSessionNotFound    = errors.New("event session not found")
	ErrChannelStackNotFound    = errors.New("channel stack not found")
	ErrLayoutNotFound          = errors.New("layout not found")
	ErrParticipantStreamExists = errors.New("participant stream already recorded")

	ErrInvalidLayoutData    = errors.New("invalid layout data")
	ErrInvalidRTMPURI       = errors.New("rtmp push uri has unexpected format")
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
