package domain

import (
	"fmt"
	"strings"
	"time"
)

type BroadcastID string

type BroadcastStatus string

const (
	BroadcastStatusStarted   BroadcastStatus = "started"
	BroadcastStatusStopped   BroadcastStatus = "stopped"
	BroadcastStatusPaused    BroadcastStatus = "paused"
	BroadcastStatusAvailable BroadcastStatus = "available"
)

const DefaultBroadcastResolution = "1280x720"

// RTMPDestination is a downstream ingest point. ID is provider-local and
// carries no meaning across restarts.
type RTMPDestination struct {
	ID         string
	ServerURL  string
	StreamName string
}

// Matches compares destinations by server URL and stream name.
func (d RTMPDestination) Matches(other RTMPDestination) bool {
	return d.ServerURL == other.ServerURL && d.StreamName == other.StreamName
}

func (d RTMPDestination) String() string {
	return d.ServerURL + d.StreamName
}

// ParseRTMPURI splits a push URI into server URL and stream name. The server
// URL keeps its trailing slash.
func ParseRTMPURI(uri string) (RTMPDestination, error) {
	parts := strings.Split(uri, "/")
	if len(parts) < 2 {
		return RTMPDestination{}, fmt.Errorf("%w: %q", ErrInvalidRTMPURI, uri)
	}
	streamName := parts[len(parts)-1]
	if streamName == "" {
		return RTMPDestination{}, fmt.Errorf("%w: %q has no stream name", ErrInvalidRTMPURI, uri)
	}
	return RTMPDestination{
		ServerURL:  uri[:len(uri)-len(streamName)],
		StreamName: streamName,
	}, nil
}

type Broadcast struct {
	ID           BroadcastID
	SessionID    SessionID
	Status       BroadcastStatus
	Destinations []RTMPDestination
	CreatedAt    time.Time
}

func (b Broadcast) IsStarted() bool {
	return b.Status == BroadcastStatusStarted
}

// Targets reports whether any RTMP output of the broadcast goes to dest.
func (b Broadcast) Targets(dest RTMPDestination) bool {
	for _, d := range b.Destinations {
		if d.Matches(dest) {
			return true
		}
	}
	return false
}

// StartedBroadcasts filters to broadcasts with status started, preserving order.
func StartedBroadcasts(broadcasts []Broadcast) []Broadcast {
	started := make([]Broadcast, 0, len(broadcasts))
	for _, b := range broadcasts {
		if b.IsStarted() {
			started = append(started, b)
		}
	}
	return started
}

type StartBroadcastRequest struct {
	Layout       Algorithm
	Destinations []RTMPDestination
	Resolution   string
}

// BroadcastFailure records one failed best-effort broadcast operation.
type BroadcastFailure struct {
	BroadcastID BroadcastID
	Err         error
}

// EnsureResult describes what EnsureStarted did.
type EnsureResult struct {
	Started       *Broadcast
	Existing      *Broadcast
	StoppedExtras []BroadcastID
	StopFailures  []BroadcastFailure
}

type StopReport struct {
	Stopped  []BroadcastID
	Failures []BroadcastFailure
}
