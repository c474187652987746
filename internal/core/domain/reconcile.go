package domain

import "time"

type ReconcileState string

const (
	ReconcileIdle        ReconcileState = "idle"
	ReconcilePruning     ReconcileState = "pruning"
	ReconcileTranslating ReconcileState = "translating"
	ReconcileApplying    ReconcileState = "applying"
	ReconcileSignalling  ReconcileState = "signalling"
	ReconcileDone        ReconcileState = "done"
	ReconcileFailed      ReconcileState = "failed"
)

// ApplyReport summarises one push of a layout descriptor.
type ApplyReport struct {
	InvalidStreams    []StreamID
	Mutations         []StreamClassMutation
	BroadcastsUpdated []BroadcastID
	BroadcastFailures []BroadcastFailure
}

// ReconcileOutcome is the reportable result of reconciling one layout intent.
type ReconcileOutcome struct {
	IntentID          LayoutID
	EventSessionID    EventSessionID
	SessionID         SessionID
	Kind              LayoutKind
	State             ReconcileState
	FailedAt          ReconcileState
	Pruned            int
	InvalidStreams    []StreamID
	BroadcastFailures []BroadcastFailure
	Err               error
	StartedAt         time.Time
	FinishedAt        time.Time
}

func (o *ReconcileOutcome) Duration() time.Duration {
	return o.FinishedAt.Sub(o.StartedAt)
}

// Signal is an out-of-band message delivered to every client of a session.
type Signal struct {
	Type string
	Data []byte
}

const LayoutSignalType = "layout-signal"
