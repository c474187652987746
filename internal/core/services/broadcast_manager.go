package services

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/utils"

	"go.uber.org/zap"
)

// BroadcastManager keeps at most one started broadcast per session and
// destination. Like the applier it lists then mutates without a lock.
type BroadcastManager struct {
	provider   ports.VideoProvider
	inspector  ports.SessionInspector
	metrics    ports.MetricsRecorder
	publisher  ports.OutcomePublisher
	resolution string
	logger     *zap.SugaredLogger
}

func NewBroadcastManager(
	provider ports.VideoProvider,
	inspector ports.SessionInspector,
	metrics ports.MetricsRecorder,
	publisher ports.OutcomePublisher,
	resolution string,
	logger *zap.SugaredLogger,
) *BroadcastManager {
	if resolution == "" {
		resolution = domain.DefaultBroadcastResolution
	}
	return &BroadcastManager{
		provider:   provider,
		inspector:  inspector,
		metrics:    metrics,
		publisher:  publisher,
		resolution: resolution,
		logger:     logger,
	}
}

// EnsureStarted leaves one started broadcast targeting dest. Extra started
// broadcasts are stopped first; a failed stop is recorded, not returned.
func (m *BroadcastManager) EnsureStarted(
	ctx context.Context,
	sessionID domain.SessionID,
	dest domain.RTMPDestination,
	current domain.LayoutDescriptor,
) (*domain.EnsureResult, error) {
	started, err := m.inspector.ListStartedBroadcasts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &domain.EnsureResult{}

	if len(started) > 1 {
		keep := -1
		for i, b := range started {
			if b.Targets(dest) {
				keep = i
				break
			}
		}

		extra := len(started) - 1
		if keep < 0 {
			extra = len(started)
		}
		m.metrics.RecordBroadcastAnomaly(extra)
		m.logger.Warnw("multiple started broadcasts for session",
			"session_id", sessionID,
			"started", len(started),
			"stopping", extra,
			"error", domain.ErrAnomalousState,
		)

		var kept []domain.Broadcast
		for i, b := range started {
			if i == keep {
				kept = append(kept, b)
				continue
			}
			if err := m.provider.StopBroadcast(ctx, b.ID); err != nil {
				m.metrics.RecordBroadcastStopped(false)
				m.logger.Errorw("failed to stop extra broadcast",
					"session_id", sessionID,
					"broadcast_id", b.ID,
					"error", err,
				)
				result.StopFailures = append(result.StopFailures, domain.BroadcastFailure{BroadcastID: b.ID, Err: err})
				continue
			}
			m.metrics.RecordBroadcastStopped(true)
			result.StoppedExtras = append(result.StoppedExtras, b.ID)
		}
		started = kept

		if len(result.StoppedExtras) > 0 {
			m.publishStopped(ctx, sessionID, result.StoppedExtras)
		}
	}

	for i := range started {
		if started[i].Targets(dest) {
			existing := started[i]
			result.Existing = &existing
			m.logger.Debugw("broadcast already running",
				"session_id", sessionID,
				"broadcast_id", existing.ID,
				"destination", redactDestination(dest),
			)
			return result, nil
		}
	}

	broadcast, err := m.provider.StartBroadcast(ctx, sessionID, domain.StartBroadcastRequest{
		Layout:       current.Algorithm,
		Destinations: []domain.RTMPDestination{dest},
		Resolution:   m.resolution,
	})
	if err != nil {
		m.metrics.RecordBroadcastStarted(false)
		m.logger.Errorw("failed to start broadcast",
			"session_id", sessionID,
			"destination", redactDestination(dest),
			"error", err,
		)
		return result, fmt.Errorf("start broadcast for session %s: %w", sessionID, err)
	}

	m.metrics.RecordBroadcastStarted(true)
	m.logger.Infow("broadcast started",
		"session_id", sessionID,
		"broadcast_id", broadcast.ID,
		"destination", redactDestination(dest),
		"resolution", m.resolution,
	)
	result.Started = broadcast

	if err := m.publisher.PublishBroadcastStarted(ctx, sessionID, broadcast); err != nil {
		m.logger.Warnw("failed to publish broadcast started", "session_id", sessionID, "error", err)
	}
	return result, nil
}

// StopAll stops every started broadcast of the session, continuing past
// individual failures.
func (m *BroadcastManager) StopAll(ctx context.Context, sessionID domain.SessionID) (*domain.StopReport, error) {
	broadcasts, err := m.inspector.ListBroadcasts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := &domain.StopReport{}
	for _, b := range broadcasts {
		if !b.IsStarted() {
			continue
		}
		if err := m.provider.StopBroadcast(ctx, b.ID); err != nil {
			m.metrics.RecordBroadcastStopped(false)
			m.logger.Errorw("failed to stop broadcast",
				"session_id", sessionID,
				"broadcast_id", b.ID,
				"error", err,
			)
			report.Failures = append(report.Failures, domain.BroadcastFailure{BroadcastID: b.ID, Err: err})
			continue
		}
		m.metrics.RecordBroadcastStopped(true)
		report.Stopped = append(report.Stopped, b.ID)
	}

	m.logger.Infow("broadcasts stopped",
		"session_id", sessionID,
		"stopped", len(report.Stopped),
		"failures", len(report.Failures),
	)
	if len(report.Stopped) > 0 {
		m.publishStopped(ctx, sessionID, report.Stopped)
	}
	return report, nil
}

func (m *BroadcastManager) publishStopped(ctx context.Context, sessionID domain.SessionID, stopped []domain.BroadcastID) {
	if err := m.publisher.PublishBroadcastsStopped(ctx, sessionID, stopped); err != nil {
		m.logger.Warnw("failed to publish broadcasts stopped", "session_id", sessionID, "error", err)
	}
}

// redactDestination hides the stream key, which grants publish rights.
func redactDestination(dest domain.RTMPDestination) string {
	return dest.ServerURL + utils.MaskSensitive(dest.StreamName, 2)
}
