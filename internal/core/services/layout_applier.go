package services

import (
	"context"
	"fmt"
	"sort"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"go.uber.org/zap"
)

// LayoutApplier pushes a descriptor to the provider: stream class lists first,
// then the broadcast layout of every started broadcast.
//
// Apply lists before it mutates and takes no lock. Streams that appear or
// vanish between the two are picked up by the next reconciliation.
type LayoutApplier struct {
	provider  ports.VideoProvider
	inspector ports.SessionInspector
	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
}

func NewLayoutApplier(
	provider ports.VideoProvider,
	inspector ports.SessionInspector,
	metrics ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *LayoutApplier {
	return &LayoutApplier{
		provider:  provider,
		inspector: inspector,
		metrics:   metrics,
		logger:    logger,
	}
}

func (a *LayoutApplier) Apply(ctx context.Context, sessionID domain.SessionID, descriptor domain.LayoutDescriptor) (*domain.ApplyReport, error) {
	report := &domain.ApplyReport{}

	live, err := a.inspector.ListLiveStreams(ctx, sessionID)
	if err != nil {
		return report, err
	}

	valid, invalid := partitionReferences(descriptor.StreamClasses, live)
	if len(invalid) > 0 {
		report.InvalidStreams = invalid
		a.metrics.RecordInvalidReferences(len(invalid))
		a.logger.Warnw("layout references streams that are not live",
			"session_id", sessionID,
			"invalid_streams", invalid,
			"error", domain.ErrInvalidReference,
		)
	}

	report.Mutations = ClassMutations(live, valid)
	if len(report.Mutations) > 0 {
		if err := a.provider.SetStreamClassLists(ctx, sessionID, report.Mutations); err != nil {
			return report, fmt.Errorf("set stream class lists for session %s: %w", sessionID, err)
		}
	}

	broadcasts, err := a.inspector.ListStartedBroadcasts(ctx, sessionID)
	if err != nil {
		return report, err
	}

	for _, b := range broadcasts {
		if err := a.provider.SetBroadcastLayout(ctx, b.ID, descriptor.Algorithm); err != nil {
			a.metrics.RecordLayoutPushFailure()
			a.logger.Errorw("failed to update broadcast layout",
				"session_id", sessionID,
				"broadcast_id", b.ID,
				"error", err,
			)
			report.BroadcastFailures = append(report.BroadcastFailures, domain.BroadcastFailure{BroadcastID: b.ID, Err: err})
			continue
		}
		report.BroadcastsUpdated = append(report.BroadcastsUpdated, b.ID)
	}

	a.logger.Infow("layout applied",
		"session_id", sessionID,
		"algorithm", descriptor.Algorithm.Type,
		"mutations", len(report.Mutations),
		"broadcasts_updated", len(report.BroadcastsUpdated),
		"broadcast_failures", len(report.BroadcastFailures),
	)
	return report, nil
}

// partitionReferences splits descriptor entries by whether their stream is
// live. Invalid ids are returned sorted.
func partitionReferences(classes map[domain.StreamID][]string, live []domain.Stream) (map[domain.StreamID][]string, []domain.StreamID) {
	liveIDs := domain.StreamIDSet(live)
	valid := make(map[domain.StreamID][]string, len(classes))
	var invalid []domain.StreamID
	for id, cls := range classes {
		if _, ok := liveIDs[id]; ok {
			valid[id] = cls
			continue
		}
		invalid = append(invalid, id)
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i] < invalid[j] })
	return valid, invalid
}

// ClassMutations computes the class-list updates that move the live streams
// to the given assignment: clears for every classed stream outside it,
// followed by sets for every stream in it. Both halves follow live order.
func ClassMutations(live []domain.Stream, assignment map[domain.StreamID][]string) []domain.StreamClassMutation {
	var clears, sets []domain.StreamClassMutation
	for _, s := range live {
		if cls, ok := assignment[s.ID]; ok {
			sets = append(sets, domain.StreamClassMutation{StreamID: s.ID, ClassList: append([]string(nil), cls...)})
			continue
		}
		if s.HasClasses() {
			clears = append(clears, domain.StreamClassMutation{StreamID: s.ID, ClassList: []string{}})
		}
	}
	return append(clears, sets...)
}
