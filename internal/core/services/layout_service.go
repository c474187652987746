package services

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// LayoutService records new layout intents and reconciles them.
type LayoutService struct {
	eventSessions ports.EventSessionRepository
	layouts       ports.LayoutRepository
	orchestrator  ports.Orchestrator
	clock         clockwork.Clock
	logger        *zap.SugaredLogger
}

func NewLayoutService(
	eventSessions ports.EventSessionRepository,
	layouts ports.LayoutRepository,
	orchestrator ports.Orchestrator,
	clock clockwork.Clock,
	logger *zap.SugaredLogger,
) *LayoutService {
	return &LayoutService{
		eventSessions: eventSessions,
		layouts:       layouts,
		orchestrator:  orchestrator,
		clock:         clock,
		logger:        logger,
	}
}

// Submit persists intent as the newest layout of the event session and
// reconciles it. A reconciliation failure is reported in the outcome, not as
// an error.
func (s *LayoutService) Submit(ctx context.Context, eventSessionID domain.EventSessionID, intent domain.LayoutIntent) (*domain.LayoutIntentRecord, *domain.ReconcileOutcome, error) {
	if intent == nil {
		return nil, nil, fmt.Errorf("%w: layout is required", domain.ErrInvalidLayoutData)
	}
	if _, err := s.eventSessions.GetByID(ctx, eventSessionID); err != nil {
		return nil, nil, err
	}

	record := &domain.LayoutIntentRecord{
		ID:             domain.LayoutID(uuid.NewString()),
		EventSessionID: eventSessionID,
		Intent:         intent,
		CreatedAt:      s.clock.Now(),
	}
	if err := s.layouts.Create(ctx, record); err != nil {
		return nil, nil, fmt.Errorf("create layout for event session %s: %w", eventSessionID, err)
	}

	s.logger.Infow("layout submitted",
		"event_session_id", eventSessionID,
		"intent_id", record.ID,
		"layout", intent.Kind(),
	)
	return record, s.orchestrator.Reconcile(ctx, record), nil
}

func (s *LayoutService) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	return s.layouts.Latest(ctx, eventSessionID)
}
