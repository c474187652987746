package services

import (
	"context"
	"errors"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/retry"
	"relaycast/pkg/tracing"
	"relaycast/pkg/validation"

	"go.uber.org/zap"
)

// EventBroadcastService starts and stops the RTMP relay of an event's session.
type EventBroadcastService struct {
	eventSessions ports.EventSessionRepository
	channels      ports.ChannelStackRepository
	layouts       ports.LayoutRepository
	translator    ports.LayoutTranslator
	broadcasts    ports.BroadcastManager
	retryConfig   retry.Config
	logger        *zap.SugaredLogger
}

func NewEventBroadcastService(
	eventSessions ports.EventSessionRepository,
	channels ports.ChannelStackRepository,
	layouts ports.LayoutRepository,
	translator ports.LayoutTranslator,
	broadcasts ports.BroadcastManager,
	retryConfig retry.Config,
	logger *zap.SugaredLogger,
) *EventBroadcastService {
	// Missing configuration does not heal by waiting.
	retryConfig.NonRetryableErrors = append(append([]error(nil), retryConfig.NonRetryableErrors...),
		domain.ErrConfigurationMissing,
		domain.ErrInvalidRTMPURI,
	)
	return &EventBroadcastService{
		eventSessions: eventSessions,
		channels:      channels,
		layouts:       layouts,
		translator:    translator,
		broadcasts:    broadcasts,
		retryConfig:   retryConfig,
		logger:        logger,
	}
}

// Details resolves the session, destination and current layout of an event.
func (s *EventBroadcastService) Details(ctx context.Context, eventID domain.EventID) (*domain.EventBroadcastDetails, error) {
	return retry.RetryWithResult(ctx, s.retryConfig, func() (*domain.EventBroadcastDetails, error) {
		return s.details(ctx, eventID)
	})
}

func (s *EventBroadcastService) details(ctx context.Context, eventID domain.EventID) (*domain.EventBroadcastDetails, error) {
	es, err := s.eventSessions.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrEventSessionNotFound) {
			return nil, fmt.Errorf("%w: no session for event %s", domain.ErrConfigurationMissing, eventID)
		}
		return nil, fmt.Errorf("get event session of event %s: %w", eventID, err)
	}
	if es.SessionID == "" {
		return nil, fmt.Errorf("%w: event %s has no provider session", domain.ErrConfigurationMissing, eventID)
	}

	stack, err := s.channels.GetByEventID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrChannelStackNotFound) {
			return nil, fmt.Errorf("%w: no channel for event %s", domain.ErrConfigurationMissing, eventID)
		}
		return nil, fmt.Errorf("get channel stack of event %s: %w", eventID, err)
	}

	uri := stack.InputURI(es.RTMPInput)
	if uri == "" {
		return nil, fmt.Errorf("%w: channel of event %s has no RTMP input", domain.ErrConfigurationMissing, eventID)
	}
	if err := validation.ValidateRTMPURI(uri); err != nil {
		return nil, fmt.Errorf("%w: channel of event %s: %v", domain.ErrInvalidRTMPURI, eventID, err)
	}
	dest, err := domain.ParseRTMPURI(uri)
	if err != nil {
		return nil, err
	}

	layout, err := s.currentLayout(ctx, es)
	if err != nil {
		return nil, err
	}

	return &domain.EventBroadcastDetails{
		EventID:       eventID,
		SessionID:     es.SessionID,
		Destination:   dest,
		CurrentLayout: layout,
	}, nil
}

// currentLayout falls back to best fit when the session has no usable intent.
func (s *EventBroadcastService) currentLayout(ctx context.Context, es *domain.EventSession) (domain.LayoutDescriptor, error) {
	record, err := s.layouts.Latest(ctx, es.ID)
	switch {
	case err == nil && record.Intent != nil:
		return s.translator.Translate(record.Intent), nil
	case err == nil, errors.Is(err, domain.ErrLayoutNotFound):
		return domain.DefaultLayoutDescriptor(), nil
	case errors.Is(err, domain.ErrInvalidLayoutData):
		s.logger.Warnw("stored layout is unusable, using best fit",
			"event_session_id", es.ID,
			"error", err,
		)
		return domain.DefaultLayoutDescriptor(), nil
	default:
		return domain.LayoutDescriptor{}, fmt.Errorf("get latest layout of event session %s: %w", es.ID, err)
	}
}

func (s *EventBroadcastService) Start(ctx context.Context, eventID domain.EventID) (*domain.EnsureResult, error) {
	ctx, span := tracing.TraceBroadcastOperation(ctx, "start", string(eventID))
	defer span.End()

	details, err := s.Details(ctx, eventID)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("cannot resolve broadcast details", "event_id", eventID, "error", err)
		return nil, err
	}
	tracing.AddSpanAttributes(ctx, tracing.SessionIDKey.String(string(details.SessionID)))

	result, err := s.broadcasts.EnsureStarted(ctx, details.SessionID, details.Destination, details.CurrentLayout)
	if err != nil {
		tracing.RecordError(ctx, err)
		return result, err
	}
	if result.Started != nil {
		tracing.AddSpanAttributes(ctx, tracing.BroadcastIDKey.String(string(result.Started.ID)))
	}
	return result, nil
}

func (s *EventBroadcastService) Stop(ctx context.Context, eventID domain.EventID) (*domain.StopReport, error) {
	ctx, span := tracing.TraceBroadcastOperation(ctx, "stop", string(eventID))
	defer span.End()

	details, err := s.Details(ctx, eventID)
	if err != nil {
		tracing.RecordError(ctx, err)
		s.logger.Errorw("cannot resolve broadcast details", "event_id", eventID, "error", err)
		return nil, err
	}

	report, err := s.broadcasts.StopAll(ctx, details.SessionID)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	return report, nil
}
