package services

import (
	"context"
	"fmt"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
	"relaycast/pkg/validation"

	"go.uber.org/zap"
)

// ConfigurationService stores the rows the event scheduler owns: which
// provider session an event runs in and where its channel ingests RTMP.
type ConfigurationService struct {
	eventSessions ports.EventSessionRepository
	channels      ports.ChannelStackRepository
	logger        *zap.SugaredLogger
}

var _ ports.ConfigurationService = (*ConfigurationService)(nil)

func NewConfigurationService(
	eventSessions ports.EventSessionRepository,
	channels ports.ChannelStackRepository,
	logger *zap.SugaredLogger,
) *ConfigurationService {
	return &ConfigurationService{
		eventSessions: eventSessions,
		channels:      channels,
		logger:        logger,
	}
}

// SaveEventSession upserts session. A blank SessionID is accepted so an event
// can be registered before its provider session exists.
func (s *ConfigurationService) SaveEventSession(ctx context.Context, session *domain.EventSession) error {
	if err := validateEventSession(session); err != nil {
		return err
	}
	if err := s.eventSessions.Save(ctx, session); err != nil {
		return fmt.Errorf("save event session %s: %w", session.ID, err)
	}

	s.logger.Infow("event session saved",
		"event_session_id", session.ID,
		"event_id", session.EventID,
		"session_id", session.SessionID,
		"rtmp_input", session.RTMPInput,
	)
	return nil
}

func (s *ConfigurationService) SaveChannelStack(ctx context.Context, stack *domain.ChannelStack) error {
	if err := validateChannelStack(stack); err != nil {
		return err
	}
	if err := s.channels.Save(ctx, stack); err != nil {
		return fmt.Errorf("save channel stack of event %s: %w", stack.EventID, err)
	}

	s.logger.Infow("channel stack saved",
		"event_id", stack.EventID,
		"has_input_b", stack.RTMPBInputURI != "",
	)
	return nil
}

func validateEventSession(es *domain.EventSession) error {
	if es == nil {
		return fmt.Errorf("%w: event session is required", domain.ErrInvalidConfiguration)
	}
	if err := validation.ValidateRecordID(string(es.ID), "event session id"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if err := validation.ValidateRecordID(string(es.EventID), "event id"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if es.SessionID != "" {
		if err := validation.ValidateProviderID(string(es.SessionID), "session id"); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
		}
	}
	switch es.RTMPInput {
	case "", domain.RTMPInputA, domain.RTMPInputB:
	default:
		return fmt.Errorf("%w: unknown rtmp input %q", domain.ErrInvalidConfiguration, es.RTMPInput)
	}
	return nil
}

func validateChannelStack(stack *domain.ChannelStack) error {
	if stack == nil {
		return fmt.Errorf("%w: channel stack is required", domain.ErrInvalidConfiguration)
	}
	if err := validation.ValidateRecordID(string(stack.EventID), "event id"); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfiguration, err)
	}
	if err := validation.ValidateRTMPURI(stack.RTMPAInputURI); err != nil {
		return fmt.Errorf("%w: rtmp input A: %v", domain.ErrInvalidConfiguration, err)
	}
	if stack.RTMPBInputURI != "" {
		if err := validation.ValidateRTMPURI(stack.RTMPBInputURI); err != nil {
			return fmt.Errorf("%w: rtmp input B: %v", domain.ErrInvalidConfiguration, err)
		}
	}
	return nil
}
