package services

import (
	"context"
	"errors"
	"testing"

	"relaycast/internal/core/domain"
	"relaycast/internal/infrastructure/repositories/memory"
	"relaycast/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConfigurationService_SeedsBroadcastDetails(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()
	eventSessions := memory.NewMemoryEventSessionRepository()
	channels := memory.NewMemoryChannelStackRepository()
	layouts := memory.NewMemoryLayoutRepository()
	config := NewConfigurationService(eventSessions, channels, logger)
	broadcasts := NewEventBroadcastService(eventSessions, channels, layouts, NewLayoutTranslator(), &MockBroadcastManager{}, retry.Config{}, logger)
	ctx := context.Background()

	_, err := broadcasts.Details(ctx, "event-1")
	require.ErrorIs(t, err, domain.ErrConfigurationMissing)

	require.NoError(t, config.SaveEventSession(ctx, testEventSession))
	require.NoError(t, config.SaveChannelStack(ctx, &domain.ChannelStack{
		EventID:       "event-1",
		RTMPAInputURI: "rtmp://a.example.com/live/key-a",
	}))

	details, err := broadcasts.Details(ctx, "event-1")
	require.NoError(t, err)
	assert.Equal(t, testSession, details.SessionID)
	assert.Equal(t, "rtmp://a.example.com/live/", details.Destination.ServerURL)
	assert.Equal(t, "key-a", details.Destination.StreamName)
	assert.Equal(t, domain.DefaultLayoutDescriptor(), details.CurrentLayout)
}

func TestConfigurationService_SaveEventSession_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		session *domain.EventSession
	}{
		{"nil", nil},
		{"missing id", &domain.EventSession{EventID: "event-1"}},
		{"missing event", &domain.EventSession{ID: "es-1"}},
		{"bad session id", &domain.EventSession{ID: "es-1", EventID: "event-1", SessionID: "sess 1"}},
		{"unknown input", &domain.EventSession{ID: "es-1", EventID: "event-1", RTMPInput: "RTMP_C"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockEventSessionRepository{}
			service := NewConfigurationService(repo, &MockChannelStackRepository{}, zaptest.NewLogger(t).Sugar())

			err := service.SaveEventSession(context.Background(), tt.session)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestConfigurationService_SaveEventSession_WithoutProviderSession(t *testing.T) {
	repo := &MockEventSessionRepository{}
	service := NewConfigurationService(repo, &MockChannelStackRepository{}, zaptest.NewLogger(t).Sugar())
	pending := &domain.EventSession{ID: "es-2", EventID: "event-2"}
	repo.On("Save", mock.Anything, pending).Return(nil).Once()

	require.NoError(t, service.SaveEventSession(context.Background(), pending))
	repo.AssertExpectations(t)
}

func TestConfigurationService_SaveChannelStack_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		stack *domain.ChannelStack
	}{
		{"nil", nil},
		{"missing event", &domain.ChannelStack{RTMPAInputURI: "rtmp://a.example.com/live/key"}},
		{"missing input A", &domain.ChannelStack{EventID: "event-1"}},
		{"input A without key", &domain.ChannelStack{EventID: "event-1", RTMPAInputURI: "rtmp://a.example.com/live/"}},
		{"input B wrong scheme", &domain.ChannelStack{
			EventID:       "event-1",
			RTMPAInputURI: "rtmp://a.example.com/live/key",
			RTMPBInputURI: "http://b.example.com/live/key",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockChannelStackRepository{}
			service := NewConfigurationService(&MockEventSessionRepository{}, repo, zaptest.NewLogger(t).Sugar())

			err := service.SaveChannelStack(context.Background(), tt.stack)
			assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
			repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestConfigurationService_StoreFailure(t *testing.T) {
	repo := &MockChannelStackRepository{}
	service := NewConfigurationService(&MockEventSessionRepository{}, repo, zaptest.NewLogger(t).Sugar())
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	err := service.SaveChannelStack(context.Background(), &domain.ChannelStack{
		EventID:       "event-1",
		RTMPAInputURI: "rtmp://a.example.com/live/key",
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidConfiguration)
	assert.Contains(t, err.Error(), "event-1")
}
