package services

import (
	"context"
	"fmt"
	"testing"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSessionInspector_ListLiveStreams_EmptyIsNotAnError(t *testing.T) {
	inspector := NewSessionInspector(newFakeProvider(), zaptest.NewLogger(t).Sugar())

	streams, err := inspector.ListLiveStreams(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.NotNil(t, streams)
	assert.Empty(t, streams)
}

func TestSessionInspector_ListLiveStreams_ProviderUnavailable(t *testing.T) {
	provider := newFakeProvider()
	provider.listStreamsErr = fmt.Errorf("dial: %w", domain.ErrProviderUnavailable)
	inspector := NewSessionInspector(provider, zaptest.NewLogger(t).Sugar())

	_, err := inspector.ListLiveStreams(context.Background(), "sess-1")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestSessionInspector_ListStartedBroadcasts(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(domain.Broadcast{ID: "b1", SessionID: "sess-1", Status: domain.BroadcastStatusStarted})
	provider.addBroadcast(domain.Broadcast{ID: "b2", SessionID: "sess-1", Status: domain.BroadcastStatusStopped})
	provider.addBroadcast(domain.Broadcast{ID: "b3", SessionID: "sess-2", Status: domain.BroadcastStatusStarted})
	inspector := NewSessionInspector(provider, zaptest.NewLogger(t).Sugar())

	all, err := inspector.ListBroadcasts(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	started, err := inspector.ListStartedBroadcasts(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, started, 1)
	assert.Equal(t, domain.BroadcastID("b1"), started[0].ID)
}

func TestSessionInspector_DropsBroadcastsOfOtherSessions(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(domain.Broadcast{ID: "b1", SessionID: "sess-2", Status: domain.BroadcastStatusStarted})
	provider.addBroadcast(domain.Broadcast{ID: "b2", Status: domain.BroadcastStatusStarted})
	inspector := NewSessionInspector(&unfilteredProvider{provider}, zaptest.NewLogger(t).Sugar())

	broadcasts, err := inspector.ListBroadcasts(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, broadcasts, 1)
	assert.Equal(t, domain.BroadcastID("b2"), broadcasts[0].ID)
}

// unfilteredProvider ignores the session filter on ListBroadcasts.
type unfilteredProvider struct {
	*fakeProvider
}

func (u *unfilteredProvider) ListBroadcasts(ctx context.Context, _ ports.BroadcastFilter) ([]domain.Broadcast, error) {
	return u.fakeProvider.ListBroadcasts(ctx, ports.BroadcastFilter{})
}
