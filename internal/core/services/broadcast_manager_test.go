package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"relaycast/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	targetDest = domain.RTMPDestination{ServerURL: "rtmp://ingest.example.com/live/", StreamName: "key-a"}
	otherDest  = domain.RTMPDestination{ServerURL: "rtmp://ingest.example.com/live/", StreamName: "key-b"}
)

func newTestManager(t *testing.T, provider *fakeProvider, metrics *metricsSpy, publisher *MockPublisher) *BroadcastManager {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	return NewBroadcastManager(provider, NewSessionInspector(provider, logger), metrics, publisher, "", logger)
}

func permissivePublisher() *MockPublisher {
	p := &MockPublisher{}
	p.On("PublishBroadcastStarted", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	p.On("PublishBroadcastsStopped", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	return p
}

func startedTo(id domain.BroadcastID, dest domain.RTMPDestination) domain.Broadcast {
	return domain.Broadcast{
		ID:           id,
		SessionID:    testSession,
		Status:       domain.BroadcastStatusStarted,
		Destinations: []domain.RTMPDestination{dest},
	}
}

func TestBroadcastManager_EnsureStarted_StartsWhenAbsent(t *testing.T) {
	provider := newFakeProvider()
	metrics := newMetricsSpy()
	publisher := &MockPublisher{}
	publisher.On("PublishBroadcastStarted", mock.Anything, testSession, mock.AnythingOfType("*domain.Broadcast")).Return(nil).Once()
	manager := newTestManager(t, provider, metrics, publisher)

	current := NewLayoutTranslator().Translate(domain.PairLayout{Left: "A", Right: "B"})
	result, err := manager.EnsureStarted(context.Background(), testSession, targetDest, current)
	require.NoError(t, err)

	require.NotNil(t, result.Started)
	assert.Nil(t, result.Existing)
	require.Len(t, provider.starts, 1)
	assert.Equal(t, current.Algorithm, provider.starts[0].Layout)
	assert.Equal(t, domain.DefaultBroadcastResolution, provider.starts[0].Resolution)
	assert.Equal(t, []domain.RTMPDestination{targetDest}, provider.starts[0].Destinations)
	assert.Equal(t, 1, metrics.startsOK)
	publisher.AssertExpectations(t)
}

func TestBroadcastManager_EnsureStarted_TwiceStartsOnce(t *testing.T) {
	provider := newFakeProvider()
	manager := newTestManager(t, provider, newMetricsSpy(), permissivePublisher())

	first, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)
	second, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)

	assert.Len(t, provider.starts, 1)
	require.NotNil(t, second.Existing)
	assert.Equal(t, first.Started.ID, second.Existing.ID)
	assert.Equal(t, 1, provider.startedCount(testSession))
}

func TestBroadcastManager_EnsureStarted_MatchesByDestinationNotID(t *testing.T) {
	provider := newFakeProvider()
	existing := startedTo("from-before-restart", domain.RTMPDestination{
		ID:         "stale-output-id",
		ServerURL:  targetDest.ServerURL,
		StreamName: targetDest.StreamName,
	})
	provider.addBroadcast(existing)
	manager := newTestManager(t, provider, newMetricsSpy(), permissivePublisher())

	result, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)
	require.NotNil(t, result.Existing)
	assert.Equal(t, existing.ID, result.Existing.ID)
	assert.Empty(t, provider.starts)
}

func TestBroadcastManager_EnsureStarted_StopsExtrasKeepingMatch(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(startedTo("b1", otherDest))
	provider.addBroadcast(startedTo("b2", targetDest))
	provider.addBroadcast(startedTo("b3", targetDest))
	metrics := newMetricsSpy()
	manager := newTestManager(t, provider, metrics, permissivePublisher())

	result, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.BroadcastID{"b1", "b3"}, result.StoppedExtras, "N-1 broadcasts stopped")
	require.NotNil(t, result.Existing)
	assert.Equal(t, domain.BroadcastID("b2"), result.Existing.ID)
	assert.Empty(t, provider.starts)
	assert.Equal(t, 1, provider.startedCount(testSession))
	assert.Equal(t, 2, metrics.anomalies)
}

func TestBroadcastManager_EnsureStarted_StopsAllWhenNoneMatch(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(startedTo("b1", otherDest))
	provider.addBroadcast(startedTo("b2", otherDest))
	manager := newTestManager(t, provider, newMetricsSpy(), permissivePublisher())

	result, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)

	assert.ElementsMatch(t, []domain.BroadcastID{"b1", "b2"}, result.StoppedExtras)
	require.NotNil(t, result.Started)
	assert.Len(t, provider.starts, 1)
	assert.Equal(t, []domain.RTMPDestination{targetDest}, provider.starts[0].Destinations)
	assert.Equal(t, 1, provider.startedCount(testSession))
}

func TestBroadcastManager_EnsureStarted_ExtraStopFailureIsNotFatal(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(startedTo("b1", targetDest))
	provider.addBroadcast(startedTo("b2", otherDest))
	provider.stopErr["b2"] = errors.New("rejected")
	metrics := newMetricsSpy()
	manager := newTestManager(t, provider, metrics, permissivePublisher())

	result, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	require.NoError(t, err)

	require.Len(t, result.StopFailures, 1)
	assert.Equal(t, domain.BroadcastID("b2"), result.StopFailures[0].BroadcastID)
	assert.Equal(t, domain.BroadcastID("b1"), result.Existing.ID)
	assert.Equal(t, 1, metrics.stopsFailed)
}

func TestBroadcastManager_EnsureStarted_StartFailureIsSurfaced(t *testing.T) {
	provider := newFakeProvider()
	provider.startErr = fmt.Errorf("503: %w", domain.ErrProviderUnavailable)
	metrics := newMetricsSpy()
	manager := newTestManager(t, provider, metrics, permissivePublisher())

	_, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 1, metrics.startsFailed)
}

func TestBroadcastManager_EnsureStarted_ListingFailure(t *testing.T) {
	provider := newFakeProvider()
	provider.listBroadcastsErr = domain.ErrProviderUnavailable
	manager := newTestManager(t, provider, newMetricsSpy(), permissivePublisher())

	_, err := manager.EnsureStarted(context.Background(), testSession, targetDest, domain.DefaultLayoutDescriptor())
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Empty(t, provider.starts)
}

func TestBroadcastManager_StopAll(t *testing.T) {
	provider := newFakeProvider()
	provider.addBroadcast(startedTo("b1", targetDest))
	provider.addBroadcast(startedTo("b2", otherDest))
	provider.addBroadcast(domain.Broadcast{ID: "b3", SessionID: testSession, Status: domain.BroadcastStatusStopped})
	provider.stopErr["b1"] = errors.New("rejected")
	publisher := &MockPublisher{}
	publisher.On("PublishBroadcastsStopped", mock.Anything, testSession, []domain.BroadcastID{"b2"}).Return(nil).Once()
	manager := newTestManager(t, provider, newMetricsSpy(), publisher)

	report, err := manager.StopAll(context.Background(), testSession)
	require.NoError(t, err)

	assert.Equal(t, []domain.BroadcastID{"b2"}, report.Stopped)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, domain.BroadcastID("b1"), report.Failures[0].BroadcastID)
	assert.ElementsMatch(t, []domain.BroadcastID{"b1", "b2"}, provider.stops, "stopped broadcasts are not stopped again")
	publisher.AssertExpectations(t)
}

func TestBroadcastManager_StopAll_NothingStarted(t *testing.T) {
	provider := newFakeProvider()
	publisher := &MockPublisher{}
	manager := newTestManager(t, provider, newMetricsSpy(), publisher)

	report, err := manager.StopAll(context.Background(), testSession)
	require.NoError(t, err)
	assert.Empty(t, report.Stopped)
	publisher.AssertNotCalled(t, "PublishBroadcastsStopped", mock.Anything, mock.Anything, mock.Anything)
}

func TestRedactDestination(t *testing.T) {
	dest := domain.RTMPDestination{ServerURL: "rtmp://a.example.com/live/", StreamName: "key12"}
	assert.Equal(t, "rtmp://a.example.com/live/ke***", redactDestination(dest))
}
