package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"relaycast/internal/core/domain"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type published struct {
	channel string
	data    []byte
}

type fakePubSub struct {
	messages []published
	err      error

	// subscriber backs Subscribe when set.
	subscriber *redis.Client
}

func (f *fakePubSub) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	f.messages = append(f.messages, published{channel: channel, data: message.([]byte)})
	return redis.NewIntResult(1, nil)
}

func (f *fakePubSub) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	if f.subscriber == nil {
		return nil
	}
	return f.subscriber.Subscribe(ctx, channels...)
}

func newTestBus(t *testing.T, client *fakePubSub) (*EventBus, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	return newEventBus(client, "relaycast:events", "instance-a", clock, zaptest.NewLogger(t).Sugar()), clock
}

func decodeEvent(t *testing.T, msg published) Event {
	t.Helper()
	var event Event
	require.NoError(t, json.Unmarshal(msg.data, &event))
	return event
}

func TestEventBus_PublishReconciled(t *testing.T) {
	client := &fakePubSub{}
	bus, clock := newTestBus(t, client)

	start := clock.Now()
	outcome := &domain.ReconcileOutcome{
		IntentID:          "l1",
		EventSessionID:    "es-1",
		SessionID:         "sess-1",
		Kind:              domain.LayoutKindPair,
		State:             domain.ReconcileFailed,
		FailedAt:          domain.ReconcileApplying,
		InvalidStreams:    []domain.StreamID{"Z"},
		BroadcastFailures: []domain.BroadcastFailure{{BroadcastID: "b1", Err: errors.New("x")}},
		Err:               errors.New("provider down"),
		StartedAt:         start,
		FinishedAt:        start.Add(1500 * time.Millisecond),
	}
	require.NoError(t, bus.PublishReconciled(context.Background(), outcome))

	require.Len(t, client.messages, 1)
	assert.Equal(t, "relaycast:events", client.messages[0].channel)

	event := decodeEvent(t, client.messages[0])
	assert.Equal(t, EventLayoutReconciled, event.Type)
	assert.Equal(t, "instance-a", event.InstanceID)
	assert.Equal(t, domain.SessionID("sess-1"), event.SessionID)
	assert.True(t, clock.Now().Equal(event.Timestamp))

	var payload ReconciledPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	assert.Equal(t, domain.ReconcileApplying, payload.FailedAt)
	assert.Equal(t, 1, payload.BroadcastFailures)
	assert.Equal(t, "provider down", payload.Error)
	assert.Equal(t, int64(1500), payload.DurationMs)
}

func TestEventBus_PublishBroadcasts(t *testing.T) {
	client := &fakePubSub{}
	bus, _ := newTestBus(t, client)
	ctx := context.Background()

	require.NoError(t, bus.PublishBroadcastStarted(ctx, "sess-1", &domain.Broadcast{ID: "b1"}))
	require.NoError(t, bus.PublishBroadcastsStopped(ctx, "sess-1", nil))
	require.NoError(t, bus.PublishBroadcastsStopped(ctx, "sess-1", []domain.BroadcastID{"b2", "b3"}))

	require.Len(t, client.messages, 2)
	assert.Equal(t, EventBroadcastStarted, decodeEvent(t, client.messages[0]).Type)

	stopped := decodeEvent(t, client.messages[1])
	assert.Equal(t, EventBroadcastStopped, stopped.Type)
	var payload BroadcastsPayload
	require.NoError(t, json.Unmarshal(stopped.Payload, &payload))
	assert.Equal(t, []domain.BroadcastID{"b2", "b3"}, payload.BroadcastIDs)
}

func TestEventBus_PublishError(t *testing.T) {
	bus, _ := newTestBus(t, &fakePubSub{err: errors.New("redis down")})

	err := bus.PublishBroadcastStarted(context.Background(), "sess-1", &domain.Broadcast{ID: "b1"})
	assert.ErrorContains(t, err, "redis down")
}

func TestEventBus_DispatchSkipsOwnEvents(t *testing.T) {
	bus, _ := newTestBus(t, &fakePubSub{})
	var handled []EventType
	handler := func(e *Event) error {
		handled = append(handled, e.Type)
		return nil
	}

	own, _ := json.Marshal(Event{Type: EventBroadcastStarted, InstanceID: "instance-a"})
	other, _ := json.Marshal(Event{Type: EventBroadcastStopped, InstanceID: "instance-b"})

	bus.dispatch(string(own), handler)
	bus.dispatch(string(other), handler)
	bus.dispatch("not json", handler)

	assert.Equal(t, []EventType{EventBroadcastStopped}, handled)
}

func TestEventBus_CloseEndsSubscription(t *testing.T) {
	// Nothing listens here; the subscription keeps reconnecting until closed.
	unreachable := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = unreachable.Close() })
	bus, _ := newTestBus(t, &fakePubSub{subscriber: unreachable})

	result := make(chan error, 1)
	go func() {
		result <- bus.Subscribe(context.Background(), func(*Event) error { return nil })
	}()
	require.Eventually(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		return bus.cancel != nil
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Close())
	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("subscribe did not return after close")
	}

	assert.NoError(t, bus.Close(), "closing twice is harmless")
	assert.ErrorIs(t, bus.Subscribe(context.Background(), func(*Event) error { return nil }), ErrEventBusClosed)
}

func TestEventBus_CloseWithoutSubscribe(t *testing.T) {
	bus, _ := newTestBus(t, &fakePubSub{})
	assert.NoError(t, bus.Close())
}
