package distributed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type EventType string

const (
	EventLayoutReconciled EventType = "layout.reconciled"
	EventBroadcastStarted EventType = "broadcast.started"
	EventBroadcastStopped EventType = "broadcast.stopped"
)

type Event struct {
	Type       EventType        `json:"type"`
	InstanceID string           `json:"instance_id"`
	Timestamp  time.Time        `json:"timestamp"`
	SessionID  domain.SessionID `json:"session_id,omitempty"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}

type ReconciledPayload struct {
	IntentID          domain.LayoutID       `json:"intent_id"`
	EventSessionID    domain.EventSessionID `json:"event_session_id"`
	Kind              domain.LayoutKind     `json:"kind,omitempty"`
	State             domain.ReconcileState `json:"state"`
	FailedAt          domain.ReconcileState `json:"failed_at,omitempty"`
	Pruned            int                   `json:"pruned"`
	InvalidStreams    []domain.StreamID     `json:"invalid_streams,omitempty"`
	BroadcastFailures int                   `json:"broadcast_failures"`
	Error             string                `json:"error,omitempty"`
	DurationMs        int64                 `json:"duration_ms"`
}

type BroadcastsPayload struct {
	BroadcastIDs []domain.BroadcastID `json:"broadcast_ids"`
}

// pubSub is the part of the redis client the bus needs.
type pubSub interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// EventBus fans outcomes out to other instances over redis pub/sub.
type EventBus struct {
	client     pubSub
	instanceID string
	channel    string
	clock      clockwork.Clock
	logger     *zap.SugaredLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	closed bool
}

var ErrEventBusClosed = errors.New("event bus closed")

var _ ports.OutcomePublisher = (*EventBus)(nil)

func NewEventBus(client *redis.Client, channel, instanceID string, logger *zap.SugaredLogger) *EventBus {
	return newEventBus(client, channel, instanceID, clockwork.NewRealClock(), logger)
}

func newEventBus(client pubSub, channel, instanceID string, clock clockwork.Clock, logger *zap.SugaredLogger) *EventBus {
	return &EventBus{
		client:     client,
		instanceID: instanceID,
		channel:    channel,
		clock:      clock,
		logger:     logger,
	}
}

func (eb *EventBus) Publish(ctx context.Context, event *Event) error {
	event.InstanceID = eb.instanceID
	event.Timestamp = eb.clock.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := eb.client.Publish(ctx, eb.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	eb.logger.Debugw("published event",
		"type", event.Type,
		"session_id", event.SessionID,
	)
	return nil
}

func (eb *EventBus) PublishReconciled(ctx context.Context, outcome *domain.ReconcileOutcome) error {
	payload := ReconciledPayload{
		IntentID:          outcome.IntentID,
		EventSessionID:    outcome.EventSessionID,
		Kind:              outcome.Kind,
		State:             outcome.State,
		FailedAt:          outcome.FailedAt,
		Pruned:            outcome.Pruned,
		InvalidStreams:    outcome.InvalidStreams,
		BroadcastFailures: len(outcome.BroadcastFailures),
		DurationMs:        outcome.Duration().Milliseconds(),
	}
	if outcome.Err != nil {
		payload.Error = outcome.Err.Error()
	}
	return eb.publishPayload(ctx, EventLayoutReconciled, outcome.SessionID, payload)
}

func (eb *EventBus) PublishBroadcastStarted(ctx context.Context, sessionID domain.SessionID, broadcast *domain.Broadcast) error {
	return eb.publishPayload(ctx, EventBroadcastStarted, sessionID, BroadcastsPayload{
		BroadcastIDs: []domain.BroadcastID{broadcast.ID},
	})
}

func (eb *EventBus) PublishBroadcastsStopped(ctx context.Context, sessionID domain.SessionID, stopped []domain.BroadcastID) error {
	if len(stopped) == 0 {
		return nil
	}
	return eb.publishPayload(ctx, EventBroadcastStopped, sessionID, BroadcastsPayload{BroadcastIDs: stopped})
}

func (eb *EventBus) publishPayload(ctx context.Context, eventType EventType, sessionID domain.SessionID, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return eb.Publish(ctx, &Event{
		Type:      eventType,
		SessionID: sessionID,
		Payload:   data,
	})
}

// Subscribe delivers events from other instances to handler until ctx ends
// or Close is called. It owns the redis subscription and closes it on return.
func (eb *EventBus) Subscribe(ctx context.Context, handler func(*Event) error) error {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return ErrEventBusClosed
	}
	if eb.cancel != nil {
		eb.mu.Unlock()
		return fmt.Errorf("already subscribed")
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	eb.cancel, eb.done = cancel, done
	eb.mu.Unlock()

	defer close(done)
	defer cancel()

	pubsub := eb.client.Subscribe(ctx, eb.channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			eb.logger.Warnw("error closing subscription", "channel", eb.channel, "error", err)
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			eb.dispatch(msg.Payload, handler)
		}
	}
}

func (eb *EventBus) dispatch(raw string, handler func(*Event) error) {
	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		eb.logger.Warnw("failed to unmarshal event", "error", err)
		return
	}
	if event.InstanceID == eb.instanceID {
		return
	}
	if err := handler(&event); err != nil {
		eb.logger.Warnw("error handling event",
			"type", event.Type,
			"error", err,
		)
	}
}

// Close ends a running Subscribe and waits for it to release the subscription.
func (eb *EventBus) Close() error {
	eb.mu.Lock()
	eb.closed = true
	cancel, done := eb.cancel, eb.done
	eb.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
