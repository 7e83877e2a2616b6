package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	eventsv1 "altvote/contracts/events/v1"
)

// Handler consumes one envelope. A non-nil error asks the bus to redeliver.
type Handler = func(context.Context, eventsv1.Envelope) error

type subscriber struct {
	ch   chan eventsv1.Envelope
	done chan struct{}
}

// Bus is the in-process task bus used by single-binary deployments and tests.
// Each (topic, consumer group) pair owns one buffered channel; Publish blocks
// instead of dropping when a group falls behind.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscriber
	maxAttempts int
	backoff     time.Duration
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]subscriber),
		maxAttempts: 5,
		backoff:     200 * time.Millisecond,
		logger:      logger,
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event eventsv1.Envelope) error {
	b.mu.RLock()
	subs := append([]subscriber(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sub.done:
			// The subscriber stopped after the snapshot was taken.
		case sub.ch <- event:
		}
	}

	b.logger.Debug("event published",
		"event", "bus_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"subscriber_count", len(subs),
	)
	return nil
}

func (b *Bus) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler Handler,
) error {
	sub := subscriber{
		ch:   make(chan eventsv1.Envelope, 128),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(topic, sub)
				close(sub.done)
				return
			case event := <-sub.ch:
				b.deliver(ctx, topic, consumerGroup, handler, event)
			}
		}
	}()
	return nil
}

func (b *Bus) deliver(ctx context.Context, topic string, consumerGroup string, handler Handler, event eventsv1.Envelope) {
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err := handler(ctx, event)
		if err == nil {
			return
		}
		b.logger.Error("consumer handler failed",
			"event", "bus_consume_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"consumer_group", consumerGroup,
			"event_id", event.EventID,
			"attempt", attempt,
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(attempt) * b.backoff):
		}
	}
	b.logger.Error("event abandoned after retries",
		"event", "bus_consume_abandoned",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", consumerGroup,
		"event_id", event.EventID,
	)
}

func (b *Bus) removeSubscriber(topic string, target subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	items := b.subscribers[topic]
	if len(items) == 0 {
		return
	}
	filtered := make([]subscriber, 0, len(items))
	for _, item := range items {
		if item.ch != target.ch {
			filtered = append(filtered, item)
		}
	}
	b.subscribers[topic] = filtered
}
