package outbox

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	eventsv1 "altvote/contracts/events/v1"
)

// Relay publishes persisted outbox rows of one service to the task bus.
type Relay struct {
	Name      string
	Outbox    Store
	Publisher Publisher
	Clock     Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending rows and marks each row
// published only after publish succeeds. It stops on the first failure so the
// next tick resumes from the oldest unpublished row.
func (r Relay) RunOnce(ctx context.Context) (int, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("outbox list failed",
			"event", "outbox_list_failed",
			"module", "internal/shared/outbox",
			"layer", "worker",
			"relay", r.Name,
			"error", err.Error(),
		)
		return 0, err
	}
	if len(pending) == 0 {
		logger.Debug("outbox relay found no pending rows",
			"event", "outbox_relay_noop",
			"module", "internal/shared/outbox",
			"layer", "worker",
			"relay", r.Name,
		)
		return 0, nil
	}

	published := 0
	for _, row := range pending {
		var event eventsv1.Envelope
		if err := json.Unmarshal(row.Payload, &event); err != nil {
			logger.Error("outbox decode failed",
				"event", "outbox_decode_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"relay", r.Name,
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		topic := event.EventType
		if topic == "" {
			topic = row.EventType
		}
		if err := r.Publisher.Publish(ctx, topic, event); err != nil {
			logger.Error("outbox publish failed",
				"event", "outbox_publish_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"relay", r.Name,
				"outbox_id", row.OutboxID,
				"event_id", event.EventID,
				"event_type", event.EventType,
				"error", err.Error(),
			)
			return published, err
		}
		if err := r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, r.now()); err != nil {
			logger.Error("outbox mark published failed",
				"event", "outbox_mark_published_failed",
				"module", "internal/shared/outbox",
				"layer", "worker",
				"relay", r.Name,
				"outbox_id", row.OutboxID,
				"error", err.Error(),
			)
			return published, err
		}
		published++
	}

	logger.Info("outbox relay cycle completed",
		"event", "outbox_relay_completed",
		"module", "internal/shared/outbox",
		"layer", "worker",
		"relay", r.Name,
		"published_count", published,
	)
	return published, nil
}

func (r Relay) now() time.Time {
	if r.Clock != nil {
		return r.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
