package outbox

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
)

// Message is an outbox row persisted inside the same DB transaction as the
// state change it describes.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

// Store is implemented by every service repository that owns an outbox table.
type Store interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]Message, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// Publisher hands envelopes to the task bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event eventsv1.Envelope) error
}

type Clock interface {
	Now() time.Time
}
