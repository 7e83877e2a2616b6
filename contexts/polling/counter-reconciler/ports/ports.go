package ports

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/counter-reconciler/domain/entities"
)

type EventEnvelope = eventsv1.Envelope

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// CounterStore runs task deltas exactly once per event id.
type CounterStore interface {
	// ApplyOnce reserves the event and runs fn in one transaction. A live
	// reservation with the same hash returns duplicate=true without calling
	// fn; one with a different hash fails with ErrDedupConflict.
	ApplyOnce(ctx context.Context, reservation entities.Reservation, fn func(ctx context.Context, w CounterWriter) error) (duplicate bool, err error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// CounterWriter is the only handle in the system that can mutate
// denormalized counters. Deltas are added as signed values so they commute;
// readers floor the stored sums at zero. found=false means the target row
// no longer exists.
type CounterWriter interface {
	AddSimpleVotes(ctx context.Context, optionID string, delta int) (found bool, err error)
	AddRankedPoints(ctx context.Context, optionID string, delta int) (found bool, err error)
	AddPreferentialPosition(ctx context.Context, optionID string, position int, delta int) (found bool, err error)
	AddCommentsCount(ctx context.Context, pollID string, delta int) (found bool, err error)
	AddReactionCounts(ctx context.Context, commentID string, likesDelta int, dislikesDelta int) (found bool, err error)
}

type Clock interface {
	Now() time.Time
}
