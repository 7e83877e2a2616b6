package commands

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/voting-engine/ports"
)

// appendCounterTask enqueues a counter delta through the transaction's outbox.
// The event id doubles as the reconciler's deduplication key.
func appendCounterTask(
	ctx context.Context,
	tx ports.VoteTransaction,
	idGen ports.IDGenerator,
	eventType string,
	pollID string,
	occurredAt time.Time,
	data any,
) error {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := eventsv1.NewEnvelope(eventID, eventType, "voting-engine", "poll_id", pollID, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}
