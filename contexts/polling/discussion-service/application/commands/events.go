package commands

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/discussion-service/ports"
)

func appendCounterTask(
	ctx context.Context,
	tx ports.CommentTransaction,
	idGen ports.IDGenerator,
	eventType string,
	keyPath string,
	key string,
	occurredAt time.Time,
	data any,
) error {
	eventID, err := idGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := eventsv1.NewEnvelope(eventID, eventType, "discussion-service", keyPath, key, occurredAt, data)
	if err != nil {
		return err
	}
	return tx.AppendOutbox(ctx, envelope)
}

func commentCountTask(ctx context.Context, tx ports.CommentTransaction, idGen ports.IDGenerator, pollID string, commentID string, created bool, at time.Time) error {
	return appendCounterTask(ctx, tx, idGen, eventsv1.CounterCommentCountDelta, "poll_id", pollID, at, eventsv1.CommentCountDelta{
		PollID:    pollID,
		CommentID: commentID,
		Created:   created,
	})
}
