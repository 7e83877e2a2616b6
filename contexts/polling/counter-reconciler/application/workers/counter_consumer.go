package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	eventsv1 "altvote/contracts/events/v1"
	application "altvote/contexts/polling/counter-reconciler/application"
	"altvote/contexts/polling/counter-reconciler/application/commands"
	"altvote/contexts/polling/counter-reconciler/domain/entities"
	domainerrors "altvote/contexts/polling/counter-reconciler/domain/errors"
	"altvote/contexts/polling/counter-reconciler/ports"
)

const defaultConsumerGroup = "counter-reconciler-cg"

// Topics lists every counter task the reconciler consumes.
var Topics = []string{
	eventsv1.CounterSimpleVoteDelta,
	eventsv1.CounterRankedDelta,
	eventsv1.CounterCommentCountDelta,
	eventsv1.CounterCommentLikeToggled,
	eventsv1.CounterCommentDislikeToggled,
}

type CounterConsumer struct {
	Subscriber    ports.EventSubscriber
	Reconciler    commands.ReconcileUseCase
	ConsumerGroup string
	Logger        *slog.Logger
}

func (c CounterConsumer) Start(ctx context.Context) error {
	group := c.ConsumerGroup
	if group == "" {
		group = defaultConsumerGroup
	}
	for _, topic := range Topics {
		if err := c.Subscriber.Subscribe(ctx, topic, group, c.Handle); err != nil {
			return err
		}
	}
	return nil
}

// Handle decodes one envelope and applies it. A returned error asks the bus
// to redeliver; the event id keeps redelivery from double counting.
func (c CounterConsumer) Handle(ctx context.Context, event ports.EventEnvelope) error {
	task := entities.Task{
		EventID:     event.EventID,
		EventType:   event.EventType,
		PayloadHash: hashPayload(event.Data),
	}

	var err error
	switch event.EventType {
	case eventsv1.CounterSimpleVoteDelta:
		var delta eventsv1.SimpleVoteDelta
		if err = decode(event, &delta); err == nil {
			_, err = c.Reconciler.ApplySimpleVoteDelta(ctx, task, delta)
		}
	case eventsv1.CounterRankedDelta:
		var delta eventsv1.RankedDelta
		if err = decode(event, &delta); err == nil {
			_, err = c.Reconciler.ApplyRankedDelta(ctx, task, delta)
		}
	case eventsv1.CounterCommentCountDelta:
		var delta eventsv1.CommentCountDelta
		if err = decode(event, &delta); err == nil {
			_, err = c.Reconciler.ApplyCommentCountDelta(ctx, task, delta)
		}
	case eventsv1.CounterCommentLikeToggled:
		var delta eventsv1.ReactionToggled
		if err = decode(event, &delta); err == nil {
			_, err = c.Reconciler.ApplyLikeToggle(ctx, task, delta)
		}
	case eventsv1.CounterCommentDislikeToggled:
		var delta eventsv1.ReactionToggled
		if err = decode(event, &delta); err == nil {
			_, err = c.Reconciler.ApplyDislikeToggle(ctx, task, delta)
		}
	default:
		err = fmt.Errorf("%w: unknown event type %q", domainerrors.ErrInvalidTask, event.EventType)
	}

	if err != nil {
		application.ResolveLogger(c.Logger).Error("counter task rejected",
			"event", "counter_reconciler_task_rejected",
			"module", "polling/counter-reconciler",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
	}
	return err
}

func decode(event ports.EventEnvelope, target any) error {
	if err := json.Unmarshal(event.Data, target); err != nil {
		return fmt.Errorf("%w: decode %s payload: %w", domainerrors.ErrInvalidTask, event.EventType, err)
	}
	return nil
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
