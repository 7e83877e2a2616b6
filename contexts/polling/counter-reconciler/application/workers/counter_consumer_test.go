package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/counter-reconciler/adapters/memory"
	"altvote/contexts/polling/counter-reconciler/application/commands"
	domainerrors "altvote/contexts/polling/counter-reconciler/domain/errors"
	"altvote/contexts/polling/counter-reconciler/ports"
)

type recordingSubscriber struct {
	topics []string
}

func (s *recordingSubscriber) Subscribe(_ context.Context, topic string, _ string, _ func(context.Context, ports.EventEnvelope) error) error {
	s.topics = append(s.topics, topic)
	return nil
}

func newConsumer(store *memory.Store) CounterConsumer {
	return CounterConsumer{Reconciler: commands.ReconcileUseCase{Counters: store}}
}

func envelope(t *testing.T, id string, eventType string, data any) eventsv1.Envelope {
	t.Helper()
	event, err := eventsv1.NewEnvelope(id, eventType, "test", "poll_id", "poll-1", time.Now(), data)
	if err != nil {
		t.Fatalf("build envelope failed: %v", err)
	}
	return event
}

func TestStartSubscribesEveryCounterTopic(t *testing.T) {
	subscriber := &recordingSubscriber{}
	consumer := newConsumer(memory.NewStore())
	consumer.Subscriber = subscriber
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if len(subscriber.topics) != len(Topics) {
		t.Fatalf("expected %d subscriptions, got %v", len(Topics), subscriber.topics)
	}
}

func TestHandleDeduplicatesRedelivery(t *testing.T) {
	store := memory.NewStore()
	store.PutOption("A")
	consumer := newConsumer(store)
	event := envelope(t, "e1", eventsv1.CounterSimpleVoteDelta, eventsv1.SimpleVoteDelta{PollID: "poll-1", OptionID: "A", Created: true})

	for i := 0; i < 3; i++ {
		if err := consumer.Handle(context.Background(), event); err != nil {
			t.Fatalf("delivery %d failed: %v", i+1, err)
		}
	}
	if got := store.Option("A").SimpleVotes; got != 1 {
		t.Fatalf("expected one counted vote after redelivery, got %d", got)
	}
}

func TestHandleRoutesReactionAndCommentTasks(t *testing.T) {
	store := memory.NewStore()
	store.PutComment("c1")
	store.PutPoll("poll-1")
	consumer := newConsumer(store)
	ctx := context.Background()

	events := []eventsv1.Envelope{
		envelope(t, "e1", eventsv1.CounterCommentCountDelta, eventsv1.CommentCountDelta{PollID: "poll-1", CommentID: "c1", Created: true}),
		envelope(t, "e2", eventsv1.CounterCommentLikeToggled, eventsv1.ReactionToggled{CommentID: "c1", From: "none", To: "liked", LikesDelta: 1}),
		envelope(t, "e3", eventsv1.CounterCommentLikeToggled, eventsv1.ReactionToggled{CommentID: "c1", From: "liked", To: "none", LikesDelta: -1}),
	}
	for _, event := range events {
		if err := consumer.Handle(ctx, event); err != nil {
			t.Fatalf("handle %s failed: %v", event.EventID, err)
		}
	}
	if store.CommentsCount("poll-1") != 1 {
		t.Fatalf("expected one comment counted")
	}
	if got := store.Reactions("c1"); got.Likes != 0 || got.Dislikes != 0 {
		t.Fatalf("expected like toggle to net zero, got %#v", got)
	}
}

func TestHandleRejectsUnknownAndMalformedTasks(t *testing.T) {
	consumer := newConsumer(memory.NewStore())
	err := consumer.Handle(context.Background(), eventsv1.Envelope{EventID: "e1", EventType: "counter.unknown"})
	if !errors.Is(err, domainerrors.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for unknown type, got %v", err)
	}
	err = consumer.Handle(context.Background(), eventsv1.Envelope{EventID: "e2", EventType: eventsv1.CounterRankedDelta, Data: []byte("{")})
	if !errors.Is(err, domainerrors.ErrInvalidTask) {
		t.Fatalf("expected ErrInvalidTask for malformed payload, got %v", err)
	}
}
