package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/counter-reconciler/adapters/memory"
	"altvote/contexts/polling/counter-reconciler/application/commands"
	"altvote/contexts/polling/counter-reconciler/application/workers"
	"altvote/contexts/polling/counter-reconciler/domain/entities"
	"altvote/contexts/polling/counter-reconciler/ports"
	"altvote/internal/platform/messaging"
)

// flakyCounters fails the first attempt of one event and records the order
// in which events commit.
type flakyCounters struct {
	*memory.Store

	mu      sync.Mutex
	failing string
	failed  bool
	applied []string
}

func (s *flakyCounters) ApplyOnce(ctx context.Context, reservation entities.Reservation, fn func(context.Context, ports.CounterWriter) error) (bool, error) {
	s.mu.Lock()
	if reservation.EventID == s.failing && !s.failed {
		s.failed = true
		s.mu.Unlock()
		return false, errors.New("connection reset")
	}
	s.mu.Unlock()

	duplicate, err := s.Store.ApplyOnce(ctx, reservation, fn)
	if err == nil {
		s.mu.Lock()
		s.applied = append(s.applied, reservation.EventID)
		s.mu.Unlock()
	}
	return duplicate, err
}

func (s *flakyCounters) appliedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.applied...)
}

func TestReactionTasksSettleWhenRetriedOutOfOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := &flakyCounters{Store: memory.NewStore(), failing: "t1"}
	store.PutComment("c1")
	bus := messaging.NewBus(nil)
	consumer := workers.CounterConsumer{
		Subscriber: bus,
		Reconciler: commands.ReconcileUseCase{Counters: store, DedupTTL: time.Hour},
	}
	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start consumer: %v", err)
	}

	disliked, err := eventsv1.NewEnvelope("t1", eventsv1.CounterCommentDislikeToggled, "discussion-service", "comment_id", "c1", time.Now(),
		eventsv1.ReactionToggled{CommentID: "c1", AuthorID: "u1", From: "none", To: "disliked", DislikesDelta: 1})
	if err != nil {
		t.Fatalf("build t1: %v", err)
	}
	liked, err := eventsv1.NewEnvelope("t2", eventsv1.CounterCommentLikeToggled, "discussion-service", "comment_id", "c1", time.Now(),
		eventsv1.ReactionToggled{CommentID: "c1", AuthorID: "u1", From: "disliked", To: "liked", LikesDelta: 1, DislikesDelta: -1})
	if err != nil {
		t.Fatalf("build t2: %v", err)
	}
	if err := bus.Publish(ctx, disliked.EventType, disliked); err != nil {
		t.Fatalf("publish t1: %v", err)
	}
	if err := bus.Publish(ctx, liked.EventType, liked); err != nil {
		t.Fatalf("publish t2: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for len(store.appliedIDs()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for both tasks, applied %v", store.appliedIDs())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if order := store.appliedIDs(); order[0] != "t2" {
		t.Fatalf("expected the retried task to commit last, got %v", order)
	}
	got := store.Reactions("c1")
	if got.Likes != 1 || got.Dislikes != 0 {
		t.Fatalf("expected likes=1 dislikes=0, got likes=%d dislikes=%d", got.Likes, got.Dislikes)
	}
}
