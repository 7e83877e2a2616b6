package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/discussion-service/adapters/memory"
	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func newUseCases() (CommentUseCase, ReactionUseCase, *memory.Store) {
	store := memory.NewStore("poll-1", "poll-2")
	clock := fixedClock{now: time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)}
	return CommentUseCase{Comments: store, Clock: clock, IDGen: store},
		ReactionUseCase{Comments: store, Clock: clock, IDGen: store},
		store
}

func countEvents(store *memory.Store, eventType string) int {
	count := 0
	for _, event := range store.Outbox() {
		if event.EventType == eventType {
			count++
		}
	}
	return count
}

func TestCreateCommentEnforcesSingleNestingLevel(t *testing.T) {
	comments, _, store := newUseCases()
	ctx := context.Background()

	top, err := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "first"})
	if err != nil {
		t.Fatalf("create top-level failed: %v", err)
	}
	reply, err := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u2", Content: "reply", ParentID: top.CommentID})
	if err != nil {
		t.Fatalf("create reply failed: %v", err)
	}

	_, err = comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u3", Content: "nested", ParentID: reply.CommentID})
	if !errors.Is(err, domainerrors.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent for reply to a reply, got %v", err)
	}
	_, err = comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u3", Content: "dangling", ParentID: "missing"})
	if !errors.Is(err, domainerrors.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent for unknown parent, got %v", err)
	}
	_, err = comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-2", AuthorID: "u3", Content: "elsewhere", ParentID: top.CommentID})
	if !errors.Is(err, domainerrors.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent across polls, got %v", err)
	}
	_, err = comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-9", AuthorID: "u3", Content: "lost"})
	if !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}

	if got := countEvents(store, eventsv1.CounterCommentCountDelta); got != 2 {
		t.Fatalf("expected two comment count tasks, got %d", got)
	}
}

func TestDeleteTopLevelCommentRemovesReplies(t *testing.T) {
	comments, reactions, store := newUseCases()
	ctx := context.Background()

	top, _ := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "first"})
	reply, _ := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u2", Content: "reply", ParentID: top.CommentID})
	if _, err := reactions.ToggleLike(ctx, ToggleReactionCommand{CommentID: reply.CommentID, AuthorID: "u3"}); err != nil {
		t.Fatalf("like failed: %v", err)
	}

	if _, err := comments.DeleteComment(ctx, DeleteCommentCommand{CommentID: top.CommentID, ActorID: "u2"}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-author, got %v", err)
	}
	deleted, err := comments.DeleteComment(ctx, DeleteCommentCommand{CommentID: top.CommentID, ActorID: "u1"})
	if err != nil || deleted != 2 {
		t.Fatalf("expected two comments deleted, got %d (%v)", deleted, err)
	}
	if _, err := store.GetComment(ctx, reply.CommentID); !errors.Is(err, domainerrors.ErrCommentNotFound) {
		t.Fatalf("expected reply to be gone, got %v", err)
	}

	decrements := 0
	for _, event := range store.Outbox() {
		if event.EventType != eventsv1.CounterCommentCountDelta {
			continue
		}
		var delta eventsv1.CommentCountDelta
		if err := json.Unmarshal(event.Data, &delta); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if !delta.Created {
			decrements++
		}
	}
	if decrements != 2 {
		t.Fatalf("expected one decrement per deleted comment, got %d", decrements)
	}
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	comments, _, _ := newUseCases()
	ctx := context.Background()
	comment, _ := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "draft"})

	if _, err := comments.UpdateComment(ctx, UpdateCommentCommand{CommentID: comment.CommentID, ActorID: "u2", Content: "hijack"}); !errors.Is(err, domainerrors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	updated, err := comments.UpdateComment(ctx, UpdateCommentCommand{CommentID: comment.CommentID, ActorID: "u1", Content: "final"})
	if err != nil || updated.Content != "final" {
		t.Fatalf("expected updated content, got %#v (%v)", updated, err)
	}
}

func TestDislikeThenLikeSwapsReaction(t *testing.T) {
	comments, reactions, store := newUseCases()
	ctx := context.Background()
	comment, _ := comments.CreateComment(ctx, CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "hot take"})
	cmd := ToggleReactionCommand{CommentID: comment.CommentID, AuthorID: "u2"}

	first, err := reactions.ToggleDislike(ctx, cmd)
	if err != nil || first.To != entities.ReactionDisliked || first.DislikesDelta != 1 {
		t.Fatalf("unexpected dislike transition: %#v (%v)", first, err)
	}
	second, err := reactions.ToggleLike(ctx, cmd)
	if err != nil || second.To != entities.ReactionLiked {
		t.Fatalf("unexpected like transition: %#v (%v)", second, err)
	}
	if second.LikesDelta != 1 || second.DislikesDelta != -1 {
		t.Fatalf("expected one action to move both counters, got %#v", second)
	}

	state, err := store.GetReactionState(ctx, comment.CommentID, "u2")
	if err != nil || state != entities.ReactionLiked {
		t.Fatalf("expected liked state, got %s (%v)", state, err)
	}
	if countEvents(store, eventsv1.CounterCommentDislikeToggled) != 1 || countEvents(store, eventsv1.CounterCommentLikeToggled) != 1 {
		t.Fatalf("expected one task per toggle, got %#v", store.Outbox())
	}

	_, err = reactions.ToggleLike(ctx, ToggleReactionCommand{CommentID: "missing", AuthorID: "u2"})
	if !errors.Is(err, domainerrors.ErrCommentNotFound) {
		t.Fatalf("expected ErrCommentNotFound, got %v", err)
	}
}
