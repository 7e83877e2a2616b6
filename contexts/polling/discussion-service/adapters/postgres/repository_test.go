package postgresadapter

import (
	"context"
	"errors"
	"testing"
	"time"

	"altvote/contexts/polling/discussion-service/application/commands"
	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/internal/platform/db/dbtest"

	"gorm.io/gorm"
)

var baseTime = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func seedPoll(t *testing.T, db *gorm.DB, pollID string) {
	t.Helper()
	if err := db.Exec(
		"INSERT INTO polls (poll_id, author_id, title, description, confirmed, comments_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		pollID, "author-1", "Poll "+pollID, "", false, 0, baseTime, baseTime,
	).Error; err != nil {
		t.Fatalf("seed poll failed: %v", err)
	}
}

func countRows(t *testing.T, db *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	var count int64
	if err := db.Table(table).Where(where, args...).Count(&count).Error; err != nil {
		t.Fatalf("count %s failed: %v", table, err)
	}
	return count
}

func TestToggleKeepsReactionRowsExclusive(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1")
	repo := NewRepository(db, nil)
	ctx := context.Background()
	comments := commands.CommentUseCase{Comments: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}
	reactions := commands.ReactionUseCase{Comments: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}

	comment, err := comments.CreateComment(ctx, commands.CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "hello"})
	if err != nil {
		t.Fatalf("create comment failed: %v", err)
	}
	cmd := commands.ToggleReactionCommand{CommentID: comment.CommentID, AuthorID: "u2"}

	if _, err := reactions.ToggleLike(ctx, cmd); err != nil {
		t.Fatalf("like failed: %v", err)
	}
	if _, err := reactions.ToggleDislike(ctx, cmd); err != nil {
		t.Fatalf("dislike failed: %v", err)
	}
	if likes := countRows(t, db, "comment_likes", "comment_id = ?", comment.CommentID); likes != 0 {
		t.Fatalf("expected like row removed, got %d", likes)
	}
	if dislikes := countRows(t, db, "comment_dislikes", "comment_id = ?", comment.CommentID); dislikes != 1 {
		t.Fatalf("expected one dislike row, got %d", dislikes)
	}

	transition, err := reactions.ToggleDislike(ctx, cmd)
	if err != nil || transition.To != entities.ReactionNone {
		t.Fatalf("expected toggle back to none, got %#v (%v)", transition, err)
	}
	state, err := repo.GetReactionState(ctx, comment.CommentID, "u2")
	if err != nil || state != entities.ReactionNone {
		t.Fatalf("expected none, got %s (%v)", state, err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 4 {
		t.Fatalf("expected comment and three toggle tasks, got %d (%v)", len(pending), err)
	}
}

func TestDeleteCommentCascadesRepliesAndReactions(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1")
	repo := NewRepository(db, nil)
	ctx := context.Background()
	comments := commands.CommentUseCase{Comments: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}
	reactions := commands.ReactionUseCase{Comments: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}

	top, err := comments.CreateComment(ctx, commands.CreateCommentCommand{PollID: "poll-1", AuthorID: "u1", Content: "top"})
	if err != nil {
		t.Fatalf("create top failed: %v", err)
	}
	reply, err := comments.CreateComment(ctx, commands.CreateCommentCommand{PollID: "poll-1", AuthorID: "u2", Content: "reply", ParentID: top.CommentID})
	if err != nil {
		t.Fatalf("create reply failed: %v", err)
	}
	if _, err := comments.CreateComment(ctx, commands.CreateCommentCommand{PollID: "poll-1", AuthorID: "u3", Content: "deep", ParentID: reply.CommentID}); !errors.Is(err, domainerrors.ErrInvalidParent) {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
	if _, err := reactions.ToggleLike(ctx, commands.ToggleReactionCommand{CommentID: reply.CommentID, AuthorID: "u3"}); err != nil {
		t.Fatalf("like failed: %v", err)
	}

	deleted, err := comments.DeleteComment(ctx, commands.DeleteCommentCommand{CommentID: top.CommentID, ActorID: "u1"})
	if err != nil || deleted != 2 {
		t.Fatalf("expected two deleted comments, got %d (%v)", deleted, err)
	}
	if remaining := countRows(t, db, "comments", "poll_id = ?", "poll-1"); remaining != 0 {
		t.Fatalf("expected no comments left, got %d", remaining)
	}
	if likes := countRows(t, db, "comment_likes", "comment_id = ?", reply.CommentID); likes != 0 {
		t.Fatalf("expected reactions removed with the reply, got %d", likes)
	}

	threads, err := repo.ListComments(ctx, "poll-1")
	if err != nil || len(threads) != 0 {
		t.Fatalf("expected empty listing, got %d (%v)", len(threads), err)
	}
	if _, err := repo.ListComments(ctx, "missing"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}

func TestCommentReadsFloorReactionCounts(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1")
	if err := db.Exec(
		"INSERT INTO comments (comment_id, poll_id, author_id, content, likes_count, dislikes_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		"c1", "poll-1", "author-1", "hello", 1, -1, baseTime, baseTime,
	).Error; err != nil {
		t.Fatalf("seed comment failed: %v", err)
	}

	comment, err := NewRepository(db, nil).GetComment(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get comment failed: %v", err)
	}
	if comment.LikesCount != 1 || comment.DislikesCount != 0 {
		t.Fatalf("expected likes=1 dislikes=0, got likes=%d dislikes=%d", comment.LikesCount, comment.DislikesCount)
	}
}
