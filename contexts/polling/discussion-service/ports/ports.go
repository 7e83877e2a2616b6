package ports

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/discussion-service/domain/entities"
)

type EventEnvelope = eventsv1.Envelope

type CommentRepository interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx CommentTransaction) error) error

	GetComment(ctx context.Context, commentID string) (entities.Comment, error)
	ListComments(ctx context.Context, pollID string) ([]entities.Comment, error)
	GetReactionState(ctx context.Context, commentID string, authorID string) (entities.ReactionState, error)
}

type CommentTransaction interface {
	PollExists(ctx context.Context, pollID string) (bool, error)
	GetComment(ctx context.Context, commentID string) (entities.Comment, error)
	// LockComment serializes reaction toggles on one comment.
	LockComment(ctx context.Context, commentID string) (entities.Comment, error)
	InsertComment(ctx context.Context, comment entities.Comment) error
	UpdateCommentContent(ctx context.Context, commentID string, content string, updatedAt time.Time) error
	ListReplies(ctx context.Context, parentID string) ([]entities.Comment, error)
	// DeleteComments removes the comments and every reaction row on them.
	DeleteComments(ctx context.Context, commentIDs []string) error

	ReactionState(ctx context.Context, commentID string, authorID string) (entities.ReactionState, error)
	ApplyReaction(ctx context.Context, commentID string, authorID string, transition entities.Transition, at time.Time) error

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
