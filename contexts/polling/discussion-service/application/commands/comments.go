package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "altvote/contexts/polling/discussion-service/application"
	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/contexts/polling/discussion-service/ports"
)

type CreateCommentCommand struct {
	PollID   string
	AuthorID string
	Content  string
	ParentID string
}

type UpdateCommentCommand struct {
	CommentID string
	ActorID   string
	Content   string
}

type DeleteCommentCommand struct {
	CommentID string
	ActorID   string
}

type CommentUseCase struct {
	Comments ports.CommentRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc CommentUseCase) CreateComment(ctx context.Context, cmd CreateCommentCommand) (entities.Comment, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	parentID := strings.TrimSpace(cmd.ParentID)
	if pollID == "" || authorID == "" {
		return entities.Comment{}, domainerrors.ErrInvalidCommentInput
	}
	content, err := entities.NormalizeContent(cmd.Content)
	if err != nil {
		return entities.Comment{}, err
	}

	now := uc.now()
	var comment entities.Comment
	err = uc.Comments.RunInTransaction(ctx, func(ctx context.Context, tx ports.CommentTransaction) error {
		exists, err := tx.PollExists(ctx, pollID)
		if err != nil {
			return err
		}
		if !exists {
			return domainerrors.ErrPollNotFound
		}
		if parentID != "" {
			parent, err := tx.GetComment(ctx, parentID)
			if err != nil {
				if errors.Is(err, domainerrors.ErrCommentNotFound) {
					return domainerrors.ErrInvalidParent
				}
				return err
			}
			if err := entities.CheckParent(parent, pollID); err != nil {
				return err
			}
		}

		commentID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		comment = entities.Comment{
			CommentID: commentID,
			PollID:    pollID,
			ParentID:  parentID,
			AuthorID:  authorID,
			Content:   content,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.InsertComment(ctx, comment); err != nil {
			return err
		}
		return commentCountTask(ctx, tx, uc.IDGen, pollID, commentID, true, now)
	})
	if err != nil {
		logger.Warn("comment create rejected",
			"event", "discussion_comment_create_rejected",
			"module", "polling/discussion-service",
			"layer", "application",
			"poll_id", pollID,
			"author_id", authorID,
			"error", err.Error(),
		)
		return entities.Comment{}, err
	}

	logger.Info("comment created",
		"event", "discussion_comment_created",
		"module", "polling/discussion-service",
		"layer", "application",
		"comment_id", comment.CommentID,
		"poll_id", comment.PollID,
		"parent_id", comment.ParentID,
		"author_id", comment.AuthorID,
	)
	return comment, nil
}

func (uc CommentUseCase) UpdateComment(ctx context.Context, cmd UpdateCommentCommand) (entities.Comment, error) {
	commentID := strings.TrimSpace(cmd.CommentID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if commentID == "" || actorID == "" {
		return entities.Comment{}, domainerrors.ErrInvalidCommentInput
	}
	content, err := entities.NormalizeContent(cmd.Content)
	if err != nil {
		return entities.Comment{}, err
	}

	now := uc.now()
	var comment entities.Comment
	err = uc.Comments.RunInTransaction(ctx, func(ctx context.Context, tx ports.CommentTransaction) error {
		current, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return err
		}
		if current.AuthorID != actorID {
			return domainerrors.ErrForbidden
		}
		if err := tx.UpdateCommentContent(ctx, commentID, content, now); err != nil {
			return err
		}
		current.Content = content
		current.UpdatedAt = now
		comment = current
		return nil
	})
	if err != nil {
		return entities.Comment{}, err
	}

	application.ResolveLogger(uc.Logger).Info("comment updated",
		"event", "discussion_comment_updated",
		"module", "polling/discussion-service",
		"layer", "application",
		"comment_id", commentID,
	)
	return comment, nil
}

// DeleteComment removes a comment and, for a top-level comment, its replies.
// Each removed comment enqueues its own comment count decrement.
func (uc CommentUseCase) DeleteComment(ctx context.Context, cmd DeleteCommentCommand) (int, error) {
	commentID := strings.TrimSpace(cmd.CommentID)
	actorID := strings.TrimSpace(cmd.ActorID)
	if commentID == "" || actorID == "" {
		return 0, domainerrors.ErrInvalidCommentInput
	}

	now := uc.now()
	deleted := 0
	err := uc.Comments.RunInTransaction(ctx, func(ctx context.Context, tx ports.CommentTransaction) error {
		comment, err := tx.GetComment(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.AuthorID != actorID {
			return domainerrors.ErrForbidden
		}
		removed := []entities.Comment{comment}
		if !comment.IsReply() {
			replies, err := tx.ListReplies(ctx, commentID)
			if err != nil {
				return err
			}
			removed = append(removed, replies...)
		}

		ids := make([]string, 0, len(removed))
		for _, item := range removed {
			ids = append(ids, item.CommentID)
		}
		if err := tx.DeleteComments(ctx, ids); err != nil {
			return err
		}
		for _, item := range removed {
			if err := commentCountTask(ctx, tx, uc.IDGen, item.PollID, item.CommentID, false, now); err != nil {
				return err
			}
		}
		deleted = len(removed)
		return nil
	})
	if err != nil {
		return 0, err
	}

	application.ResolveLogger(uc.Logger).Info("comment deleted",
		"event", "discussion_comment_deleted",
		"module", "polling/discussion-service",
		"layer", "application",
		"comment_id", commentID,
		"deleted_count", deleted,
	)
	return deleted, nil
}

func (uc CommentUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
