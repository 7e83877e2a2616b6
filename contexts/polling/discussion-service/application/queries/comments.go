package queries

import (
	"context"
	"strings"

	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/contexts/polling/discussion-service/ports"
)

type CommentQueryUseCase struct {
	Comments ports.CommentRepository
}

func (uc CommentQueryUseCase) ListComments(ctx context.Context, pollID string) ([]entities.Thread, error) {
	comments, err := uc.Comments.ListComments(ctx, strings.TrimSpace(pollID))
	if err != nil {
		return nil, err
	}
	return entities.BuildThreads(comments), nil
}

func (uc CommentQueryUseCase) ReactionState(ctx context.Context, commentID string, authorID string) (entities.ReactionState, error) {
	commentID = strings.TrimSpace(commentID)
	authorID = strings.TrimSpace(authorID)
	if commentID == "" || authorID == "" {
		return "", domainerrors.ErrInvalidCommentInput
	}
	if _, err := uc.Comments.GetComment(ctx, commentID); err != nil {
		return "", err
	}
	return uc.Comments.GetReactionState(ctx, commentID, authorID)
}
