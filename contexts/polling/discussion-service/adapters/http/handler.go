package httpadapter

import (
	"context"
	"log/slog"

	"altvote/contexts/polling/discussion-service/application/commands"
	"altvote/contexts/polling/discussion-service/application/queries"
	"altvote/contexts/polling/discussion-service/domain/entities"
	httptransport "altvote/contexts/polling/discussion-service/transport/http"
)

type Handler struct {
	Comments  commands.CommentUseCase
	Reactions commands.ReactionUseCase
	Queries   queries.CommentQueryUseCase
	Logger    *slog.Logger
}

func (h Handler) CreateCommentHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.CreateCommentRequest,
) (httptransport.CommentResponse, error) {
	comment, err := h.Comments.CreateComment(ctx, commands.CreateCommentCommand{
		PollID:   pollID,
		AuthorID: userID,
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		return httptransport.CommentResponse{}, err
	}
	return mapComment(comment), nil
}

func (h Handler) UpdateCommentHandler(
	ctx context.Context,
	userID string,
	commentID string,
	req httptransport.UpdateCommentRequest,
) (httptransport.CommentResponse, error) {
	comment, err := h.Comments.UpdateComment(ctx, commands.UpdateCommentCommand{
		CommentID: commentID,
		ActorID:   userID,
		Content:   req.Content,
	})
	if err != nil {
		return httptransport.CommentResponse{}, err
	}
	return mapComment(comment), nil
}

func (h Handler) DeleteCommentHandler(ctx context.Context, userID string, commentID string) (httptransport.DeleteCommentResponse, error) {
	deleted, err := h.Comments.DeleteComment(ctx, commands.DeleteCommentCommand{
		CommentID: commentID,
		ActorID:   userID,
	})
	if err != nil {
		return httptransport.DeleteCommentResponse{}, err
	}
	return httptransport.DeleteCommentResponse{CommentID: commentID, DeletedCount: deleted}, nil
}

func (h Handler) ListCommentsHandler(ctx context.Context, pollID string) (httptransport.ListCommentsResponse, error) {
	threads, err := h.Queries.ListComments(ctx, pollID)
	if err != nil {
		return httptransport.ListCommentsResponse{}, err
	}
	resp := httptransport.ListCommentsResponse{Items: make([]httptransport.ThreadResponse, 0, len(threads))}
	for _, thread := range threads {
		item := httptransport.ThreadResponse{
			CommentResponse: mapComment(thread.Comment),
			Replies:         make([]httptransport.CommentResponse, 0, len(thread.Replies)),
		}
		for _, reply := range thread.Replies {
			item.Replies = append(item.Replies, mapComment(reply))
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

func (h Handler) ToggleReactionHandler(
	ctx context.Context,
	userID string,
	commentID string,
	action entities.ReactionAction,
) (httptransport.ReactionResponse, error) {
	cmd := commands.ToggleReactionCommand{CommentID: commentID, AuthorID: userID}
	var (
		transition entities.Transition
		err        error
	)
	if action == entities.ActionDislike {
		transition, err = h.Reactions.ToggleDislike(ctx, cmd)
	} else {
		transition, err = h.Reactions.ToggleLike(ctx, cmd)
	}
	if err != nil {
		return httptransport.ReactionResponse{}, err
	}
	return httptransport.ReactionResponse{CommentID: commentID, State: string(transition.To)}, nil
}

func (h Handler) ReactionStateHandler(ctx context.Context, userID string, commentID string) (httptransport.ReactionResponse, error) {
	state, err := h.Queries.ReactionState(ctx, commentID, userID)
	if err != nil {
		return httptransport.ReactionResponse{}, err
	}
	return httptransport.ReactionResponse{CommentID: commentID, State: string(state)}, nil
}

func mapComment(comment entities.Comment) httptransport.CommentResponse {
	return httptransport.CommentResponse{
		CommentID:     comment.CommentID,
		PollID:        comment.PollID,
		ParentID:      comment.ParentID,
		AuthorID:      comment.AuthorID,
		Content:       comment.Content,
		LikesCount:    comment.LikesCount,
		DislikesCount: comment.DislikesCount,
		CreatedAt:     comment.CreatedAt,
		UpdatedAt:     comment.UpdatedAt,
	}
}
