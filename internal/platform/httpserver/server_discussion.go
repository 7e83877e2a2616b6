package httpserver

import (
	"errors"
	"net/http"

	"altvote/contexts/polling/discussion-service/domain/entities"
	discussiondomainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	discussionhttp "altvote/contexts/polling/discussion-service/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	resp, err := s.discussion.Handler.ListCommentsHandler(r.Context(), chi.URLParam(r, "poll_id"))
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req discussionhttp.CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.discussion.Handler.CreateCommentHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req discussionhttp.UpdateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.discussion.Handler.UpdateCommentHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "comment_id"), req)
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.discussion.Handler.DeleteCommentHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "comment_id"))
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLikeComment(w http.ResponseWriter, r *http.Request) {
	s.toggleReaction(w, r, entities.ActionLike)
}

func (s *Server) handleDislikeComment(w http.ResponseWriter, r *http.Request) {
	s.toggleReaction(w, r, entities.ActionDislike)
}

func (s *Server) toggleReaction(w http.ResponseWriter, r *http.Request, action entities.ReactionAction) {
	resp, err := s.discussion.Handler.ToggleReactionHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "comment_id"), action)
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReactionState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.discussion.Handler.ReactionStateHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "comment_id"))
	if err != nil {
		writeDiscussionDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeDiscussionDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, discussiondomainerrors.ErrInvalidCommentInput):
		writeDiscussionError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrInvalidParent):
		writeDiscussionError(w, http.StatusUnprocessableEntity, "invalid_parent", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrCommentNotFound):
		writeDiscussionError(w, http.StatusNotFound, "comment_not_found", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrPollNotFound):
		writeDiscussionError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrForbidden):
		writeDiscussionError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrConflict):
		writeDiscussionError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, discussiondomainerrors.ErrStoreUnavailable):
		writeDiscussionError(w, http.StatusServiceUnavailable, "store_unavailable", "discussion store unavailable")
	default:
		writeDiscussionError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeDiscussionError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, discussionhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
