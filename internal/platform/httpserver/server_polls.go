package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	polldomainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"
	pollhttp "altvote/contexts/polling/poll-service/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListPolls(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := ports.PollFilter{
		CategoryID: query.Get("category_id"),
		AuthorID:   query.Get("author_id"),
	}
	for name, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writePollError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a non-negative integer")
			return
		}
		*target = value
	}

	resp, err := s.polls.Handler.ListPollsHandler(r.Context(), filter)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPoll(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.GetPollHandler(r.Context(), chi.URLParam(r, "poll_id"))
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreatePoll(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.PollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.CreatePollHandler(r.Context(), principal(r).UserID, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleUpdatePoll(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.PollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.UpdatePollHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeletePoll(w http.ResponseWriter, r *http.Request) {
	caller := principal(r)
	if err := s.polls.Handler.DeletePollHandler(r.Context(), caller.UserID, caller.IsAdmin, chi.URLParam(r, "poll_id")); err != nil {
		writePollDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConfirmPoll(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.ConfirmPollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	caller := principal(r)
	resp, err := s.polls.Handler.ConfirmPollHandler(r.Context(), caller.UserID, caller.IsAdmin, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	resp, err := s.polls.Handler.ListCategoriesHandler(r.Context())
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req pollhttp.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.polls.Handler.CreateCategoryHandler(r.Context(), principal(r).IsAdmin, req)
	if err != nil {
		writePollDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func writePollDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, polldomainerrors.ErrInvalidPollInput),
		errors.Is(err, polldomainerrors.ErrInvalidCategoryInput):
		writePollError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, polldomainerrors.ErrPollNotFound):
		writePollError(w, http.StatusNotFound, "poll_not_found", err.Error())
	case errors.Is(err, polldomainerrors.ErrCategoryNotFound):
		writePollError(w, http.StatusNotFound, "category_not_found", err.Error())
	case errors.Is(err, polldomainerrors.ErrCategoryExists):
		writePollError(w, http.StatusConflict, "category_exists", err.Error())
	case errors.Is(err, polldomainerrors.ErrForbidden):
		writePollError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, polldomainerrors.ErrStoreUnavailable):
		writePollError(w, http.StatusServiceUnavailable, "store_unavailable", "poll store unavailable")
	default:
		writePollError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writePollError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, pollhttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
