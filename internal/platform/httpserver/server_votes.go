package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	votedomainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	votehttp "altvote/contexts/polling/voting-engine/transport/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSubmitSimpleVote(w http.ResponseWriter, r *http.Request) {
	var req votehttp.SimpleVoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.votes.Handler.SubmitSimpleVoteHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleSubmitBallot(w http.ResponseWriter, r *http.Request) {
	var req votehttp.BallotRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.votes.Handler.SubmitBallotHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleWithdrawVotes(w http.ResponseWriter, r *http.Request) {
	var req votehttp.WithdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := s.votes.Handler.WithdrawHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"), req)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePollResults serves denormalized counters, or counts recomputed from
// vote rows when derived=true.
func (s *Server) handlePollResults(w http.ResponseWriter, r *http.Request) {
	derived := false
	if raw := r.URL.Query().Get("derived"); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			writeVoteError(w, http.StatusBadRequest, "invalid_derived", "derived must be a boolean")
			return
		}
		derived = value
	}
	resp, err := s.votes.Handler.PollResultsHandler(r.Context(), chi.URLParam(r, "poll_id"), derived)
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMyVotes(w http.ResponseWriter, r *http.Request) {
	resp, err := s.votes.Handler.MyVotesHandler(r.Context(), principal(r).UserID, chi.URLParam(r, "poll_id"))
	if err != nil {
		writeVoteDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeVoteDomainError(w http.ResponseWriter, err error) {
	status, code := voteErrorStatus(err)
	if status >= http.StatusInternalServerError {
		writeVoteError(w, status, code, http.StatusText(status))
		return
	}
	var ballotErr *votedomainerrors.BallotError
	if errors.As(err, &ballotErr) {
		writeJSON(w, status, votehttp.BallotErrorResponse{
			Code:     code,
			Message:  ballotErr.Error(),
			OptionID: ballotErr.OptionID,
			Points:   ballotErr.Points,
		})
		return
	}
	writeVoteError(w, status, code, err.Error())
}

func voteErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, votedomainerrors.ErrInvalidVoteInput):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, votedomainerrors.ErrOptionNotInPoll):
		return http.StatusBadRequest, "option_not_in_poll"
	case errors.Is(err, votedomainerrors.ErrPollClosed):
		return http.StatusUnprocessableEntity, "poll_closed"
	case errors.Is(err, votedomainerrors.ErrIncompleteBallot):
		return http.StatusUnprocessableEntity, "incomplete_ballot"
	case errors.Is(err, votedomainerrors.ErrInvalidRankAssignment):
		return http.StatusUnprocessableEntity, "invalid_rank_assignment"
	case errors.Is(err, votedomainerrors.ErrPollNotFound):
		return http.StatusNotFound, "poll_not_found"
	case errors.Is(err, votedomainerrors.ErrDuplicateVote):
		return http.StatusConflict, "duplicate_vote"
	case errors.Is(err, votedomainerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeVoteError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, votehttp.ErrorResponse{
		Code:    code,
		Message: message,
	})
}
