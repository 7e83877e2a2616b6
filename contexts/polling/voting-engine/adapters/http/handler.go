package httpadapter

import (
	"context"
	"log/slog"
	"strings"

	"altvote/contexts/polling/voting-engine/application/commands"
	"altvote/contexts/polling/voting-engine/application/queries"
	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	httptransport "altvote/contexts/polling/voting-engine/transport/http"
)

const (
	WithdrawKindSimple       = "simple"
	WithdrawKindRanked       = "ranked"
	WithdrawKindPreferential = "preferential"
)

type Handler struct {
	Votes   commands.VoteUseCase
	Results queries.ResultsUseCase
	Logger  *slog.Logger
}

func (h Handler) SubmitSimpleVoteHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.SimpleVoteRequest,
) (httptransport.SimpleVoteResponse, error) {
	vote, err := h.Votes.SubmitSimpleVote(ctx, commands.SubmitSimpleVoteCommand{
		PollID:   pollID,
		AuthorID: userID,
		OptionID: req.OptionID,
	})
	if err != nil {
		return httptransport.SimpleVoteResponse{}, err
	}
	return mapSimpleVote(vote), nil
}

func (h Handler) SubmitBallotHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.BallotRequest,
) (httptransport.BallotResponse, error) {
	entries := make([]entities.BallotEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		entries = append(entries, entities.BallotEntry{OptionID: entry.OptionID, Points: entry.Points})
	}
	votes, err := h.Votes.SubmitRankedBallot(ctx, commands.SubmitRankedBallotCommand{
		PollID:       pollID,
		AuthorID:     userID,
		Preferential: req.Preferential,
		Entries:      entries,
	})
	if err != nil {
		return httptransport.BallotResponse{}, err
	}
	return httptransport.BallotResponse{
		PollID:       pollID,
		Preferential: req.Preferential,
		Votes:        mapRankedVotes(votes),
	}, nil
}

// WithdrawHandler accepts kind simple, ranked or preferential.
func (h Handler) WithdrawHandler(
	ctx context.Context,
	userID string,
	pollID string,
	req httptransport.WithdrawRequest,
) (httptransport.WithdrawResponse, error) {
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	cmd := commands.WithdrawVotesCommand{PollID: pollID, AuthorID: userID}
	var (
		deleted int
		err     error
	)
	switch kind {
	case WithdrawKindSimple:
		deleted, err = h.Votes.WithdrawSimpleVotes(ctx, cmd)
	case WithdrawKindRanked, WithdrawKindPreferential:
		cmd.Preferential = kind == WithdrawKindPreferential
		deleted, err = h.Votes.WithdrawRankedVotes(ctx, cmd)
	default:
		return httptransport.WithdrawResponse{}, domainerrors.ErrInvalidVoteInput
	}
	if err != nil {
		return httptransport.WithdrawResponse{}, err
	}
	return httptransport.WithdrawResponse{
		PollID:       pollID,
		Kind:         kind,
		DeletedCount: deleted,
	}, nil
}

func (h Handler) PollResultsHandler(ctx context.Context, pollID string, derived bool) (httptransport.PollResultsResponse, error) {
	var (
		results entities.PollResults
		err     error
	)
	if derived {
		results, err = h.Results.DerivedResults(ctx, pollID)
	} else {
		results, err = h.Results.PollResults(ctx, pollID)
	}
	if err != nil {
		return httptransport.PollResultsResponse{}, err
	}
	resp := httptransport.PollResultsResponse{
		PollID:  results.PollID,
		Source:  string(results.Source),
		Options: make([]httptransport.OptionResultResponse, 0, len(results.Options)),
	}
	for _, option := range results.Options {
		resp.Options = append(resp.Options, httptransport.OptionResultResponse{
			OptionID:          option.OptionID,
			Label:             option.Label,
			Position:          option.Position,
			SimpleVotes:       option.SimpleVotes,
			RankedPoints:      option.RankedPoints,
			PreferentialVotes: option.PreferentialVotes,
		})
	}
	return resp, nil
}

func (h Handler) MyVotesHandler(ctx context.Context, userID string, pollID string) (httptransport.MyVotesResponse, error) {
	votes, err := h.Results.MyVotes(ctx, pollID, userID)
	if err != nil {
		return httptransport.MyVotesResponse{}, err
	}
	resp := httptransport.MyVotesResponse{
		PollID:       pollID,
		Simple:       make([]httptransport.SimpleVoteResponse, 0, len(votes.Simple)),
		Ranked:       mapRankedVotes(votes.Ranked),
		Preferential: mapRankedVotes(votes.Preferential),
	}
	for _, vote := range votes.Simple {
		resp.Simple = append(resp.Simple, mapSimpleVote(vote))
	}
	return resp, nil
}

func mapSimpleVote(vote entities.SimpleVote) httptransport.SimpleVoteResponse {
	return httptransport.SimpleVoteResponse{
		VoteID:    vote.VoteID,
		PollID:    vote.PollID,
		OptionID:  vote.OptionID,
		AuthorID:  vote.AuthorID,
		CreatedAt: vote.CreatedAt,
	}
}

func mapRankedVotes(votes []entities.RankedVote) []httptransport.RankedVoteResponse {
	items := make([]httptransport.RankedVoteResponse, 0, len(votes))
	for _, vote := range votes {
		items = append(items, httptransport.RankedVoteResponse{
			VoteID:       vote.VoteID,
			PollID:       vote.PollID,
			OptionID:     vote.OptionID,
			AuthorID:     vote.AuthorID,
			Points:       vote.Points,
			Preferential: vote.Mode.Preferential(),
			CreatedAt:    vote.CreatedAt,
		})
	}
	return items
}
