package queries

import (
	"context"
	"strings"

	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	"altvote/contexts/polling/voting-engine/ports"
)

type ResultsUseCase struct {
	Votes ports.VoteRepository
}

// PollResults reads the reconciled counters. They trail the vote rows by
// however long the counter queue takes to drain.
func (uc ResultsUseCase) PollResults(ctx context.Context, pollID string) (entities.PollResults, error) {
	pollID = strings.TrimSpace(pollID)
	options, err := uc.Votes.ListOptionTallies(ctx, pollID)
	if err != nil {
		return entities.PollResults{}, err
	}
	return entities.PollResults{
		PollID:  pollID,
		Source:  entities.ResultSourceCounters,
		Options: options,
	}, nil
}

// DerivedResults recomputes every counter from vote rows. Comparing it with
// PollResults exposes counter drift.
func (uc ResultsUseCase) DerivedResults(ctx context.Context, pollID string) (entities.PollResults, error) {
	pollID = strings.TrimSpace(pollID)
	options, err := uc.Votes.ListOptionTallies(ctx, pollID)
	if err != nil {
		return entities.PollResults{}, err
	}
	simple, ranked, err := uc.Votes.ListPollVotes(ctx, pollID)
	if err != nil {
		return entities.PollResults{}, err
	}
	return entities.PollResults{
		PollID:  pollID,
		Source:  entities.ResultSourceDerived,
		Options: entities.DeriveTallies(options, simple, ranked),
	}, nil
}

func (uc ResultsUseCase) MyVotes(ctx context.Context, pollID string, authorID string) (entities.AuthorVotes, error) {
	if strings.TrimSpace(authorID) == "" {
		return entities.AuthorVotes{}, domainerrors.ErrInvalidVoteInput
	}
	return uc.Votes.ListAuthorVotes(ctx, strings.TrimSpace(pollID), strings.TrimSpace(authorID))
}
