package entities

import (
	"time"

	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
)

// MaxRankPoints is the most points a ranked ballot may give one option.
const MaxRankPoints = 1000

// ScoreBallot validates a whole ranked or preferential ballot. votedOptions
// holds the options this author already has a row for in the same mode.
//
// The ballot must reference exactly the poll's option set. Preferential
// points must be a permutation of 1..N; ranked points are free but unique
// and within 1..MaxRankPoints. Nothing is accepted unless every entry passes.
func ScoreBallot(
	poll PollSnapshot,
	mode BallotMode,
	entries []BallotEntry,
	votedOptions map[string]bool,
	now time.Time,
) (Ballot, error) {
	if !poll.IsOpen(now) {
		return Ballot{}, domainerrors.ErrPollClosed
	}
	if err := checkOptionSet(poll, entries); err != nil {
		return Ballot{}, err
	}
	if err := checkPoints(mode, len(poll.OptionIDs), entries); err != nil {
		return Ballot{}, err
	}
	for _, entry := range entries {
		if votedOptions[entry.OptionID] {
			return Ballot{}, domainerrors.NewOptionError(domainerrors.ErrDuplicateVote, entry.OptionID)
		}
	}
	return Ballot{
		Mode:    mode,
		Entries: append([]BallotEntry(nil), entries...),
	}, nil
}

func checkOptionSet(poll PollSnapshot, entries []BallotEntry) error {
	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if !poll.HasOption(entry.OptionID) || seen[entry.OptionID] {
			return domainerrors.NewOptionError(domainerrors.ErrIncompleteBallot, entry.OptionID)
		}
		seen[entry.OptionID] = true
	}
	for _, optionID := range poll.OptionIDs {
		if !seen[optionID] {
			return domainerrors.NewOptionError(domainerrors.ErrIncompleteBallot, optionID)
		}
	}
	return nil
}

func checkPoints(mode BallotMode, optionCount int, entries []BallotEntry) error {
	used := make(map[int]bool, len(entries))
	for _, entry := range entries {
		upper := MaxRankPoints
		if mode.Preferential() {
			upper = optionCount
		}
		if entry.Points < 1 || entry.Points > upper {
			return domainerrors.NewRankError(entry.Points, entry.OptionID)
		}
		if used[entry.Points] {
			return domainerrors.NewRankError(entry.Points, entry.OptionID)
		}
		used[entry.Points] = true
	}
	return nil
}
