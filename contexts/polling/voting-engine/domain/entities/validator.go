package entities

import (
	"time"

	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
)

// ValidateSimpleVote admits a single-option vote. Checks run in a fixed
// order: lifecycle, option membership, prior vote.
func ValidateSimpleVote(poll PollSnapshot, optionID string, alreadyVoted bool, now time.Time) error {
	if !poll.IsOpen(now) {
		return domainerrors.ErrPollClosed
	}
	if !poll.HasOption(optionID) {
		return domainerrors.NewOptionError(domainerrors.ErrOptionNotInPoll, optionID)
	}
	if alreadyVoted {
		return domainerrors.ErrDuplicateVote
	}
	return nil
}
