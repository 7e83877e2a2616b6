package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidVoteInput      = errors.New("invalid vote input")
	ErrPollNotFound          = errors.New("poll not found")
	ErrPollClosed            = errors.New("poll is closed")
	ErrOptionNotInPoll       = errors.New("option does not belong to poll")
	ErrDuplicateVote         = errors.New("author already voted")
	ErrIncompleteBallot      = errors.New("incomplete or invalid ballot")
	ErrInvalidRankAssignment = errors.New("invalid rank assignment")
	ErrStoreUnavailable      = errors.New("vote store unavailable")
)

// BallotError names the ballot entry a rejection is about so clients can
// highlight it. It unwraps to one of the sentinels above.
type BallotError struct {
	Kind     error
	OptionID string
	Points   *int
}

func (e *BallotError) Error() string {
	if e.Points != nil {
		return fmt.Sprintf("%s: points %d on option %s", e.Kind, *e.Points, e.OptionID)
	}
	return fmt.Sprintf("%s: option %s", e.Kind, e.OptionID)
}

func (e *BallotError) Unwrap() error {
	return e.Kind
}

func NewOptionError(kind error, optionID string) *BallotError {
	return &BallotError{Kind: kind, OptionID: optionID}
}

func NewRankError(points int, optionID string) *BallotError {
	return &BallotError{Kind: ErrInvalidRankAssignment, OptionID: optionID, Points: &points}
}
