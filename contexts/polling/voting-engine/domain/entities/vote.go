package entities

import "time"

// PollSnapshot is the voting engine's view of a poll: its deadline and the
// ids of its current options in display order.
type PollSnapshot struct {
	PollID    string
	EndsAt    *time.Time
	OptionIDs []string
}

// IsOpen reports whether votes are admitted at now. A poll without a deadline
// never closes; the deadline instant itself is still open.
func (p PollSnapshot) IsOpen(now time.Time) bool {
	return p.EndsAt == nil || !now.After(*p.EndsAt)
}

func (p PollSnapshot) HasOption(optionID string) bool {
	for _, id := range p.OptionIDs {
		if id == optionID {
			return true
		}
	}
	return false
}

type BallotMode string

const (
	BallotModeRanked       BallotMode = "ranked"
	BallotModePreferential BallotMode = "preferential"
)

func ModeOf(preferential bool) BallotMode {
	if preferential {
		return BallotModePreferential
	}
	return BallotModeRanked
}

func (m BallotMode) Preferential() bool {
	return m == BallotModePreferential
}

type SimpleVote struct {
	VoteID    string
	PollID    string
	OptionID  string
	AuthorID  string
	CreatedAt time.Time
}

type RankedVote struct {
	VoteID    string
	PollID    string
	OptionID  string
	AuthorID  string
	Points    int
	Mode      BallotMode
	CreatedAt time.Time
}

type BallotEntry struct {
	OptionID string
	Points   int
}

// Ballot is an accepted whole ballot, ready to persist.
type Ballot struct {
	Mode    BallotMode
	Entries []BallotEntry
}

func (b Ballot) OptionToPoints() map[string]int {
	points := make(map[string]int, len(b.Entries))
	for _, entry := range b.Entries {
		points[entry.OptionID] = entry.Points
	}
	return points
}

// OptionToPoints rebuilds the batched counter delta for withdrawn rows.
func OptionToPoints(votes []RankedVote) map[string]int {
	points := make(map[string]int, len(votes))
	for _, vote := range votes {
		points[vote.OptionID] = vote.Points
	}
	return points
}
