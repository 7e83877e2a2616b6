package entities

// OptionTally carries one option's counters.
type OptionTally struct {
	OptionID          string
	Label             string
	Position          int
	SimpleVotes       int
	RankedPoints      int
	PreferentialVotes map[int]int
}

type ResultSource string

const (
	ResultSourceCounters ResultSource = "counters"
	ResultSourceDerived  ResultSource = "derived"
)

type PollResults struct {
	PollID  string
	Source  ResultSource
	Options []OptionTally
}

type AuthorVotes struct {
	Simple       []SimpleVote
	Ranked       []RankedVote
	Preferential []RankedVote
}

// DeriveTallies recomputes counters from vote rows, ignoring whatever the
// reconciler has stored. Rows for options no longer in the list are skipped.
func DeriveTallies(options []OptionTally, simple []SimpleVote, ranked []RankedVote) []OptionTally {
	out := make([]OptionTally, 0, len(options))
	index := make(map[string]int, len(options))
	for _, option := range options {
		index[option.OptionID] = len(out)
		out = append(out, OptionTally{
			OptionID:          option.OptionID,
			Label:             option.Label,
			Position:          option.Position,
			PreferentialVotes: map[int]int{},
		})
	}
	for _, vote := range simple {
		if i, ok := index[vote.OptionID]; ok {
			out[i].SimpleVotes++
		}
	}
	for _, vote := range ranked {
		i, ok := index[vote.OptionID]
		if !ok {
			continue
		}
		if vote.Mode.Preferential() {
			out[i].PreferentialVotes[vote.Points]++
		} else {
			out[i].RankedPoints += vote.Points
		}
	}
	return out
}
