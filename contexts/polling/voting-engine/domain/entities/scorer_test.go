package entities

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
)

var now = time.Date(2026, time.April, 10, 12, 0, 0, 0, time.UTC)

func threeOptionPoll() PollSnapshot {
	return PollSnapshot{PollID: "poll-1", OptionIDs: []string{"A", "B", "C"}}
}

func TestIsOpenBoundaries(t *testing.T) {
	deadline := now
	poll := PollSnapshot{EndsAt: &deadline}
	if !poll.IsOpen(now) {
		t.Fatal("expected poll open at its deadline")
	}
	if poll.IsOpen(now.Add(time.Nanosecond)) {
		t.Fatal("expected poll closed after its deadline")
	}
	if !(PollSnapshot{}).IsOpen(now.Add(100 * 365 * 24 * time.Hour)) {
		t.Fatal("expected poll without deadline to stay open")
	}
}

func TestPreferentialBallotAcceptedIffPermutation(t *testing.T) {
	poll := threeOptionPoll()
	for a := -1; a <= 4; a++ {
		for b := -1; b <= 4; b++ {
			for c := -1; c <= 4; c++ {
				entries := []BallotEntry{{"A", a}, {"B", b}, {"C", c}}
				_, err := ScoreBallot(poll, BallotModePreferential, entries, nil, now)
				permutation := isPermutationOfOneToThree(a, b, c)
				if permutation && err != nil {
					t.Fatalf("points (%d,%d,%d): expected accept, got %v", a, b, c, err)
				}
				if !permutation && !errors.Is(err, domainerrors.ErrInvalidRankAssignment) {
					t.Fatalf("points (%d,%d,%d): expected ErrInvalidRankAssignment, got %v", a, b, c, err)
				}
			}
		}
	}
}

func isPermutationOfOneToThree(values ...int) bool {
	seen := map[int]bool{}
	for _, v := range values {
		if v < 1 || v > 3 || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func TestBallotOptionSetMustMatchExactly(t *testing.T) {
	poll := threeOptionPoll()
	cases := []struct {
		name    string
		entries []BallotEntry
		option  string
	}{
		{name: "missing option", entries: []BallotEntry{{"A", 1}, {"B", 2}}, option: "C"},
		{name: "duplicate option", entries: []BallotEntry{{"A", 1}, {"A", 2}, {"C", 3}}, option: "A"},
		{name: "foreign option", entries: []BallotEntry{{"A", 1}, {"B", 2}, {"Z", 3}}, option: "Z"},
		{name: "empty ballot", entries: nil, option: "A"},
	}
	for _, tc := range cases {
		for _, mode := range []BallotMode{BallotModeRanked, BallotModePreferential} {
			_, err := ScoreBallot(poll, mode, tc.entries, nil, now)
			var ballotErr *domainerrors.BallotError
			if !errors.As(err, &ballotErr) || !errors.Is(err, domainerrors.ErrIncompleteBallot) {
				t.Fatalf("%s/%s: expected ErrIncompleteBallot, got %v", tc.name, mode, err)
			}
			if ballotErr.OptionID != tc.option {
				t.Fatalf("%s/%s: expected offending option %s, got %s", tc.name, mode, tc.option, ballotErr.OptionID)
			}
		}
	}
}

func TestRankedBallotAllowsFreeUniquePoints(t *testing.T) {
	poll := threeOptionPoll()
	ballot, err := ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", 10}, {"B", 3}, {"C", 7}}, nil, now)
	if err != nil {
		t.Fatalf("expected free ranked points accepted, got %v", err)
	}
	if got := ballot.OptionToPoints(); got["A"] != 10 || got["B"] != 3 || got["C"] != 7 {
		t.Fatalf("unexpected option to points: %#v", got)
	}

	_, err = ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", 5}, {"B", 5}, {"C", 1}}, nil, now)
	var ballotErr *domainerrors.BallotError
	if !errors.As(err, &ballotErr) || ballotErr.Points == nil || *ballotErr.Points != 5 || ballotErr.OptionID != "B" {
		t.Fatalf("expected duplicate rank 5 on B, got %v", err)
	}

	_, err = ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", 0}, {"B", 1}, {"C", 2}}, nil, now)
	if !errors.Is(err, domainerrors.ErrInvalidRankAssignment) {
		t.Fatalf("expected non-positive rank rejected, got %v", err)
	}

	if _, err = ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", MaxRankPoints}, {"B", 2}, {"C", 3}}, nil, now); err != nil {
		t.Fatalf("expected %d points accepted, got %v", MaxRankPoints, err)
	}
	_, err = ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", math.MaxInt64}, {"B", 2}, {"C", 3}}, nil, now)
	if !errors.As(err, &ballotErr) || !errors.Is(err, domainerrors.ErrInvalidRankAssignment) ||
		ballotErr.Points == nil || *ballotErr.Points != math.MaxInt64 || ballotErr.OptionID != "A" {
		t.Fatalf("expected oversized rank on A rejected, got %v", err)
	}
	_, err = ScoreBallot(poll, BallotModeRanked, []BallotEntry{{"A", 1}, {"B", MaxRankPoints + 1}, {"C", 3}}, nil, now)
	if !errors.Is(err, domainerrors.ErrInvalidRankAssignment) {
		t.Fatalf("expected rank above %d rejected, got %v", MaxRankPoints, err)
	}
}

func TestBallotRejectsClosedPollBeforeAnythingElse(t *testing.T) {
	deadline := now.Add(-time.Minute)
	poll := threeOptionPoll()
	poll.EndsAt = &deadline

	_, err := ScoreBallot(poll, BallotModePreferential, []BallotEntry{{"A", 9}}, map[string]bool{"A": true}, now)
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed, got %v", err)
	}
}

func TestBallotRejectsWhenAnyOptionAlreadyVoted(t *testing.T) {
	poll := threeOptionPoll()
	_, err := ScoreBallot(poll, BallotModePreferential,
		[]BallotEntry{{"A", 1}, {"B", 2}, {"C", 3}},
		map[string]bool{"A": true},
		now,
	)
	var ballotErr *domainerrors.BallotError
	if !errors.As(err, &ballotErr) || !errors.Is(err, domainerrors.ErrDuplicateVote) || ballotErr.OptionID != "A" {
		t.Fatalf("expected DuplicateVote naming A, got %v", err)
	}
}

func TestBallotWithOneForeignOptionAmongNineIsRejected(t *testing.T) {
	poll := PollSnapshot{PollID: "poll-10"}
	entries := make([]BallotEntry, 0, 10)
	for i := 1; i <= 10; i++ {
		id := fmt.Sprintf("opt-%d", i)
		poll.OptionIDs = append(poll.OptionIDs, id)
		entries = append(entries, BallotEntry{OptionID: id, Points: i})
	}
	entries[6].OptionID = "opt-foreign"

	_, err := ScoreBallot(poll, BallotModePreferential, entries, nil, now)
	var ballotErr *domainerrors.BallotError
	if !errors.As(err, &ballotErr) || ballotErr.OptionID != "opt-foreign" {
		t.Fatalf("expected foreign option named, got %v", err)
	}
}

func TestValidateSimpleVoteOrder(t *testing.T) {
	poll := threeOptionPoll()
	if err := ValidateSimpleVote(poll, "A", false, now); err != nil {
		t.Fatalf("expected vote admitted, got %v", err)
	}
	if err := ValidateSimpleVote(poll, "Z", true, now); !errors.Is(err, domainerrors.ErrOptionNotInPoll) {
		t.Fatalf("expected ErrOptionNotInPoll before duplicate check, got %v", err)
	}
	if err := ValidateSimpleVote(poll, "B", true, now); !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	deadline := now.Add(-time.Second)
	poll.EndsAt = &deadline
	if err := ValidateSimpleVote(poll, "Z", true, now); !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed first, got %v", err)
	}
}

func TestDeriveTallies(t *testing.T) {
	options := []OptionTally{{OptionID: "A", Label: "a"}, {OptionID: "B", Label: "b"}}
	simple := []SimpleVote{{OptionID: "A"}, {OptionID: "A"}, {OptionID: "gone"}}
	ranked := []RankedVote{
		{OptionID: "A", Points: 4, Mode: BallotModeRanked},
		{OptionID: "B", Points: 2, Mode: BallotModeRanked},
		{OptionID: "A", Points: 2, Mode: BallotModePreferential},
		{OptionID: "B", Points: 1, Mode: BallotModePreferential},
	}
	got := DeriveTallies(options, simple, ranked)
	if got[0].SimpleVotes != 2 || got[0].RankedPoints != 4 || got[0].PreferentialVotes[2] != 1 {
		t.Fatalf("unexpected tally for A: %#v", got[0])
	}
	if got[1].SimpleVotes != 0 || got[1].RankedPoints != 2 || got[1].PreferentialVotes[1] != 1 {
		t.Fatalf("unexpected tally for B: %#v", got[1])
	}
}
