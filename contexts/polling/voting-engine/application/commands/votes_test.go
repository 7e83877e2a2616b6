package commands

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/voting-engine/adapters/memory"
	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
)

var baseTime = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func newVoteUseCase(t *testing.T) (VoteUseCase, *memory.Store, *fixedClock) {
	t.Helper()
	store := memory.NewStore()
	endsAt := baseTime.Add(time.Hour)
	store.PutPoll(entities.PollSnapshot{PollID: "poll-1", EndsAt: &endsAt}, []entities.OptionTally{
		{OptionID: "A", Label: "A"},
		{OptionID: "B", Label: "B"},
		{OptionID: "C", Label: "C"},
	})
	clock := &fixedClock{now: baseTime}
	return VoteUseCase{Votes: store, Clock: clock, IDGen: store}, store, clock
}

func decodeData[T any](t *testing.T, envelope eventsv1.Envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(envelope.Data, &out); err != nil {
		t.Fatalf("decode %s payload: %v", envelope.EventType, err)
	}
	return out
}

func TestSubmitSimpleVoteAppendsCounterTask(t *testing.T) {
	uc, store, _ := newVoteUseCase(t)

	vote, err := uc.SubmitSimpleVote(context.Background(), SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "B"})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if vote.VoteID == "" || vote.OptionID != "B" || !vote.CreatedAt.Equal(baseTime) {
		t.Fatalf("unexpected vote: %#v", vote)
	}

	events := store.Outbox()
	if len(events) != 1 || events[0].EventType != eventsv1.CounterSimpleVoteDelta {
		t.Fatalf("expected one simple vote task, got %#v", events)
	}
	if events[0].SourceService != "voting-engine" || events[0].PartitionKey != "poll-1" {
		t.Fatalf("unexpected envelope routing: %#v", events[0])
	}
	delta := decodeData[eventsv1.SimpleVoteDelta](t, events[0])
	if delta.OptionID != "B" || !delta.Created {
		t.Fatalf("unexpected delta: %#v", delta)
	}
}

func TestSubmitSimpleVoteRejectsSecondVote(t *testing.T) {
	uc, store, _ := newVoteUseCase(t)
	ctx := context.Background()

	if _, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "A"}); err != nil {
		t.Fatalf("first vote failed: %v", err)
	}
	_, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "B"})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if got := len(store.Outbox()); got != 1 {
		t.Fatalf("expected rejected vote to leave outbox untouched, got %d events", got)
	}

	votes, err := store.ListAuthorVotes(ctx, "poll-1", "u1")
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes.Simple) != 1 || votes.Simple[0].OptionID != "A" {
		t.Fatalf("expected the original vote only, got %#v", votes.Simple)
	}
}

func TestSubmitSimpleVoteRejections(t *testing.T) {
	uc, _, clock := newVoteUseCase(t)
	ctx := context.Background()

	_, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "Z"})
	var ballotErr *domainerrors.BallotError
	if !errors.As(err, &ballotErr) || !errors.Is(err, domainerrors.ErrOptionNotInPoll) || ballotErr.OptionID != "Z" {
		t.Fatalf("expected ErrOptionNotInPoll naming Z, got %v", err)
	}

	_, err = uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "missing", AuthorID: "u1", OptionID: "A"})
	if !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}

	_, err = uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: " ", OptionID: "A"})
	if !errors.Is(err, domainerrors.ErrInvalidVoteInput) {
		t.Fatalf("expected ErrInvalidVoteInput, got %v", err)
	}

	clock.now = baseTime.Add(time.Hour)
	if _, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u2", OptionID: "A"}); err != nil {
		t.Fatalf("expected vote at the deadline to be admitted, got %v", err)
	}
	clock.now = baseTime.Add(time.Hour + time.Second)
	_, err = uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u3", OptionID: "A"})
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed, got %v", err)
	}
}

func TestSubmitPreferentialBallot(t *testing.T) {
	uc, store, _ := newVoteUseCase(t)

	votes, err := uc.SubmitRankedBallot(context.Background(), SubmitRankedBallotCommand{
		PollID:       "poll-1",
		AuthorID:     "u1",
		Preferential: true,
		Entries: []entities.BallotEntry{
			{OptionID: "A", Points: 2},
			{OptionID: "B", Points: 1},
			{OptionID: "C", Points: 3},
		},
	})
	if err != nil {
		t.Fatalf("submit ballot failed: %v", err)
	}
	if len(votes) != 3 {
		t.Fatalf("expected one row per option, got %d", len(votes))
	}
	for _, vote := range votes {
		if vote.Mode != entities.BallotModePreferential {
			t.Fatalf("expected preferential rows, got %#v", vote)
		}
	}

	events := store.Outbox()
	if len(events) != 1 || events[0].EventType != eventsv1.CounterRankedDelta {
		t.Fatalf("expected exactly one batched ranked task, got %#v", events)
	}
	delta := decodeData[eventsv1.RankedDelta](t, events[0])
	if delta.Ranked || !delta.Created {
		t.Fatalf("expected created preferential delta, got %#v", delta)
	}
	if delta.OptionToPoints["A"] != 2 || delta.OptionToPoints["B"] != 1 || delta.OptionToPoints["C"] != 3 {
		t.Fatalf("unexpected option to points: %#v", delta.OptionToPoints)
	}
}

func TestRejectedBallotLeavesNoRows(t *testing.T) {
	uc, store, _ := newVoteUseCase(t)
	ctx := context.Background()

	_, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{
		PollID:       "poll-1",
		AuthorID:     "u1",
		Preferential: true,
		Entries: []entities.BallotEntry{
			{OptionID: "A", Points: 1},
			{OptionID: "B", Points: 1},
			{OptionID: "C", Points: 3},
		},
	})
	var ballotErr *domainerrors.BallotError
	if !errors.As(err, &ballotErr) || !errors.Is(err, domainerrors.ErrInvalidRankAssignment) {
		t.Fatalf("expected ErrInvalidRankAssignment, got %v", err)
	}
	if ballotErr.OptionID != "B" || ballotErr.Points == nil || *ballotErr.Points != 1 {
		t.Fatalf("expected rejection to name B with points 1, got %#v", ballotErr)
	}

	_, err = uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{
		PollID:       "poll-1",
		AuthorID:     "u1",
		Preferential: true,
		Entries: []entities.BallotEntry{
			{OptionID: "A", Points: 1},
			{OptionID: "B", Points: 2},
		},
	})
	if !errors.Is(err, domainerrors.ErrIncompleteBallot) {
		t.Fatalf("expected ErrIncompleteBallot, got %v", err)
	}

	votes, err := store.ListAuthorVotes(ctx, "poll-1", "u1")
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(votes.Preferential) != 0 || len(store.Outbox()) != 0 {
		t.Fatalf("expected no rows and no tasks, got %#v / %d tasks", votes.Preferential, len(store.Outbox()))
	}
}

func TestBallotModesAreIndependent(t *testing.T) {
	uc, _, _ := newVoteUseCase(t)
	ctx := context.Background()
	full := []entities.BallotEntry{{OptionID: "A", Points: 1}, {OptionID: "B", Points: 2}, {OptionID: "C", Points: 3}}

	if _, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{PollID: "poll-1", AuthorID: "u1", Entries: full}); err != nil {
		t.Fatalf("ranked ballot failed: %v", err)
	}
	if _, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{PollID: "poll-1", AuthorID: "u1", Preferential: true, Entries: full}); err != nil {
		t.Fatalf("preferential ballot after ranked ballot failed: %v", err)
	}
	_, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{PollID: "poll-1", AuthorID: "u1", Entries: full})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote on resubmission, got %v", err)
	}
}

func TestWithdrawRankedBallotEmitsInverseDelta(t *testing.T) {
	uc, store, _ := newVoteUseCase(t)
	ctx := context.Background()
	entries := []entities.BallotEntry{{OptionID: "A", Points: 10}, {OptionID: "B", Points: 4}, {OptionID: "C", Points: 7}}

	if _, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{PollID: "poll-1", AuthorID: "u1", Entries: entries}); err != nil {
		t.Fatalf("ranked ballot failed: %v", err)
	}
	deleted, err := uc.WithdrawRankedVotes(ctx, WithdrawVotesCommand{PollID: "poll-1", AuthorID: "u1"})
	if err != nil || deleted != 3 {
		t.Fatalf("expected three rows withdrawn, got %d (%v)", deleted, err)
	}

	events := store.Outbox()
	if len(events) != 2 {
		t.Fatalf("expected create and withdraw tasks, got %d", len(events))
	}
	delta := decodeData[eventsv1.RankedDelta](t, events[1])
	if delta.Created || !delta.Ranked || delta.OptionToPoints["A"] != 10 || delta.OptionToPoints["B"] != 4 {
		t.Fatalf("unexpected withdraw delta: %#v", delta)
	}

	if _, err := uc.SubmitRankedBallot(ctx, SubmitRankedBallotCommand{PollID: "poll-1", AuthorID: "u1", Entries: entries}); err != nil {
		t.Fatalf("resubmission after withdrawal failed: %v", err)
	}
}

func TestWithdrawSimpleVotes(t *testing.T) {
	uc, store, clock := newVoteUseCase(t)
	ctx := context.Background()

	deleted, err := uc.WithdrawSimpleVotes(ctx, WithdrawVotesCommand{PollID: "poll-1", AuthorID: "u1"})
	if err != nil || deleted != 0 {
		t.Fatalf("expected empty withdrawal to succeed with zero rows, got %d (%v)", deleted, err)
	}
	if len(store.Outbox()) != 0 {
		t.Fatalf("expected no task for an empty withdrawal")
	}

	if _, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "C"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	deleted, err = uc.WithdrawSimpleVotes(ctx, WithdrawVotesCommand{PollID: "poll-1", AuthorID: "u1"})
	if err != nil || deleted != 1 {
		t.Fatalf("expected one row withdrawn, got %d (%v)", deleted, err)
	}
	events := store.Outbox()
	delta := decodeData[eventsv1.SimpleVoteDelta](t, events[len(events)-1])
	if delta.Created || delta.OptionID != "C" {
		t.Fatalf("unexpected withdraw delta: %#v", delta)
	}

	if _, err := uc.SubmitSimpleVote(ctx, SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "A"}); err != nil {
		t.Fatalf("revote failed: %v", err)
	}
	clock.now = baseTime.Add(2 * time.Hour)
	_, err = uc.WithdrawSimpleVotes(ctx, WithdrawVotesCommand{PollID: "poll-1", AuthorID: "u1"})
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed after the deadline, got %v", err)
	}
}
