package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/voting-engine/application/commands"
	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	"altvote/contexts/polling/voting-engine/ports"
	"altvote/internal/platform/db/dbtest"

	"gorm.io/gorm"
)

var baseTime = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func seedPoll(t *testing.T, db *gorm.DB, pollID string, endsAt *time.Time, optionIDs ...string) {
	t.Helper()
	if err := db.Exec(
		"INSERT INTO polls (poll_id, author_id, title, description, ends_at, confirmed, comments_count, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		pollID, "author-1", "Poll "+pollID, "", endsAt, false, 0, baseTime, baseTime,
	).Error; err != nil {
		t.Fatalf("seed poll failed: %v", err)
	}
	for i, id := range optionIDs {
		if err := db.Exec(
			"INSERT INTO options (option_id, poll_id, position, label, image_url, simple_votes, ranked_points, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id, pollID, i+1, "Option "+id, "", 0, 0, baseTime,
		).Error; err != nil {
			t.Fatalf("seed option failed: %v", err)
		}
	}
}

func newUseCase(repo *Repository) commands.VoteUseCase {
	return commands.VoteUseCase{Votes: repo, Clock: SystemClock{}, IDGen: UUIDGenerator{}}
}

func TestSimpleVoteCommitsRowAndOutboxTogether(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1", nil, "A", "B")
	repo := NewRepository(db, nil)
	uc := newUseCase(repo)
	ctx := context.Background()

	if _, err := uc.SubmitSimpleVote(ctx, commands.SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "A"}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	_, err := uc.SubmitSimpleVote(ctx, commands.SubmitSimpleVoteCommand{PollID: "poll-1", AuthorID: "u1", OptionID: "B"})
	if !errors.Is(err, domainerrors.ErrDuplicateVote) {
		t.Fatalf("expected ErrDuplicateVote, got %v", err)
	}
	if errors.Is(err, domainerrors.ErrStoreUnavailable) {
		t.Fatalf("domain rejection must not be reported as a store failure: %v", err)
	}

	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil {
		t.Fatalf("list outbox failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != eventsv1.CounterSimpleVoteDelta {
		t.Fatalf("expected one pending task, got %#v", pending)
	}
	var envelope eventsv1.Envelope
	if err := json.Unmarshal(pending[0].Payload, &envelope); err != nil {
		t.Fatalf("decode envelope failed: %v", err)
	}
	if envelope.EventID != pending[0].OutboxID || envelope.PartitionKey != "poll-1" {
		t.Fatalf("unexpected envelope: %#v", envelope)
	}

	if err := repo.MarkOutboxPublished(ctx, pending[0].OutboxID, baseTime); err != nil {
		t.Fatalf("mark published failed: %v", err)
	}
	pending, err = repo.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty outbox after publish, got %d (%v)", len(pending), err)
	}
}

func TestRunInTransactionRollsBackOnRejection(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1", nil, "A", "B")
	repo := NewRepository(db, nil)
	ctx := context.Background()

	err := repo.RunInTransaction(ctx, func(ctx context.Context, tx ports.VoteTransaction) error {
		if _, err := tx.LockPoll(ctx, "poll-1"); err != nil {
			return err
		}
		if err := tx.InsertSimpleVote(ctx, entities.SimpleVote{VoteID: "v1", PollID: "poll-1", OptionID: "A", AuthorID: "u1", CreatedAt: baseTime}); err != nil {
			return err
		}
		return domainerrors.ErrPollClosed
	})
	if !errors.Is(err, domainerrors.ErrPollClosed) {
		t.Fatalf("expected ErrPollClosed to pass through, got %v", err)
	}

	simple, _, err := repo.ListPollVotes(ctx, "poll-1")
	if err != nil {
		t.Fatalf("list votes failed: %v", err)
	}
	if len(simple) != 0 {
		t.Fatalf("expected rollback to discard the vote, got %#v", simple)
	}
}

func TestLockPollReadsDeadlineAndOptionOrder(t *testing.T) {
	db := dbtest.Open(t)
	endsAt := baseTime.Add(time.Hour)
	seedPoll(t, db, "poll-1", &endsAt, "C", "A", "B")
	repo := NewRepository(db, nil)

	var snapshot entities.PollSnapshot
	err := repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ports.VoteTransaction) error {
		var err error
		snapshot, err = tx.LockPoll(ctx, "poll-1")
		return err
	})
	if err != nil {
		t.Fatalf("lock poll failed: %v", err)
	}
	if snapshot.EndsAt == nil || !snapshot.EndsAt.Equal(endsAt) {
		t.Fatalf("unexpected deadline: %v", snapshot.EndsAt)
	}
	if len(snapshot.OptionIDs) != 3 || snapshot.OptionIDs[0] != "C" || snapshot.OptionIDs[2] != "B" {
		t.Fatalf("expected options in position order, got %v", snapshot.OptionIDs)
	}

	err = repo.RunInTransaction(context.Background(), func(ctx context.Context, tx ports.VoteTransaction) error {
		_, err := tx.LockPoll(ctx, "missing")
		return err
	})
	if !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}

func TestRankedBallotRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1", nil, "A", "B", "C")
	repo := NewRepository(db, nil)
	uc := newUseCase(repo)
	ctx := context.Background()

	if _, err := uc.SubmitRankedBallot(ctx, commands.SubmitRankedBallotCommand{
		PollID:       "poll-1",
		AuthorID:     "u1",
		Preferential: true,
		Entries: []entities.BallotEntry{
			{OptionID: "A", Points: 3},
			{OptionID: "B", Points: 1},
			{OptionID: "C", Points: 2},
		},
	}); err != nil {
		t.Fatalf("ballot failed: %v", err)
	}

	votes, err := repo.ListAuthorVotes(ctx, "poll-1", "u1")
	if err != nil {
		t.Fatalf("list author votes failed: %v", err)
	}
	if len(votes.Ranked) != 0 || len(votes.Preferential) != 3 {
		t.Fatalf("expected three preferential rows, got %#v", votes)
	}
	if votes.Preferential[0].OptionID != "B" || votes.Preferential[2].OptionID != "A" {
		t.Fatalf("expected rows ordered by points, got %#v", votes.Preferential)
	}

	tallies, err := repo.ListOptionTallies(ctx, "poll-1")
	if err != nil {
		t.Fatalf("list tallies failed: %v", err)
	}
	if len(tallies) != 3 || tallies[0].PreferentialVotes == nil || len(tallies[0].PreferentialVotes) != 0 {
		t.Fatalf("expected untouched counters with an empty position map, got %#v", tallies)
	}

	deleted, err := uc.WithdrawRankedVotes(ctx, commands.WithdrawVotesCommand{PollID: "poll-1", AuthorID: "u1", Preferential: true})
	if err != nil || deleted != 3 {
		t.Fatalf("expected three rows withdrawn, got %d (%v)", deleted, err)
	}
	pending, err := repo.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected create and withdraw tasks, got %d (%v)", len(pending), err)
	}
}

func TestOptionTalliesNeverReadNegative(t *testing.T) {
	db := dbtest.Open(t)
	seedPoll(t, db, "poll-1", nil, "A", "B")
	if err := db.Exec(
		"UPDATE options SET simple_votes = ?, ranked_points = ?, preferential_votes = ? WHERE option_id = ?",
		-1, -4, `{"1":-1,"2":3}`, "A",
	).Error; err != nil {
		t.Fatalf("update counters failed: %v", err)
	}

	tallies, err := NewRepository(db, nil).ListOptionTallies(context.Background(), "poll-1")
	if err != nil {
		t.Fatalf("list tallies failed: %v", err)
	}
	a := tallies[0]
	if a.OptionID != "A" || a.SimpleVotes != 0 || a.RankedPoints != 0 {
		t.Fatalf("expected negative sums to read as zero, got %#v", a)
	}
	if a.PreferentialVotes[1] != 0 || a.PreferentialVotes[2] != 3 {
		t.Fatalf("expected positions {1:0 2:3}, got %v", a.PreferentialVotes)
	}
}
