package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	application "altvote/contexts/polling/voting-engine/application"
	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	"altvote/contexts/polling/voting-engine/ports"
)

type SubmitSimpleVoteCommand struct {
	PollID   string
	AuthorID string
	OptionID string
}

type SubmitRankedBallotCommand struct {
	PollID       string
	AuthorID     string
	Preferential bool
	Entries      []entities.BallotEntry
}

type WithdrawVotesCommand struct {
	PollID       string
	AuthorID     string
	Preferential bool
}

// VoteUseCase admits and withdraws votes. Counter deltas leave through the
// outbox in the same transaction as the vote rows.
type VoteUseCase struct {
	Votes  ports.VoteRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func (uc VoteUseCase) SubmitSimpleVote(ctx context.Context, cmd SubmitSimpleVoteCommand) (entities.SimpleVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	optionID := strings.TrimSpace(cmd.OptionID)
	if pollID == "" || authorID == "" || optionID == "" {
		return entities.SimpleVote{}, domainerrors.ErrInvalidVoteInput
	}

	now := uc.now()
	var vote entities.SimpleVote
	err := uc.Votes.RunInTransaction(ctx, func(ctx context.Context, tx ports.VoteTransaction) error {
		poll, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		existing, err := tx.FindSimpleVotes(ctx, pollID, authorID)
		if err != nil {
			return err
		}
		if err := entities.ValidateSimpleVote(poll, optionID, len(existing) > 0, now); err != nil {
			return err
		}

		voteID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return err
		}
		vote = entities.SimpleVote{
			VoteID:    voteID,
			PollID:    pollID,
			OptionID:  optionID,
			AuthorID:  authorID,
			CreatedAt: now,
		}
		if err := tx.InsertSimpleVote(ctx, vote); err != nil {
			return err
		}
		return appendCounterTask(ctx, tx, uc.IDGen, eventsv1.CounterSimpleVoteDelta, pollID, now, eventsv1.SimpleVoteDelta{
			PollID:   pollID,
			OptionID: optionID,
			AuthorID: authorID,
			Created:  true,
		})
	})
	if err != nil {
		uc.logRejected(logger, "voting_simple_vote_rejected", pollID, authorID, err)
		return entities.SimpleVote{}, err
	}

	logger.Info("simple vote created",
		"event", "voting_simple_vote_created",
		"module", "polling/voting-engine",
		"layer", "application",
		"vote_id", vote.VoteID,
		"poll_id", vote.PollID,
		"option_id", vote.OptionID,
		"author_id", vote.AuthorID,
	)
	return vote, nil
}

// SubmitRankedBallot admits a whole ballot or nothing. A prior ballot in the
// same mode must be withdrawn first; it is never partially overwritten.
func (uc VoteUseCase) SubmitRankedBallot(ctx context.Context, cmd SubmitRankedBallotCommand) ([]entities.RankedVote, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	if pollID == "" || authorID == "" {
		return nil, domainerrors.ErrInvalidVoteInput
	}
	mode := entities.ModeOf(cmd.Preferential)
	entries := make([]entities.BallotEntry, 0, len(cmd.Entries))
	for _, entry := range cmd.Entries {
		entries = append(entries, entities.BallotEntry{
			OptionID: strings.TrimSpace(entry.OptionID),
			Points:   entry.Points,
		})
	}

	now := uc.now()
	var votes []entities.RankedVote
	err := uc.Votes.RunInTransaction(ctx, func(ctx context.Context, tx ports.VoteTransaction) error {
		poll, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		existing, err := tx.FindRankedVotes(ctx, pollID, authorID, mode)
		if err != nil {
			return err
		}
		voted := make(map[string]bool, len(existing))
		for _, vote := range existing {
			voted[vote.OptionID] = true
		}
		ballot, err := entities.ScoreBallot(poll, mode, entries, voted, now)
		if err != nil {
			return err
		}

		votes = make([]entities.RankedVote, 0, len(ballot.Entries))
		for _, entry := range ballot.Entries {
			voteID, err := uc.IDGen.NewID(ctx)
			if err != nil {
				return err
			}
			votes = append(votes, entities.RankedVote{
				VoteID:    voteID,
				PollID:    pollID,
				OptionID:  entry.OptionID,
				AuthorID:  authorID,
				Points:    entry.Points,
				Mode:      mode,
				CreatedAt: now,
			})
		}
		if err := tx.InsertRankedVotes(ctx, votes); err != nil {
			return err
		}
		return appendCounterTask(ctx, tx, uc.IDGen, eventsv1.CounterRankedDelta, pollID, now, eventsv1.RankedDelta{
			PollID:         pollID,
			AuthorID:       authorID,
			OptionToPoints: ballot.OptionToPoints(),
			Created:        true,
			Ranked:         !mode.Preferential(),
		})
	})
	if err != nil {
		uc.logRejected(logger, "voting_ballot_rejected", pollID, authorID, err)
		return nil, err
	}

	logger.Info("ranked ballot created",
		"event", "voting_ballot_created",
		"module", "polling/voting-engine",
		"layer", "application",
		"poll_id", pollID,
		"author_id", authorID,
		"mode", string(mode),
		"entry_count", len(votes),
	)
	return votes, nil
}

// WithdrawSimpleVotes removes the author's simple vote and enqueues the
// matching decrement. Withdrawing with nothing to remove returns zero.
func (uc VoteUseCase) WithdrawSimpleVotes(ctx context.Context, cmd WithdrawVotesCommand) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	if pollID == "" || authorID == "" {
		return 0, domainerrors.ErrInvalidVoteInput
	}

	now := uc.now()
	deleted := 0
	err := uc.Votes.RunInTransaction(ctx, func(ctx context.Context, tx ports.VoteTransaction) error {
		poll, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsOpen(now) {
			return domainerrors.ErrPollClosed
		}
		removed, err := tx.DeleteSimpleVotes(ctx, pollID, authorID)
		if err != nil {
			return err
		}
		for _, vote := range removed {
			if err := appendCounterTask(ctx, tx, uc.IDGen, eventsv1.CounterSimpleVoteDelta, pollID, now, eventsv1.SimpleVoteDelta{
				PollID:   pollID,
				OptionID: vote.OptionID,
				AuthorID: authorID,
				Created:  false,
			}); err != nil {
				return err
			}
		}
		deleted = len(removed)
		return nil
	})
	if err != nil {
		uc.logRejected(logger, "voting_simple_withdraw_rejected", pollID, authorID, err)
		return 0, err
	}

	logger.Info("simple votes withdrawn",
		"event", "voting_simple_votes_withdrawn",
		"module", "polling/voting-engine",
		"layer", "application",
		"poll_id", pollID,
		"author_id", authorID,
		"deleted_count", deleted,
	)
	return deleted, nil
}

// WithdrawRankedVotes removes the author's whole ballot in one mode and
// enqueues one batched inverse delta.
func (uc VoteUseCase) WithdrawRankedVotes(ctx context.Context, cmd WithdrawVotesCommand) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	if pollID == "" || authorID == "" {
		return 0, domainerrors.ErrInvalidVoteInput
	}
	mode := entities.ModeOf(cmd.Preferential)

	now := uc.now()
	deleted := 0
	err := uc.Votes.RunInTransaction(ctx, func(ctx context.Context, tx ports.VoteTransaction) error {
		poll, err := tx.LockPoll(ctx, pollID)
		if err != nil {
			return err
		}
		if !poll.IsOpen(now) {
			return domainerrors.ErrPollClosed
		}
		removed, err := tx.DeleteRankedVotes(ctx, pollID, authorID, mode)
		if err != nil {
			return err
		}
		deleted = len(removed)
		if deleted == 0 {
			return nil
		}
		return appendCounterTask(ctx, tx, uc.IDGen, eventsv1.CounterRankedDelta, pollID, now, eventsv1.RankedDelta{
			PollID:         pollID,
			AuthorID:       authorID,
			OptionToPoints: entities.OptionToPoints(removed),
			Created:        false,
			Ranked:         !mode.Preferential(),
		})
	})
	if err != nil {
		uc.logRejected(logger, "voting_ranked_withdraw_rejected", pollID, authorID, err)
		return 0, err
	}

	logger.Info("ranked votes withdrawn",
		"event", "voting_ranked_votes_withdrawn",
		"module", "polling/voting-engine",
		"layer", "application",
		"poll_id", pollID,
		"author_id", authorID,
		"mode", string(mode),
		"deleted_count", deleted,
	)
	return deleted, nil
}

func (uc VoteUseCase) logRejected(logger *slog.Logger, event string, pollID string, authorID string, err error) {
	attrs := []any{
		"event", event,
		"module", "polling/voting-engine",
		"layer", "application",
		"poll_id", pollID,
		"author_id", authorID,
		"error", err.Error(),
	}
	if errors.Is(err, domainerrors.ErrStoreUnavailable) {
		logger.Error("vote write failed", attrs...)
		return
	}
	logger.Warn("vote rejected", attrs...)
}

func (uc VoteUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
