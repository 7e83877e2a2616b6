package ports

import (
	"context"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/contexts/polling/voting-engine/domain/entities"
)

type EventEnvelope = eventsv1.Envelope

// VoteRepository is the voting engine's store. Every write goes through
// RunInTransaction so validation, vote rows and the outbox commit together.
type VoteRepository interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx VoteTransaction) error) error

	ListOptionTallies(ctx context.Context, pollID string) ([]entities.OptionTally, error)
	ListPollVotes(ctx context.Context, pollID string) ([]entities.SimpleVote, []entities.RankedVote, error)
	ListAuthorVotes(ctx context.Context, pollID string, authorID string) (entities.AuthorVotes, error)
}

// VoteTransaction is scoped to one RunInTransaction call. LockPoll must be
// called first; it serializes concurrent writers on the same poll.
type VoteTransaction interface {
	LockPoll(ctx context.Context, pollID string) (entities.PollSnapshot, error)

	FindSimpleVotes(ctx context.Context, pollID string, authorID string) ([]entities.SimpleVote, error)
	InsertSimpleVote(ctx context.Context, vote entities.SimpleVote) error
	DeleteSimpleVotes(ctx context.Context, pollID string, authorID string) ([]entities.SimpleVote, error)

	FindRankedVotes(ctx context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error)
	InsertRankedVotes(ctx context.Context, votes []entities.RankedVote) error
	DeleteRankedVotes(ctx context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error)

	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
