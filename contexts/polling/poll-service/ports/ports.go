package ports

import (
	"context"
	"time"

	"altvote/contexts/polling/poll-service/domain/entities"
)

type PollFilter struct {
	CategoryID string
	AuthorID   string
	Limit      int
	Offset     int
}

type PollRepository interface {
	// CreatePoll persists the poll, its options and category links atomically.
	CreatePoll(ctx context.Context, details entities.PollDetails) error
	// ReplacePoll overwrites poll fields and swaps the entire option set and
	// category link set in one transaction.
	ReplacePoll(ctx context.Context, poll entities.Poll, options []entities.Option, categoryIDs []string) error
	GetPoll(ctx context.Context, pollID string) (entities.PollDetails, error)
	ListPolls(ctx context.Context, filter PollFilter) ([]entities.PollDetails, error)
	// DeletePoll cascades to options, links, votes, comments and reactions.
	DeletePoll(ctx context.Context, pollID string) error
	SetConfirmed(ctx context.Context, pollID string, confirmed bool, updatedAt time.Time) (entities.Poll, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category entities.Category) error
	GetCategoryByName(ctx context.Context, name string) (entities.Category, bool, error)
	FindCategories(ctx context.Context, categoryIDs []string) ([]entities.Category, error)
	ListCategories(ctx context.Context) ([]entities.Category, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
