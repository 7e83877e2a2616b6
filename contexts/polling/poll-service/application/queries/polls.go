package queries

import (
	"context"
	"strings"

	"altvote/contexts/polling/poll-service/domain/entities"
	"altvote/contexts/polling/poll-service/ports"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PollQueryUseCase struct {
	Polls      ports.PollRepository
	Categories ports.CategoryRepository
}

func (uc PollQueryUseCase) GetPoll(ctx context.Context, pollID string) (entities.PollDetails, error) {
	return uc.Polls.GetPoll(ctx, strings.TrimSpace(pollID))
}

// ListPolls returns newest polls first, optionally narrowed by category or author.
func (uc PollQueryUseCase) ListPolls(ctx context.Context, filter ports.PollFilter) ([]entities.PollDetails, error) {
	filter.CategoryID = strings.TrimSpace(filter.CategoryID)
	filter.AuthorID = strings.TrimSpace(filter.AuthorID)
	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return uc.Polls.ListPolls(ctx, filter)
}

func (uc PollQueryUseCase) ListCategories(ctx context.Context) ([]entities.Category, error) {
	return uc.Categories.ListCategories(ctx)
}
