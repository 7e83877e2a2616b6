package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "altvote/contexts/polling/poll-service/application"
	"altvote/contexts/polling/poll-service/domain/entities"
	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"
)

type CreatePollCommand struct {
	AuthorID string
	Draft    entities.PollDraft
}

type UpdatePollCommand struct {
	PollID  string
	ActorID string
	Draft   entities.PollDraft
}

type DeletePollCommand struct {
	PollID       string
	ActorID      string
	ActorIsAdmin bool
}

type ConfirmPollCommand struct {
	PollID       string
	ActorID      string
	ActorIsAdmin bool
	Confirmed    bool
}

// PollUseCase owns poll writes. Counters on the poll and its options are
// never written here.
type PollUseCase struct {
	Polls      ports.PollRepository
	Categories ports.CategoryRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.PollDetails, error) {
	logger := application.ResolveLogger(uc.Logger)
	authorID := strings.TrimSpace(cmd.AuthorID)
	draft := cmd.Draft.Normalize()
	if authorID == "" {
		return entities.PollDetails{}, domainerrors.ErrInvalidPollInput
	}
	if err := draft.Validate(); err != nil {
		logger.Warn("poll create validation failed",
			"event", "poll_create_validation_failed",
			"module", "polling/poll-service",
			"layer", "application",
			"author_id", authorID,
		)
		return entities.PollDetails{}, err
	}
	categories, err := uc.resolveCategories(ctx, draft.CategoryIDs)
	if err != nil {
		return entities.PollDetails{}, err
	}

	now := uc.now()
	pollID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.PollDetails{}, err
	}
	poll := entities.Poll{
		PollID:      pollID,
		AuthorID:    authorID,
		Title:       draft.Title,
		Description: draft.Description,
		EndsAt:      draft.EndsAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	options, err := uc.buildOptions(ctx, pollID, draft.Options)
	if err != nil {
		return entities.PollDetails{}, err
	}
	details := entities.PollDetails{Poll: poll, Options: options, Categories: categories}
	if err := uc.Polls.CreatePoll(ctx, details); err != nil {
		return entities.PollDetails{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "polling/poll-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"author_id", poll.AuthorID,
		"option_count", len(options),
		"category_count", len(categories),
	)
	return details, nil
}

// UpdatePoll replaces the poll's option set and category links wholesale.
// New option ids are minted; votes against the old options no longer count.
func (uc PollUseCase) UpdatePoll(ctx context.Context, cmd UpdatePollCommand) (entities.PollDetails, error) {
	logger := application.ResolveLogger(uc.Logger)
	draft := cmd.Draft.Normalize()
	if err := draft.Validate(); err != nil {
		return entities.PollDetails{}, err
	}

	current, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(cmd.PollID))
	if err != nil {
		return entities.PollDetails{}, err
	}
	if current.Poll.AuthorID != strings.TrimSpace(cmd.ActorID) {
		logger.Warn("poll update forbidden",
			"event", "poll_update_forbidden",
			"module", "polling/poll-service",
			"layer", "application",
			"poll_id", current.Poll.PollID,
			"actor_id", strings.TrimSpace(cmd.ActorID),
		)
		return entities.PollDetails{}, domainerrors.ErrForbidden
	}
	categories, err := uc.resolveCategories(ctx, draft.CategoryIDs)
	if err != nil {
		return entities.PollDetails{}, err
	}

	poll := current.Poll
	poll.Title = draft.Title
	poll.Description = draft.Description
	poll.EndsAt = draft.EndsAt
	poll.UpdatedAt = uc.now()
	options, err := uc.buildOptions(ctx, poll.PollID, draft.Options)
	if err != nil {
		return entities.PollDetails{}, err
	}
	if err := uc.Polls.ReplacePoll(ctx, poll, options, draft.CategoryIDs); err != nil {
		return entities.PollDetails{}, err
	}

	logger.Info("poll replaced",
		"event", "poll_replaced",
		"module", "polling/poll-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"previous_option_count", len(current.Options),
		"option_count", len(options),
	)
	return entities.PollDetails{Poll: poll, Options: options, Categories: categories}, nil
}

func (uc PollUseCase) DeletePoll(ctx context.Context, cmd DeletePollCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	current, err := uc.Polls.GetPoll(ctx, strings.TrimSpace(cmd.PollID))
	if err != nil {
		return err
	}
	if !cmd.ActorIsAdmin && current.Poll.AuthorID != strings.TrimSpace(cmd.ActorID) {
		return domainerrors.ErrForbidden
	}
	if err := uc.Polls.DeletePoll(ctx, current.Poll.PollID); err != nil {
		return err
	}
	logger.Info("poll deleted",
		"event", "poll_deleted",
		"module", "polling/poll-service",
		"layer", "application",
		"poll_id", current.Poll.PollID,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return nil
}

func (uc PollUseCase) ConfirmPoll(ctx context.Context, cmd ConfirmPollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	if !cmd.ActorIsAdmin {
		return entities.Poll{}, domainerrors.ErrForbidden
	}
	poll, err := uc.Polls.SetConfirmed(ctx, strings.TrimSpace(cmd.PollID), cmd.Confirmed, uc.now())
	if err != nil {
		return entities.Poll{}, err
	}
	logger.Info("poll confirmation changed",
		"event", "poll_confirmation_changed",
		"module", "polling/poll-service",
		"layer", "application",
		"poll_id", poll.PollID,
		"confirmed", poll.Confirmed,
		"actor_id", strings.TrimSpace(cmd.ActorID),
	)
	return poll, nil
}

func (uc PollUseCase) resolveCategories(ctx context.Context, categoryIDs []string) ([]entities.Category, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	categories, err := uc.Categories.FindCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	if len(categories) != len(categoryIDs) {
		return nil, domainerrors.ErrCategoryNotFound
	}
	return categories, nil
}

func (uc PollUseCase) buildOptions(ctx context.Context, pollID string, drafts []entities.OptionDraft) ([]entities.Option, error) {
	options := make([]entities.Option, 0, len(drafts))
	for index, draft := range drafts {
		optionID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			return nil, err
		}
		options = append(options, entities.Option{
			OptionID:          optionID,
			PollID:            pollID,
			Position:          index + 1,
			Label:             draft.Label,
			ImageURL:          draft.ImageURL,
			PreferentialVotes: map[int]int{},
		})
	}
	return options, nil
}

func (uc PollUseCase) now() time.Time {
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	return now
}
