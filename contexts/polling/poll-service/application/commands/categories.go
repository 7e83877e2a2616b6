package commands

import (
	"context"
	"log/slog"
	"time"

	application "altvote/contexts/polling/poll-service/application"
	"altvote/contexts/polling/poll-service/domain/entities"
	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"
)

type CreateCategoryCommand struct {
	Name         string
	ActorIsAdmin bool
}

type CategoryUseCase struct {
	Categories ports.CategoryRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func (uc CategoryUseCase) CreateCategory(ctx context.Context, cmd CreateCategoryCommand) (entities.Category, error) {
	if !cmd.ActorIsAdmin {
		return entities.Category{}, domainerrors.ErrForbidden
	}
	name := entities.NormalizeCategoryName(cmd.Name)
	if name == "" || len(name) > entities.MaxCategoryName {
		return entities.Category{}, domainerrors.ErrInvalidCategoryInput
	}
	if _, found, err := uc.Categories.GetCategoryByName(ctx, name); err != nil {
		return entities.Category{}, err
	} else if found {
		return entities.Category{}, domainerrors.ErrCategoryExists
	}
	return uc.create(ctx, name)
}

// SeedCategories creates any names that do not exist yet and returns how many
// were created. Running it twice is a no-op.
func (uc CategoryUseCase) SeedCategories(ctx context.Context, names []string) (int, error) {
	logger := application.ResolveLogger(uc.Logger)
	created := 0
	for _, raw := range names {
		name := entities.NormalizeCategoryName(raw)
		if name == "" || len(name) > entities.MaxCategoryName {
			return created, domainerrors.ErrInvalidCategoryInput
		}
		if _, found, err := uc.Categories.GetCategoryByName(ctx, name); err != nil {
			return created, err
		} else if found {
			continue
		}
		if _, err := uc.create(ctx, name); err != nil {
			return created, err
		}
		created++
	}
	logger.Info("categories seeded",
		"event", "poll_categories_seeded",
		"module", "polling/poll-service",
		"layer", "application",
		"requested", len(names),
		"created", created,
	)
	return created, nil
}

func (uc CategoryUseCase) create(ctx context.Context, name string) (entities.Category, error) {
	categoryID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Category{}, err
	}
	now := time.Now().UTC()
	if uc.Clock != nil {
		now = uc.Clock.Now().UTC()
	}
	category := entities.Category{
		CategoryID: categoryID,
		Name:       name,
		CreatedAt:  now,
	}
	if err := uc.Categories.CreateCategory(ctx, category); err != nil {
		return entities.Category{}, err
	}
	return category, nil
}
