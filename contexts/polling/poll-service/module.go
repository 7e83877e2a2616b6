package pollservice

import (
	"log/slog"

	httpadapter "altvote/contexts/polling/poll-service/adapters/http"
	"altvote/contexts/polling/poll-service/adapters/memory"
	"altvote/contexts/polling/poll-service/application/commands"
	"altvote/contexts/polling/poll-service/application/queries"
	"altvote/contexts/polling/poll-service/domain/entities"
	"altvote/contexts/polling/poll-service/ports"
)

type Module struct {
	Handler    httpadapter.Handler
	Categories commands.CategoryUseCase
	Store      *memory.Store
}

type Dependencies struct {
	Polls      ports.PollRepository
	Categories ports.CategoryRepository
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	pollUseCase := commands.PollUseCase{
		Polls:      deps.Polls,
		Categories: deps.Categories,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	categoryUseCase := commands.CategoryUseCase{
		Categories: deps.Categories,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:      pollUseCase,
			Categories: categoryUseCase,
			Queries: queries.PollQueryUseCase{
				Polls:      deps.Polls,
				Categories: deps.Categories,
			},
			Logger: deps.Logger,
		},
		Categories: categoryUseCase,
	}
}

func NewInMemoryModule(seed []entities.PollDetails, logger *slog.Logger) Module {
	store := memory.NewStore(seed)
	module := NewModule(Dependencies{
		Polls:      store,
		Categories: store,
		Clock:      store,
		IDGen:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
