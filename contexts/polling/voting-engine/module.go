package votingengine

import (
	"log/slog"

	httpadapter "altvote/contexts/polling/voting-engine/adapters/http"
	"altvote/contexts/polling/voting-engine/adapters/memory"
	"altvote/contexts/polling/voting-engine/application/commands"
	"altvote/contexts/polling/voting-engine/application/queries"
	"altvote/contexts/polling/voting-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Votes  ports.VoteRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Votes: commands.VoteUseCase{
				Votes:  deps.Votes,
				Clock:  deps.Clock,
				IDGen:  deps.IDGen,
				Logger: deps.Logger,
			},
			Results: queries.ResultsUseCase{
				Votes: deps.Votes,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Votes:  store,
		Clock:  store,
		IDGen:  store,
		Logger: logger,
	})
	module.Store = store
	return module
}
