package discussionservice

import (
	"log/slog"

	httpadapter "altvote/contexts/polling/discussion-service/adapters/http"
	"altvote/contexts/polling/discussion-service/adapters/memory"
	"altvote/contexts/polling/discussion-service/application/commands"
	"altvote/contexts/polling/discussion-service/application/queries"
	"altvote/contexts/polling/discussion-service/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	Comments ports.CommentRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func NewModule(deps Dependencies) Module {
	return Module{
		Handler: httpadapter.Handler{
			Comments: commands.CommentUseCase{
				Comments: deps.Comments,
				Clock:    deps.Clock,
				IDGen:    deps.IDGen,
				Logger:   deps.Logger,
			},
			Reactions: commands.ReactionUseCase{
				Comments: deps.Comments,
				Clock:    deps.Clock,
				IDGen:    deps.IDGen,
				Logger:   deps.Logger,
			},
			Queries: queries.CommentQueryUseCase{
				Comments: deps.Comments,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger, pollIDs ...string) Module {
	store := memory.NewStore(pollIDs...)
	module := NewModule(Dependencies{
		Comments: store,
		Clock:    store,
		IDGen:    store,
		Logger:   logger,
	})
	module.Store = store
	return module
}
