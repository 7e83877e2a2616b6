package counterreconciler

import (
	"log/slog"
	"time"

	"altvote/contexts/polling/counter-reconciler/adapters/memory"
	"altvote/contexts/polling/counter-reconciler/application/commands"
	"altvote/contexts/polling/counter-reconciler/application/workers"
	"altvote/contexts/polling/counter-reconciler/ports"
)

type Module struct {
	Reconciler commands.ReconcileUseCase
	Consumer   workers.CounterConsumer
	Sweeper    workers.DedupSweeper
	Store      *memory.Store
}

type Dependencies struct {
	Counters      ports.CounterStore
	Subscriber    ports.EventSubscriber
	Clock         ports.Clock
	DedupTTL      time.Duration
	ConsumerGroup string
	Logger        *slog.Logger
}

func NewModule(deps Dependencies) Module {
	reconciler := commands.ReconcileUseCase{
		Counters: deps.Counters,
		Clock:    deps.Clock,
		DedupTTL: deps.DedupTTL,
		Logger:   deps.Logger,
	}
	return Module{
		Reconciler: reconciler,
		Consumer: workers.CounterConsumer{
			Subscriber:    deps.Subscriber,
			Reconciler:    reconciler,
			ConsumerGroup: deps.ConsumerGroup,
			Logger:        deps.Logger,
		},
		Sweeper: workers.DedupSweeper{
			Reconciler: reconciler,
			Logger:     deps.Logger,
		},
	}
}

func NewInMemoryModule(subscriber ports.EventSubscriber, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Counters:   store,
		Subscriber: subscriber,
		Clock:      store,
		Logger:     logger,
	})
	module.Store = store
	return module
}
