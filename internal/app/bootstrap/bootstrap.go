package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	counterreconciler "altvote/contexts/polling/counter-reconciler"
	counterpostgres "altvote/contexts/polling/counter-reconciler/adapters/postgres"
	counterworkers "altvote/contexts/polling/counter-reconciler/application/workers"
	discussionservice "altvote/contexts/polling/discussion-service"
	discussionpostgres "altvote/contexts/polling/discussion-service/adapters/postgres"
	pollservice "altvote/contexts/polling/poll-service"
	pollpostgres "altvote/contexts/polling/poll-service/adapters/postgres"
	votingengine "altvote/contexts/polling/voting-engine"
	votingpostgres "altvote/contexts/polling/voting-engine/adapters/postgres"
	"altvote/internal/platform/config"
	"altvote/internal/platform/db"
	"altvote/internal/platform/httpserver"
	"altvote/internal/platform/messaging"
	"altvote/internal/shared/outbox"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = time.Hour
)

// taskBus is satisfied by messaging.Bus and messaging.RedisQueue.
type taskBus interface {
	outbox.Publisher
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler messaging.Handler) error
}

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	queue        io.Closer
	relays       []outbox.Relay
	consumer     counterworkers.CounterConsumer
	sweeper      counterworkers.DedupSweeper
	pollInterval time.Duration
	logger       *slog.Logger
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.RequireJWTSecret(); err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	pg, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &APIApp{
		server:   newAPIServer(pg.DB, cfg, logger),
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	pg, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	var (
		bus   taskBus
		queue io.Closer
	)
	switch cfg.TaskBus {
	case config.TaskBusRedis:
		redisQueue, err := messaging.NewRedisQueue(cfg.RedisAddr, cfg.RedisQueuePrefix, logger)
		if err != nil {
			_ = pg.Close()
			return nil, err
		}
		bus, queue = redisQueue, redisQueue
	default:
		bus = messaging.NewBus(logger)
	}

	worker := newWorker(pg.DB, bus, cfg, logger)
	worker.postgres = pg
	worker.queue = queue
	return worker, nil
}

func connect(cfg config.Config, logger *slog.Logger) (*db.Postgres, error) {
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	pg, err := db.Connect(cfg.PostgresDSN, cfg.DBLogLevel, logger)
	if err != nil {
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := db.Migrate(pg.DB); err != nil {
			_ = pg.Close()
			return nil, err
		}
		logger.Info("schema migrated",
			"event", "bootstrap_schema_migrated",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return pg, nil
}

func newAPIServer(gdb *gorm.DB, cfg config.Config, logger *slog.Logger) *httpserver.Server {
	pollRepo := pollpostgres.NewRepository(gdb, logger)
	polls := pollservice.NewModule(pollservice.Dependencies{
		Polls:      pollRepo,
		Categories: pollRepo,
		Clock:      pollpostgres.SystemClock{},
		IDGen:      pollpostgres.UUIDGenerator{},
		Logger:     logger,
	})

	votes := votingengine.NewModule(votingengine.Dependencies{
		Votes:  votingpostgres.NewRepository(gdb, logger),
		Clock:  votingpostgres.SystemClock{},
		IDGen:  votingpostgres.UUIDGenerator{},
		Logger: logger,
	})

	discussion := discussionservice.NewModule(discussionservice.Dependencies{
		Comments: discussionpostgres.NewRepository(gdb, logger),
		Clock:    discussionpostgres.SystemClock{},
		IDGen:    discussionpostgres.UUIDGenerator{},
		Logger:   logger,
	})

	return httpserver.New(polls, votes, discussion, httpserver.Options{
		Addr:               normalizeAddr(cfg.HTTPPort),
		Auth:               httpserver.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.AdminUserIDs),
		VoteRateLimitRPS:   cfg.VoteRateLimitRPS,
		VoteRateLimitBurst: cfg.VoteRateLimitBurst,
		EnableSwagger:      cfg.EnableSwagger,
		Logger:             logger,
	})
}

func newWorker(gdb *gorm.DB, bus taskBus, cfg config.Config, logger *slog.Logger) *WorkerApp {
	counters := counterreconciler.NewModule(counterreconciler.Dependencies{
		Counters:   counterpostgres.NewRepository(gdb, logger),
		Subscriber: bus,
		Clock:      counterpostgres.SystemClock{},
		DedupTTL:   cfg.DedupTTL,
		Logger:     logger,
	})

	pollInterval := cfg.WorkerPollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &WorkerApp{
		relays: []outbox.Relay{
			{
				Name:      "voting_outbox",
				Outbox:    votingpostgres.NewRepository(gdb, logger),
				Publisher: bus,
				Clock:     votingpostgres.SystemClock{},
				BatchSize: cfg.OutboxBatchSize,
				Logger:    logger,
			},
			{
				Name:      "discussion_outbox",
				Outbox:    discussionpostgres.NewRepository(gdb, logger),
				Publisher: bus,
				Clock:     discussionpostgres.SystemClock{},
				BatchSize: cfg.OutboxBatchSize,
				Logger:    logger,
			},
		},
		consumer:     counters.Consumer,
		sweeper:      counters.Sweeper,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(a.server.Start)
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.consumer.Start(ctx); err != nil {
		return err
	}

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			w.relayOnce(ctx)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	group.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			// Sweep failures are logged by the sweeper and retried next tick.
			_ = w.sweeper.RunOnce(ctx)
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})
	return group.Wait()
}

// relayOnce drains every outbox once. A failing relay leaves its rows
// pending for the next tick without blocking the others.
func (w *WorkerApp) relayOnce(ctx context.Context) int {
	total := 0
	for _, relay := range w.relays {
		published, _ := relay.RunOnce(ctx)
		total += published
	}
	return total
}

func (w *WorkerApp) Close() error {
	var errs []error
	if w.queue != nil {
		errs = append(errs, w.queue.Close())
	}
	if w.postgres != nil {
		errs = append(errs, w.postgres.Close())
	}
	return errors.Join(errs...)
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
