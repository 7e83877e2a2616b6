package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	pollservice "altvote/contexts/polling/poll-service"
	pollpostgres "altvote/contexts/polling/poll-service/adapters/postgres"
	pollcommands "altvote/contexts/polling/poll-service/application/commands"
	"altvote/internal/platform/config"
	"altvote/internal/platform/db"

	"github.com/goccy/go-yaml"
)

// SeedFile is the YAML document read by cmd/seed.
type SeedFile struct {
	Categories []string `yaml:"categories"`
}

func LoadSeedFile(path string) (SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("read seed file %s: %w", path, err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return SeedFile{}, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return file, nil
}

type SeedApp struct {
	categories pollcommands.CategoryUseCase
	postgres   *db.Postgres
	file       string
	logger     *slog.Logger
}

func BuildSeeder() (*SeedApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "seed")
	pg, err := connect(cfg, logger)
	if err != nil {
		return nil, err
	}
	repo := pollpostgres.NewRepository(pg.DB, logger)
	module := pollservice.NewModule(pollservice.Dependencies{
		Polls:      repo,
		Categories: repo,
		Clock:      pollpostgres.SystemClock{},
		IDGen:      pollpostgres.UUIDGenerator{},
		Logger:     logger,
	})
	return &SeedApp{
		categories: module.Categories,
		postgres:   pg,
		file:       cfg.SeedFile,
		logger:     logger,
	}, nil
}

// Run is idempotent: categories that already exist are left alone.
func (a *SeedApp) Run(ctx context.Context) error {
	file, err := LoadSeedFile(a.file)
	if err != nil {
		return err
	}
	created, err := seedCategories(ctx, a.categories, file)
	if err != nil {
		return err
	}
	a.logger.Info("seed completed",
		"event", "bootstrap_seed_completed",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"seed_file", a.file,
		"categories_total", len(file.Categories),
		"categories_created", created,
	)
	return nil
}

func (a *SeedApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func seedCategories(ctx context.Context, categories pollcommands.CategoryUseCase, file SeedFile) (int, error) {
	return categories.SeedCategories(ctx, file.Categories)
}
