package main

import (
	"context"
	"log/slog"
	"os"

	"altvote/internal/app/bootstrap"
)

// Seeds categories from SEED_FILE. Safe to rerun.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app, err := bootstrap.BuildSeeder()
	if err != nil {
		slog.Error("bootstrap seed failed", "event", "seed_bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("seed close failed", "event", "seed_close_failed", "error", err.Error())
		}
	}()

	if err := app.Run(context.Background()); err != nil {
		slog.Error("seed failed", "event", "seed_failed", "error", err.Error())
		os.Exit(1)
	}
}
