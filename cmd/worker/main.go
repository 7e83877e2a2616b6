package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"altvote/internal/app/bootstrap"
)

// Worker process entrypoint.
// Data flow:
// 1) Load config.
// 2) Build app wiring.
// 3) Run outbox relays, the counter consumer and the dedup sweeper.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	app, err := bootstrap.BuildWorker()
	if err != nil {
		slog.Error("bootstrap worker failed", "event", "worker_bootstrap_failed", "error", err.Error())
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("worker shutdown close failed", "event", "worker_close_failed", "error", err.Error())
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		slog.Error("worker stopped with error", "event", "worker_stopped", "error", err.Error())
		os.Exit(1)
	}
}
