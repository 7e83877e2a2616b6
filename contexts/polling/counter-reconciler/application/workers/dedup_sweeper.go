package workers

import (
	"context"
	"log/slog"

	application "altvote/contexts/polling/counter-reconciler/application"
	"altvote/contexts/polling/counter-reconciler/application/commands"
)

// DedupSweeper drops expired dedup reservations.
type DedupSweeper struct {
	Reconciler commands.ReconcileUseCase
	Logger     *slog.Logger
}

func (s DedupSweeper) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(s.Logger)
	purged, err := s.Reconciler.PurgeExpiredReservations(ctx)
	if err != nil {
		logger.Error("dedup sweep failed",
			"event", "counter_reconciler_dedup_sweep_failed",
			"module", "polling/counter-reconciler",
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if purged > 0 {
		logger.Info("dedup sweep completed",
			"event", "counter_reconciler_dedup_sweep_completed",
			"module", "polling/counter-reconciler",
			"layer", "worker",
			"purged_count", purged,
		)
	}
	return nil
}
