package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	application "altvote/contexts/polling/counter-reconciler/application"
	"altvote/contexts/polling/counter-reconciler/domain/entities"
	domainerrors "altvote/contexts/polling/counter-reconciler/domain/errors"
	"altvote/contexts/polling/counter-reconciler/ports"
)

const defaultDedupTTL = 7 * 24 * time.Hour

// ReconcileUseCase applies counter deltas. Every method is safe under
// at-least-once delivery: a task already applied under the same event id is
// acknowledged without touching counters.
type ReconcileUseCase struct {
	Counters ports.CounterStore
	Clock    ports.Clock
	DedupTTL time.Duration
	Logger   *slog.Logger
}

func (uc ReconcileUseCase) ApplySimpleVoteDelta(ctx context.Context, task entities.Task, delta eventsv1.SimpleVoteDelta) (entities.Outcome, error) {
	optionID := strings.TrimSpace(delta.OptionID)
	if optionID == "" {
		return entities.Outcome{}, fmt.Errorf("%w: simple vote delta without option_id", domainerrors.ErrInvalidTask)
	}
	return uc.apply(ctx, task, func(ctx context.Context, w ports.CounterWriter, outcome *entities.Outcome) error {
		found, err := w.AddSimpleVotes(ctx, optionID, entities.Sign(delta.Created))
		if err != nil {
			return err
		}
		outcome.Record(found, "option:"+optionID)
		return nil
	})
}

// ApplyRankedDelta applies a whole ballot's points at once. Ranked ballots
// move ranked_points by the points value; preferential ballots move the count
// at the assigned rank position by one.
func (uc ReconcileUseCase) ApplyRankedDelta(ctx context.Context, task entities.Task, delta eventsv1.RankedDelta) (entities.Outcome, error) {
	if len(delta.OptionToPoints) == 0 {
		return entities.Outcome{}, fmt.Errorf("%w: ranked delta without options", domainerrors.ErrInvalidTask)
	}
	optionIDs := make([]string, 0, len(delta.OptionToPoints))
	for optionID, points := range delta.OptionToPoints {
		if strings.TrimSpace(optionID) == "" || points < 1 {
			return entities.Outcome{}, fmt.Errorf("%w: ranked delta entry %q=%d", domainerrors.ErrInvalidTask, optionID, points)
		}
		optionIDs = append(optionIDs, optionID)
	}
	// Fixed update order keeps concurrent ballots from deadlocking on rows.
	sort.Strings(optionIDs)
	sign := entities.Sign(delta.Created)

	return uc.apply(ctx, task, func(ctx context.Context, w ports.CounterWriter, outcome *entities.Outcome) error {
		for _, optionID := range optionIDs {
			points := delta.OptionToPoints[optionID]
			var (
				found bool
				err   error
			)
			if delta.Ranked {
				found, err = w.AddRankedPoints(ctx, optionID, sign*points)
			} else {
				found, err = w.AddPreferentialPosition(ctx, optionID, points, sign)
			}
			if err != nil {
				return err
			}
			outcome.Record(found, "option:"+optionID)
		}
		return nil
	})
}

func (uc ReconcileUseCase) ApplyCommentCountDelta(ctx context.Context, task entities.Task, delta eventsv1.CommentCountDelta) (entities.Outcome, error) {
	pollID := strings.TrimSpace(delta.PollID)
	if pollID == "" {
		return entities.Outcome{}, fmt.Errorf("%w: comment count delta without poll_id", domainerrors.ErrInvalidTask)
	}
	return uc.apply(ctx, task, func(ctx context.Context, w ports.CounterWriter, outcome *entities.Outcome) error {
		found, err := w.AddCommentsCount(ctx, pollID, entities.Sign(delta.Created))
		if err != nil {
			return err
		}
		outcome.Record(found, "poll:"+pollID)
		return nil
	})
}

func (uc ReconcileUseCase) ApplyLikeToggle(ctx context.Context, task entities.Task, delta eventsv1.ReactionToggled) (entities.Outcome, error) {
	return uc.applyToggle(ctx, task, delta)
}

func (uc ReconcileUseCase) ApplyDislikeToggle(ctx context.Context, task entities.Task, delta eventsv1.ReactionToggled) (entities.Outcome, error) {
	return uc.applyToggle(ctx, task, delta)
}

// applyToggle trusts the transition computed under the comment lock and only
// moves the counters; both deltas land in one statement.
func (uc ReconcileUseCase) applyToggle(ctx context.Context, task entities.Task, delta eventsv1.ReactionToggled) (entities.Outcome, error) {
	commentID := strings.TrimSpace(delta.CommentID)
	if commentID == "" || !unitDelta(delta.LikesDelta) || !unitDelta(delta.DislikesDelta) {
		return entities.Outcome{}, fmt.Errorf("%w: reaction toggle %#v", domainerrors.ErrInvalidTask, delta)
	}
	return uc.apply(ctx, task, func(ctx context.Context, w ports.CounterWriter, outcome *entities.Outcome) error {
		if delta.LikesDelta == 0 && delta.DislikesDelta == 0 {
			return nil
		}
		found, err := w.AddReactionCounts(ctx, commentID, delta.LikesDelta, delta.DislikesDelta)
		if err != nil {
			return err
		}
		outcome.Record(found, "comment:"+commentID)
		return nil
	})
}

// PurgeExpiredReservations drops dedup records past their TTL.
func (uc ReconcileUseCase) PurgeExpiredReservations(ctx context.Context) (int64, error) {
	return uc.Counters.PurgeExpired(ctx, uc.now())
}

func (uc ReconcileUseCase) apply(
	ctx context.Context,
	task entities.Task,
	fn func(ctx context.Context, w ports.CounterWriter, outcome *entities.Outcome) error,
) (entities.Outcome, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(task.EventID) == "" {
		return entities.Outcome{}, fmt.Errorf("%w: missing event id", domainerrors.ErrInvalidTask)
	}

	now := uc.now()
	reservation := entities.Reservation{
		EventID:     task.EventID,
		PayloadHash: task.PayloadHash,
		ProcessedAt: now,
		ExpiresAt:   now.Add(uc.dedupTTL()),
	}
	var outcome entities.Outcome
	duplicate, err := uc.Counters.ApplyOnce(ctx, reservation, func(ctx context.Context, w ports.CounterWriter) error {
		outcome = entities.Outcome{}
		return fn(ctx, w, &outcome)
	})
	if err != nil {
		logger.Error("counter task failed",
			"event", "counter_reconciler_delta_failed",
			"module", "polling/counter-reconciler",
			"layer", "application",
			"event_id", task.EventID,
			"event_type", task.EventType,
			"error", err.Error(),
		)
		return entities.Outcome{}, fmt.Errorf("%w: %w", domainerrors.ErrReconciliation, err)
	}
	if duplicate {
		logger.Debug("counter task already applied",
			"event", "counter_reconciler_delta_replayed",
			"module", "polling/counter-reconciler",
			"layer", "application",
			"event_id", task.EventID,
			"event_type", task.EventType,
		)
		return entities.Outcome{Duplicate: true}, nil
	}

	if len(outcome.MissingTargets) > 0 {
		logger.Warn("counter task target missing",
			"event", "counter_reconciler_target_missing",
			"module", "polling/counter-reconciler",
			"layer", "application",
			"event_id", task.EventID,
			"event_type", task.EventType,
			"targets", outcome.MissingTargets,
		)
	}
	logger.Info("counter task applied",
		"event", "counter_reconciler_delta_applied",
		"module", "polling/counter-reconciler",
		"layer", "application",
		"event_id", task.EventID,
		"event_type", task.EventType,
		"applied_count", outcome.Applied,
	)
	return outcome, nil
}

func (uc ReconcileUseCase) dedupTTL() time.Duration {
	if uc.DedupTTL <= 0 {
		return defaultDedupTTL
	}
	return uc.DedupTTL
}

func (uc ReconcileUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func unitDelta(value int) bool {
	return value >= -1 && value <= 1
}
