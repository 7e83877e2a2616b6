package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	application "altvote/contexts/polling/discussion-service/application"
	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/contexts/polling/discussion-service/ports"
)

type ToggleReactionCommand struct {
	CommentID string
	AuthorID  string
}

type ReactionUseCase struct {
	Comments ports.CommentRepository
	Clock    ports.Clock
	IDGen    ports.IDGenerator
	Logger   *slog.Logger
}

func (uc ReactionUseCase) ToggleLike(ctx context.Context, cmd ToggleReactionCommand) (entities.Transition, error) {
	return uc.toggle(ctx, cmd, entities.ActionLike)
}

func (uc ReactionUseCase) ToggleDislike(ctx context.Context, cmd ToggleReactionCommand) (entities.Transition, error) {
	return uc.toggle(ctx, cmd, entities.ActionDislike)
}

// toggle reads, transitions and writes the pair's reaction under the
// comment row lock, so rapid toggles from one author never lose an update.
func (uc ReactionUseCase) toggle(ctx context.Context, cmd ToggleReactionCommand, action entities.ReactionAction) (entities.Transition, error) {
	logger := application.ResolveLogger(uc.Logger)
	commentID := strings.TrimSpace(cmd.CommentID)
	authorID := strings.TrimSpace(cmd.AuthorID)
	if commentID == "" || authorID == "" {
		return entities.Transition{}, domainerrors.ErrInvalidCommentInput
	}

	eventType := eventsv1.CounterCommentLikeToggled
	if action == entities.ActionDislike {
		eventType = eventsv1.CounterCommentDislikeToggled
	}

	now := uc.now()
	var transition entities.Transition
	err := uc.Comments.RunInTransaction(ctx, func(ctx context.Context, tx ports.CommentTransaction) error {
		if _, err := tx.LockComment(ctx, commentID); err != nil {
			return err
		}
		from, err := tx.ReactionState(ctx, commentID, authorID)
		if err != nil {
			return err
		}
		transition, err = entities.Toggle(from, action)
		if err != nil {
			return err
		}
		if err := tx.ApplyReaction(ctx, commentID, authorID, transition, now); err != nil {
			return err
		}
		return appendCounterTask(ctx, tx, uc.IDGen, eventType, "comment_id", commentID, now, eventsv1.ReactionToggled{
			CommentID:     commentID,
			AuthorID:      authorID,
			From:          string(transition.From),
			To:            string(transition.To),
			LikesDelta:    transition.LikesDelta,
			DislikesDelta: transition.DislikesDelta,
		})
	})
	if err != nil {
		logger.Warn("reaction toggle rejected",
			"event", "discussion_reaction_toggle_rejected",
			"module", "polling/discussion-service",
			"layer", "application",
			"comment_id", commentID,
			"author_id", authorID,
			"action", string(action),
			"error", err.Error(),
		)
		return entities.Transition{}, err
	}

	logger.Info("reaction toggled",
		"event", "discussion_reaction_toggled",
		"module", "polling/discussion-service",
		"layer", "application",
		"comment_id", commentID,
		"author_id", authorID,
		"from", string(transition.From),
		"to", string(transition.To),
	)
	return transition, nil
}

func (uc ReactionUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
