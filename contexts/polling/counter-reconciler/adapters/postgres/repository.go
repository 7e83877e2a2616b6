package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"altvote/contexts/polling/counter-reconciler/domain/entities"
	domainerrors "altvote/contexts/polling/counter-reconciler/domain/errors"
	"altvote/contexts/polling/counter-reconciler/ports"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) ApplyOnce(
	ctx context.Context,
	reservation entities.Reservation,
	fn func(ctx context.Context, w ports.CounterWriter) error,
) (bool, error) {
	duplicate := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []dedupModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("event_id = ?", reservation.EventID).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) == 1 {
			if existing[0].ExpiresAt.After(reservation.ProcessedAt) {
				if existing[0].PayloadHash != reservation.PayloadHash {
					return domainerrors.ErrDedupConflict
				}
				duplicate = true
				return nil
			}
			if err := tx.Where("event_id = ?", reservation.EventID).Delete(&dedupModel{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Create(&dedupModel{
			EventID:     reservation.EventID,
			PayloadHash: reservation.PayloadHash,
			ExpiresAt:   reservation.ExpiresAt.UTC(),
			ProcessedAt: reservation.ProcessedAt.UTC(),
		}).Error; err != nil {
			return err
		}
		return fn(ctx, writer{db: tx})
	})
	switch {
	case err == nil:
		return duplicate, nil
	case errors.Is(err, domainerrors.ErrDedupConflict):
		return false, err
	case isUniqueViolation(err):
		// A concurrent delivery of the same event committed its reservation first.
		r.logger.Warn("counter task reserved concurrently",
			"event", "counter_repo_concurrent_reservation",
			"module", "polling/counter-reconciler",
			"layer", "adapter",
			"event_id", reservation.EventID,
		)
		return true, nil
	default:
		return false, r.logError("counter_repo_apply_failed", err, "event_id", reservation.EventID)
	}
}

func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&dedupModel{})
	if result.Error != nil {
		return 0, r.logError("counter_repo_purge_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/counter-reconciler",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("counter repository operation failed", fields...)
	return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
}

// writer is bound to the ApplyOnce transaction. Scalar counters move in a
// single UPDATE so concurrent tasks never read-modify-write them. No floor is
// applied here; see entities.Visible.
type writer struct {
	db *gorm.DB
}

func (w writer) AddSimpleVotes(_ context.Context, optionID string, delta int) (bool, error) {
	return w.addColumn(&optionCounterModel{}, "option_id", optionID, "simple_votes", delta)
}

func (w writer) AddRankedPoints(_ context.Context, optionID string, delta int) (bool, error) {
	return w.addColumn(&optionCounterModel{}, "option_id", optionID, "ranked_points", delta)
}

func (w writer) AddCommentsCount(_ context.Context, pollID string, delta int) (bool, error) {
	return w.addColumn(&pollCounterModel{}, "poll_id", pollID, "comments_count", delta)
}

func (w writer) AddReactionCounts(_ context.Context, commentID string, likesDelta int, dislikesDelta int) (bool, error) {
	result := w.db.Model(&commentCounterModel{}).
		Where("comment_id = ?", commentID).
		UpdateColumns(map[string]any{
			"likes_count":    signedAdd("likes_count", likesDelta),
			"dislikes_count": signedAdd("dislikes_count", dislikesDelta),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AddPreferentialPosition rewrites the JSON position map under the option
// row lock.
func (w writer) AddPreferentialPosition(_ context.Context, optionID string, position int, delta int) (bool, error) {
	var rows []optionCounterModel
	if err := w.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("option_id = ?", optionID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	positions := map[int]int{}
	if raw := rows[0].PreferentialVotes; len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &positions); err != nil {
			return false, err
		}
	}
	positions = entities.ApplyPosition(positions, position, delta)
	encoded, err := json.Marshal(positions)
	if err != nil {
		return false, err
	}
	if err := w.db.Model(&optionCounterModel{}).
		Where("option_id = ?", optionID).
		UpdateColumn("preferential_votes", datatypes.JSON(encoded)).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (w writer) addColumn(model any, keyColumn string, key string, column string, delta int) (bool, error) {
	result := w.db.Model(model).
		Where(keyColumn+" = ?", key).
		UpdateColumn(column, signedAdd(column, delta))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func signedAdd(column string, delta int) clause.Expr {
	return gorm.Expr(column+" + ?", delta)
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// The counter models below are the only writable mappings of these columns.
type optionCounterModel struct {
	OptionID          string         `gorm:"column:option_id;primaryKey"`
	SimpleVotes       int            `gorm:"column:simple_votes"`
	RankedPoints      int            `gorm:"column:ranked_points"`
	PreferentialVotes datatypes.JSON `gorm:"column:preferential_votes"`
}

func (optionCounterModel) TableName() string {
	return "options"
}

type pollCounterModel struct {
	PollID        string `gorm:"column:poll_id;primaryKey"`
	CommentsCount int    `gorm:"column:comments_count"`
}

func (pollCounterModel) TableName() string {
	return "polls"
}

type commentCounterModel struct {
	CommentID     string `gorm:"column:comment_id;primaryKey"`
	LikesCount    int    `gorm:"column:likes_count"`
	DislikesCount int    `gorm:"column:dislikes_count"`
}

func (commentCounterModel) TableName() string {
	return "comments"
}

type dedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (dedupModel) TableName() string {
	return "counter_event_dedup"
}

var _ ports.CounterStore = (*Repository)(nil)
