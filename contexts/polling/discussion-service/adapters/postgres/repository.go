package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/contexts/polling/discussion-service/ports"
	"altvote/internal/shared/outbox"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
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

func (r *Repository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.CommentTransaction) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txRepository{db: tx})
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return r.logError("comment_repo_transaction_failed", err)
}

func (r *Repository) GetComment(ctx context.Context, commentID string) (entities.Comment, error) {
	comment, err := getComment(r.db.WithContext(ctx), commentID, false)
	if err != nil && !errors.Is(err, domainerrors.ErrCommentNotFound) {
		return entities.Comment{}, r.logError("comment_repo_get_comment_failed", err, "comment_id", commentID)
	}
	return comment, err
}

func (r *Repository) ListComments(ctx context.Context, pollID string) ([]entities.Comment, error) {
	pollID = strings.TrimSpace(pollID)
	exists, err := pollExists(r.db.WithContext(ctx), pollID)
	if err != nil {
		return nil, r.logError("comment_repo_lookup_poll_failed", err, "poll_id", pollID)
	}
	if !exists {
		return nil, domainerrors.ErrPollNotFound
	}
	var rows []commentModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("comment_repo_list_comments_failed", err, "poll_id", pollID)
	}
	items := make([]entities.Comment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetReactionState(ctx context.Context, commentID string, authorID string) (entities.ReactionState, error) {
	state, err := reactionState(r.db.WithContext(ctx), commentID, authorID)
	if err != nil && !isDomainError(err) {
		return "", r.logError("comment_repo_reaction_state_failed", err, "comment_id", commentID)
	}
	return state, err
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Order("outbox_id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("comment_repo_list_outbox_failed", err)
	}
	items := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		items = append(items, outbox.Message{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	published := publishedAt.UTC()
	if err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": &published,
		}).Error; err != nil {
		return r.logError("comment_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/discussion-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("comment repository operation failed", fields...)
	return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
}

type txRepository struct {
	db *gorm.DB
}

func (t *txRepository) PollExists(_ context.Context, pollID string) (bool, error) {
	return pollExists(t.db, pollID)
}

func (t *txRepository) GetComment(_ context.Context, commentID string) (entities.Comment, error) {
	return getComment(t.db, commentID, false)
}

func (t *txRepository) LockComment(_ context.Context, commentID string) (entities.Comment, error) {
	return getComment(t.db, commentID, true)
}

func (t *txRepository) InsertComment(_ context.Context, comment entities.Comment) error {
	row := commentModel{
		CommentID: comment.CommentID,
		PollID:    comment.PollID,
		AuthorID:  comment.AuthorID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt.UTC(),
		UpdatedAt: comment.UpdatedAt.UTC(),
	}
	if comment.ParentID != "" {
		parentID := comment.ParentID
		row.ParentID = &parentID
	}
	return t.db.Create(&row).Error
}

func (t *txRepository) UpdateCommentContent(_ context.Context, commentID string, content string, updatedAt time.Time) error {
	result := t.db.Model(&commentModel{}).
		Where("comment_id = ?", commentID).
		Updates(map[string]any{
			"content":    content,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrCommentNotFound
	}
	return nil
}

func (t *txRepository) ListReplies(_ context.Context, parentID string) ([]entities.Comment, error) {
	var rows []commentModel
	if err := t.db.Where("parent_id = ?", parentID).Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]entities.Comment, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (t *txRepository) DeleteComments(_ context.Context, commentIDs []string) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := t.db.Where("comment_id IN ?", commentIDs).Delete(&commentLikeModel{}).Error; err != nil {
		return err
	}
	if err := t.db.Where("comment_id IN ?", commentIDs).Delete(&commentDislikeModel{}).Error; err != nil {
		return err
	}
	return t.db.Where("comment_id IN ?", commentIDs).Delete(&commentModel{}).Error
}

func (t *txRepository) ReactionState(_ context.Context, commentID string, authorID string) (entities.ReactionState, error) {
	return reactionState(t.db, commentID, authorID)
}

// ApplyReaction rewrites the pair's rows to match transition.To. The caller
// holds the comment row lock.
func (t *txRepository) ApplyReaction(_ context.Context, commentID string, authorID string, transition entities.Transition, at time.Time) error {
	if transition.From == entities.ReactionLiked {
		if err := t.db.Where("comment_id = ? AND author_id = ?", commentID, authorID).Delete(&commentLikeModel{}).Error; err != nil {
			return err
		}
	}
	if transition.From == entities.ReactionDisliked {
		if err := t.db.Where("comment_id = ? AND author_id = ?", commentID, authorID).Delete(&commentDislikeModel{}).Error; err != nil {
			return err
		}
	}
	switch transition.To {
	case entities.ReactionLiked:
		return t.db.Create(&commentLikeModel{CommentID: commentID, AuthorID: authorID, CreatedAt: at.UTC()}).Error
	case entities.ReactionDisliked:
		return t.db.Create(&commentDislikeModel{CommentID: commentID, AuthorID: authorID, CreatedAt: at.UTC()}).Error
	}
	return nil
}

func (t *txRepository) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return t.db.Create(&outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}).Error
}

func pollExists(db *gorm.DB, pollID string) (bool, error) {
	var count int64
	if err := db.Table("polls").Where("poll_id = ?", pollID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func getComment(db *gorm.DB, commentID string, lock bool) (entities.Comment, error) {
	query := db
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row commentModel
	err := query.Where("comment_id = ?", strings.TrimSpace(commentID)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Comment{}, domainerrors.ErrCommentNotFound
	}
	if err != nil {
		return entities.Comment{}, err
	}
	return row.toEntity(), nil
}

func reactionState(db *gorm.DB, commentID string, authorID string) (entities.ReactionState, error) {
	var likes, dislikes int64
	if err := db.Model(&commentLikeModel{}).
		Where("comment_id = ? AND author_id = ?", commentID, authorID).
		Count(&likes).Error; err != nil {
		return "", err
	}
	if err := db.Model(&commentDislikeModel{}).
		Where("comment_id = ? AND author_id = ?", commentID, authorID).
		Count(&dislikes).Error; err != nil {
		return "", err
	}
	return entities.StateOf(likes > 0, dislikes > 0)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domainerrors.ErrInvalidCommentInput,
		domainerrors.ErrInvalidParent,
		domainerrors.ErrCommentNotFound,
		domainerrors.ErrPollNotFound,
		domainerrors.ErrForbidden,
		domainerrors.ErrConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Reaction counters are read-only here.
type commentModel struct {
	CommentID     string    `gorm:"column:comment_id;primaryKey"`
	PollID        string    `gorm:"column:poll_id"`
	ParentID      *string   `gorm:"column:parent_id"`
	AuthorID      string    `gorm:"column:author_id"`
	Content       string    `gorm:"column:content"`
	LikesCount    int       `gorm:"column:likes_count;->"`
	DislikesCount int       `gorm:"column:dislikes_count;->"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (commentModel) TableName() string {
	return "comments"
}

func (m commentModel) toEntity() entities.Comment {
	comment := entities.Comment{
		CommentID:     m.CommentID,
		PollID:        m.PollID,
		AuthorID:      m.AuthorID,
		Content:       m.Content,
		LikesCount:    counterValue(m.LikesCount),
		DislikesCount: counterValue(m.DislikesCount),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
	if m.ParentID != nil {
		comment.ParentID = *m.ParentID
	}
	return comment
}

type commentLikeModel struct {
	CommentID string    `gorm:"column:comment_id;primaryKey"`
	AuthorID  string    `gorm:"column:author_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (commentLikeModel) TableName() string {
	return "comment_likes"
}

type commentDislikeModel struct {
	CommentID string    `gorm:"column:comment_id;primaryKey"`
	AuthorID  string    `gorm:"column:author_id;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (commentDislikeModel) TableName() string {
	return "comment_dislikes"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "discussion_outbox"
}

// Stored counters are signed sums that may dip below zero while tasks are
// still in flight; readers never see a negative count.
func counterValue(stored int) int {
	if stored < 0 {
		return 0
	}
	return stored
}

var _ ports.CommentRepository = (*Repository)(nil)
var _ outbox.Store = (*Repository)(nil)
