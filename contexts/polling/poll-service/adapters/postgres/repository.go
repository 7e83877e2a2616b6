package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"altvote/contexts/polling/poll-service/domain/entities"
	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
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

func (r *Repository) CreatePoll(ctx context.Context, details entities.PollDetails) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := pollModelFromEntity(details.Poll)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		return insertPollContent(tx, details.Poll.PollID, details.Options, categoryIDsOf(details.Categories), details.Poll.CreatedAt)
	})
	if err != nil {
		return r.logError("poll_repo_create_poll_failed", err, "poll_id", details.Poll.PollID)
	}
	return nil
}

func (r *Repository) ReplacePoll(ctx context.Context, poll entities.Poll, options []entities.Option, categoryIDs []string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&pollModel{}).
			Where("poll_id = ?", poll.PollID).
			Updates(map[string]any{
				"title":       poll.Title,
				"description": poll.Description,
				"ends_at":     normalizeOptionalTime(poll.EndsAt),
				"updated_at":  poll.UpdatedAt.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPollNotFound
		}

		// Votes reference options, so they go with the option set.
		oldOptions := tx.Model(&optionModel{}).Select("option_id").Where("poll_id = ?", poll.PollID)
		if err := tx.Where("option_id IN (?)", oldOptions).Delete(&simpleVoteRef{}).Error; err != nil {
			return err
		}
		if err := tx.Where("option_id IN (?)", oldOptions).Delete(&rankedVoteRef{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.PollID).Delete(&optionModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", poll.PollID).Delete(&pollCategoryModel{}).Error; err != nil {
			return err
		}
		return insertPollContent(tx, poll.PollID, options, categoryIDs, poll.UpdatedAt)
	})
	if errors.Is(err, domainerrors.ErrPollNotFound) {
		return err
	}
	if err != nil {
		return r.logError("poll_repo_replace_poll_failed", err, "poll_id", poll.PollID)
	}
	return nil
}

func (r *Repository) GetPoll(ctx context.Context, pollID string) (entities.PollDetails, error) {
	var row pollModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PollDetails{}, domainerrors.ErrPollNotFound
		}
		return entities.PollDetails{}, r.logError("poll_repo_get_poll_failed", err, "poll_id", pollID)
	}
	items, err := r.hydrate(ctx, []pollModel{row})
	if err != nil {
		return entities.PollDetails{}, err
	}
	return items[0], nil
}

func (r *Repository) ListPolls(ctx context.Context, filter ports.PollFilter) ([]entities.PollDetails, error) {
	query := r.db.WithContext(ctx).Model(&pollModel{})
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.CategoryID != "" {
		query = query.Where("poll_id IN (?)",
			r.db.WithContext(ctx).Model(&pollCategoryModel{}).Select("poll_id").Where("category_id = ?", filter.CategoryID),
		)
	}
	var rows []pollModel
	if err := query.
		Order("created_at DESC").
		Order("poll_id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_polls_failed", err,
			"category_id", filter.CategoryID,
			"author_id", filter.AuthorID,
		)
	}
	if len(rows) == 0 {
		return []entities.PollDetails{}, nil
	}
	return r.hydrate(ctx, rows)
}

func (r *Repository) DeletePoll(ctx context.Context, pollID string) error {
	pollID = strings.TrimSpace(pollID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		comments := tx.Model(&commentRef{}).Select("comment_id").Where("poll_id = ?", pollID)
		if err := tx.Where("comment_id IN (?)", comments).Delete(&commentLikeRef{}).Error; err != nil {
			return err
		}
		if err := tx.Where("comment_id IN (?)", comments).Delete(&commentDislikeRef{}).Error; err != nil {
			return err
		}
		for _, model := range []any{&commentRef{}, &simpleVoteRef{}, &rankedVoteRef{}, &optionModel{}, &pollCategoryModel{}} {
			if err := tx.Where("poll_id = ?", pollID).Delete(model).Error; err != nil {
				return err
			}
		}
		result := tx.Where("poll_id = ?", pollID).Delete(&pollModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPollNotFound
		}
		return nil
	})
	if errors.Is(err, domainerrors.ErrPollNotFound) {
		return err
	}
	if err != nil {
		return r.logError("poll_repo_delete_poll_failed", err, "poll_id", pollID)
	}
	return nil
}

func (r *Repository) SetConfirmed(ctx context.Context, pollID string, confirmed bool, updatedAt time.Time) (entities.Poll, error) {
	pollID = strings.TrimSpace(pollID)
	result := r.db.WithContext(ctx).
		Model(&pollModel{}).
		Where("poll_id = ?", pollID).
		Updates(map[string]any{
			"confirmed":  confirmed,
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return entities.Poll{}, r.logError("poll_repo_set_confirmed_failed", result.Error, "poll_id", pollID)
	}
	if result.RowsAffected == 0 {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	details, err := r.GetPoll(ctx, pollID)
	if err != nil {
		return entities.Poll{}, err
	}
	return details.Poll, nil
}

func (r *Repository) CreateCategory(ctx context.Context, category entities.Category) error {
	row := categoryModel{
		CategoryID: category.CategoryID,
		Name:       category.Name,
		CreatedAt:  category.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrCategoryExists
		}
		return r.logError("poll_repo_create_category_failed", err, "name", category.Name)
	}
	return nil
}

func (r *Repository) GetCategoryByName(ctx context.Context, name string) (entities.Category, bool, error) {
	var row categoryModel
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.Category{}, false, nil
	}
	if err != nil {
		return entities.Category{}, false, r.logError("poll_repo_get_category_failed", err, "name", name)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) FindCategories(ctx context.Context, categoryIDs []string) ([]entities.Category, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var rows []categoryModel
	if err := r.db.WithContext(ctx).
		Where("category_id IN ?", categoryIDs).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_find_categories_failed", err, "count", len(categoryIDs))
	}
	return toCategoryEntities(rows), nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]entities.Category, error) {
	var rows []categoryModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, r.logError("poll_repo_list_categories_failed", err)
	}
	return toCategoryEntities(rows), nil
}

func (r *Repository) hydrate(ctx context.Context, polls []pollModel) ([]entities.PollDetails, error) {
	ids := make([]string, 0, len(polls))
	for _, poll := range polls {
		ids = append(ids, poll.PollID)
	}

	var optionRows []optionModel
	if err := r.db.WithContext(ctx).
		Where("poll_id IN ?", ids).
		Order("position ASC").
		Find(&optionRows).Error; err != nil {
		return nil, r.logError("poll_repo_load_options_failed", err, "poll_count", len(ids))
	}
	var linkRows []pollCategoryRow
	if err := r.db.WithContext(ctx).
		Table("poll_categories").
		Select("poll_categories.poll_id, categories.category_id, categories.name, categories.created_at").
		Joins("JOIN categories ON categories.category_id = poll_categories.category_id").
		Where("poll_categories.poll_id IN ?", ids).
		Order("categories.name ASC").
		Scan(&linkRows).Error; err != nil {
		return nil, r.logError("poll_repo_load_categories_failed", err, "poll_count", len(ids))
	}

	options := make(map[string][]entities.Option, len(ids))
	for _, row := range optionRows {
		option, err := row.toEntity()
		if err != nil {
			return nil, r.logError("poll_repo_decode_option_failed", err, "option_id", row.OptionID)
		}
		options[row.PollID] = append(options[row.PollID], option)
	}
	categories := make(map[string][]entities.Category, len(ids))
	for _, row := range linkRows {
		categories[row.PollID] = append(categories[row.PollID], entities.Category{
			CategoryID: row.CategoryID,
			Name:       row.Name,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}

	items := make([]entities.PollDetails, 0, len(polls))
	for _, poll := range polls {
		items = append(items, entities.PollDetails{
			Poll:       poll.toEntity(),
			Options:    options[poll.PollID],
			Categories: categories[poll.PollID],
		})
	}
	return items, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/poll-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("poll repository operation failed", fields...)
	return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
}

func insertPollContent(tx *gorm.DB, pollID string, options []entities.Option, categoryIDs []string, createdAt time.Time) error {
	if len(options) > 0 {
		rows := make([]optionModel, 0, len(options))
		for _, option := range options {
			row := optionModelFromEntity(option)
			row.PollID = pollID
			row.CreatedAt = createdAt.UTC()
			if row.OptionID == "" {
				row.OptionID = uuid.NewString()
			}
			rows = append(rows, row)
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	if len(categoryIDs) > 0 {
		links := make([]pollCategoryModel, 0, len(categoryIDs))
		for _, id := range categoryIDs {
			links = append(links, pollCategoryModel{PollID: pollID, CategoryID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
	}
	return nil
}

type pollModel struct {
	PollID        string     `gorm:"column:poll_id;primaryKey"`
	AuthorID      string     `gorm:"column:author_id"`
	Title         string     `gorm:"column:title"`
	Description   string     `gorm:"column:description"`
	EndsAt        *time.Time `gorm:"column:ends_at"`
	Confirmed     bool       `gorm:"column:confirmed"`
	CommentsCount int        `gorm:"column:comments_count;->"`
	CreatedAt     time.Time  `gorm:"column:created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

func pollModelFromEntity(poll entities.Poll) pollModel {
	return pollModel{
		PollID:      poll.PollID,
		AuthorID:    poll.AuthorID,
		Title:       poll.Title,
		Description: poll.Description,
		EndsAt:      normalizeOptionalTime(poll.EndsAt),
		Confirmed:   poll.Confirmed,
		CreatedAt:   poll.CreatedAt.UTC(),
		UpdatedAt:   poll.UpdatedAt.UTC(),
	}
}

func (m pollModel) toEntity() entities.Poll {
	return entities.Poll{
		PollID:        m.PollID,
		AuthorID:      m.AuthorID,
		Title:         m.Title,
		Description:   m.Description,
		EndsAt:        normalizeOptionalTime(m.EndsAt),
		Confirmed:     m.Confirmed,
		CommentsCount: counterValue(m.CommentsCount),
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

// Counter columns are read-only for this service.
type optionModel struct {
	OptionID          string         `gorm:"column:option_id;primaryKey"`
	PollID            string         `gorm:"column:poll_id"`
	Position          int            `gorm:"column:position"`
	Label             string         `gorm:"column:label"`
	ImageURL          string         `gorm:"column:image_url"`
	SimpleVotes       int            `gorm:"column:simple_votes;->"`
	RankedPoints      int            `gorm:"column:ranked_points;->"`
	PreferentialVotes datatypes.JSON `gorm:"column:preferential_votes;->"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
}

func (optionModel) TableName() string {
	return "options"
}

func optionModelFromEntity(option entities.Option) optionModel {
	return optionModel{
		OptionID: option.OptionID,
		PollID:   option.PollID,
		Position: option.Position,
		Label:    option.Label,
		ImageURL: option.ImageURL,
	}
}

func (m optionModel) toEntity() (entities.Option, error) {
	positions, err := decodePositions(m.PreferentialVotes)
	if err != nil {
		return entities.Option{}, err
	}
	return entities.Option{
		OptionID:          m.OptionID,
		PollID:            m.PollID,
		Position:          m.Position,
		Label:             m.Label,
		ImageURL:          m.ImageURL,
		SimpleVotes:       counterValue(m.SimpleVotes),
		RankedPoints:      counterValue(m.RankedPoints),
		PreferentialVotes: positions,
	}, nil
}

type categoryModel struct {
	CategoryID string    `gorm:"column:category_id;primaryKey"`
	Name       string    `gorm:"column:name"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (categoryModel) TableName() string {
	return "categories"
}

func (m categoryModel) toEntity() entities.Category {
	return entities.Category{
		CategoryID: m.CategoryID,
		Name:       m.Name,
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type pollCategoryModel struct {
	PollID     string `gorm:"column:poll_id;primaryKey"`
	CategoryID string `gorm:"column:category_id;primaryKey"`
}

func (pollCategoryModel) TableName() string {
	return "poll_categories"
}

type pollCategoryRow struct {
	PollID     string    `gorm:"column:poll_id"`
	CategoryID string    `gorm:"column:category_id"`
	Name       string    `gorm:"column:name"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// Delete-only references to rows owned by other services; poll deletion
// cascades into them.
type simpleVoteRef struct {
	VoteID string `gorm:"column:vote_id;primaryKey"`
}

func (simpleVoteRef) TableName() string { return "simple_votes" }

type rankedVoteRef struct {
	VoteID string `gorm:"column:vote_id;primaryKey"`
}

func (rankedVoteRef) TableName() string { return "ranked_votes" }

type commentRef struct {
	CommentID string `gorm:"column:comment_id;primaryKey"`
}

func (commentRef) TableName() string { return "comments" }

type commentLikeRef struct {
	CommentID string `gorm:"column:comment_id;primaryKey"`
	AuthorID  string `gorm:"column:author_id;primaryKey"`
}

func (commentLikeRef) TableName() string { return "comment_likes" }

type commentDislikeRef struct {
	CommentID string `gorm:"column:comment_id;primaryKey"`
	AuthorID  string `gorm:"column:author_id;primaryKey"`
}

func (commentDislikeRef) TableName() string { return "comment_dislikes" }

func toCategoryEntities(rows []categoryModel) []entities.Category {
	items := make([]entities.Category, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items
}

func categoryIDsOf(categories []entities.Category) []string {
	ids := make([]string, 0, len(categories))
	for _, category := range categories {
		ids = append(ids, category.CategoryID)
	}
	return ids
}

func decodePositions(raw datatypes.JSON) (map[int]int, error) {
	positions := map[int]int{}
	if len(raw) == 0 || string(raw) == "null" {
		return positions, nil
	}
	if err := json.Unmarshal(raw, &positions); err != nil {
		return nil, err
	}
	for position, count := range positions {
		positions[position] = counterValue(count)
	}
	return positions, nil
}

// Stored counters are signed sums that may dip below zero while tasks are
// still in flight; readers never see a negative count.
func counterValue(stored int) int {
	if stored < 0 {
		return 0
	}
	return stored
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.PollRepository = (*Repository)(nil)
var _ ports.CategoryRepository = (*Repository)(nil)
