package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	"altvote/contexts/polling/voting-engine/ports"
	"altvote/internal/shared/outbox"

	"gorm.io/datatypes"
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

// RunInTransaction hands fn a transaction-scoped view of the vote tables.
// Domain rejections roll back untouched; anything else is a store failure.
func (r *Repository) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.VoteTransaction) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &txRepository{db: tx})
	})
	if err == nil || isDomainError(err) {
		return err
	}
	return r.logError("vote_repo_transaction_failed", err)
}

func (r *Repository) ListOptionTallies(ctx context.Context, pollID string) ([]entities.OptionTally, error) {
	pollID = strings.TrimSpace(pollID)
	if err := r.requirePoll(ctx, pollID); err != nil {
		return nil, err
	}
	var rows []optionModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("vote_repo_list_options_failed", err, "poll_id", pollID)
	}
	items := make([]entities.OptionTally, 0, len(rows))
	for _, row := range rows {
		positions, err := decodePositions(row.PreferentialVotes)
		if err != nil {
			return nil, r.logError("vote_repo_decode_positions_failed", err, "option_id", row.OptionID)
		}
		items = append(items, entities.OptionTally{
			OptionID:          row.OptionID,
			Label:             row.Label,
			Position:          row.Position,
			SimpleVotes:       counterValue(row.SimpleVotes),
			RankedPoints:      counterValue(row.RankedPoints),
			PreferentialVotes: positions,
		})
	}
	return items, nil
}

func (r *Repository) ListPollVotes(ctx context.Context, pollID string) ([]entities.SimpleVote, []entities.RankedVote, error) {
	pollID = strings.TrimSpace(pollID)
	if err := r.requirePoll(ctx, pollID); err != nil {
		return nil, nil, err
	}
	var simpleRows []simpleVoteModel
	if err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&simpleRows).Error; err != nil {
		return nil, nil, r.logError("vote_repo_list_simple_votes_failed", err, "poll_id", pollID)
	}
	var rankedRows []rankedVoteModel
	if err := r.db.WithContext(ctx).Where("poll_id = ?", pollID).Find(&rankedRows).Error; err != nil {
		return nil, nil, r.logError("vote_repo_list_ranked_votes_failed", err, "poll_id", pollID)
	}
	return toSimpleEntities(simpleRows), toRankedEntities(rankedRows), nil
}

func (r *Repository) ListAuthorVotes(ctx context.Context, pollID string, authorID string) (entities.AuthorVotes, error) {
	pollID = strings.TrimSpace(pollID)
	if err := r.requirePoll(ctx, pollID); err != nil {
		return entities.AuthorVotes{}, err
	}
	var simpleRows []simpleVoteModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ? AND author_id = ?", pollID, authorID).
		Order("created_at ASC").
		Find(&simpleRows).Error; err != nil {
		return entities.AuthorVotes{}, r.logError("vote_repo_list_author_simple_failed", err, "poll_id", pollID)
	}
	var rankedRows []rankedVoteModel
	if err := r.db.WithContext(ctx).
		Where("poll_id = ? AND author_id = ?", pollID, authorID).
		Order("points ASC").
		Find(&rankedRows).Error; err != nil {
		return entities.AuthorVotes{}, r.logError("vote_repo_list_author_ranked_failed", err, "poll_id", pollID)
	}

	out := entities.AuthorVotes{
		Simple:       toSimpleEntities(simpleRows),
		Ranked:       []entities.RankedVote{},
		Preferential: []entities.RankedVote{},
	}
	for _, vote := range toRankedEntities(rankedRows) {
		if vote.Mode.Preferential() {
			out.Preferential = append(out.Preferential, vote)
		} else {
			out.Ranked = append(out.Ranked, vote)
		}
	}
	return out, nil
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
		return nil, r.logError("vote_repo_list_outbox_failed", err)
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
		return r.logError("vote_repo_mark_outbox_failed", err, "outbox_id", outboxID)
	}
	return nil
}

func (r *Repository) requirePoll(ctx context.Context, pollID string) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&pollModel{}).Where("poll_id = ?", pollID).Count(&count).Error; err != nil {
		return r.logError("vote_repo_lookup_poll_failed", err, "poll_id", pollID)
	}
	if count == 0 {
		return domainerrors.ErrPollNotFound
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "polling/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("vote repository operation failed", fields...)
	if errors.Is(err, domainerrors.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", domainerrors.ErrStoreUnavailable, err)
}

type txRepository struct {
	db *gorm.DB
}

// LockPoll takes the poll row lock that serializes every vote write on the
// poll, then reads the current option set under it.
func (t *txRepository) LockPoll(_ context.Context, pollID string) (entities.PollSnapshot, error) {
	var poll pollModel
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("poll_id = ?", strings.TrimSpace(pollID)).
		First(&poll).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entities.PollSnapshot{}, domainerrors.ErrPollNotFound
	}
	if err != nil {
		return entities.PollSnapshot{}, err
	}
	var optionIDs []string
	if err := t.db.Model(&optionModel{}).
		Where("poll_id = ?", poll.PollID).
		Order("position ASC").
		Pluck("option_id", &optionIDs).Error; err != nil {
		return entities.PollSnapshot{}, err
	}
	var endsAt *time.Time
	if poll.EndsAt != nil {
		value := poll.EndsAt.UTC()
		endsAt = &value
	}
	return entities.PollSnapshot{
		PollID:    poll.PollID,
		EndsAt:    endsAt,
		OptionIDs: optionIDs,
	}, nil
}

func (t *txRepository) FindSimpleVotes(_ context.Context, pollID string, authorID string) ([]entities.SimpleVote, error) {
	var rows []simpleVoteModel
	if err := t.db.Where("poll_id = ? AND author_id = ?", pollID, authorID).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toSimpleEntities(rows), nil
}

func (t *txRepository) InsertSimpleVote(_ context.Context, vote entities.SimpleVote) error {
	row := simpleVoteModel{
		VoteID:    vote.VoteID,
		PollID:    vote.PollID,
		AuthorID:  vote.AuthorID,
		OptionID:  vote.OptionID,
		CreatedAt: vote.CreatedAt.UTC(),
	}
	return t.db.Create(&row).Error
}

func (t *txRepository) DeleteSimpleVotes(ctx context.Context, pollID string, authorID string) ([]entities.SimpleVote, error) {
	removed, err := t.FindSimpleVotes(ctx, pollID, authorID)
	if err != nil || len(removed) == 0 {
		return removed, err
	}
	if err := t.db.Where("poll_id = ? AND author_id = ?", pollID, authorID).Delete(&simpleVoteModel{}).Error; err != nil {
		return nil, err
	}
	return removed, nil
}

func (t *txRepository) FindRankedVotes(_ context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error) {
	var rows []rankedVoteModel
	if err := t.db.
		Where("poll_id = ? AND author_id = ? AND preferential = ?", pollID, authorID, mode.Preferential()).
		Order("points ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toRankedEntities(rows), nil
}

func (t *txRepository) InsertRankedVotes(_ context.Context, votes []entities.RankedVote) error {
	if len(votes) == 0 {
		return nil
	}
	rows := make([]rankedVoteModel, 0, len(votes))
	for _, vote := range votes {
		rows = append(rows, rankedVoteModel{
			VoteID:       vote.VoteID,
			PollID:       vote.PollID,
			AuthorID:     vote.AuthorID,
			Preferential: vote.Mode.Preferential(),
			OptionID:     vote.OptionID,
			Points:       vote.Points,
			CreatedAt:    vote.CreatedAt.UTC(),
		})
	}
	return t.db.Create(&rows).Error
}

func (t *txRepository) DeleteRankedVotes(ctx context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error) {
	removed, err := t.FindRankedVotes(ctx, pollID, authorID, mode)
	if err != nil || len(removed) == 0 {
		return removed, err
	}
	if err := t.db.
		Where("poll_id = ? AND author_id = ? AND preferential = ?", pollID, authorID, mode.Preferential()).
		Delete(&rankedVoteModel{}).Error; err != nil {
		return nil, err
	}
	return removed, nil
}

func (t *txRepository) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	row := outboxModel{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return t.db.Create(&row).Error
}

func isDomainError(err error) bool {
	var ballotErr *domainerrors.BallotError
	if errors.As(err, &ballotErr) {
		return true
	}
	for _, target := range []error{
		domainerrors.ErrInvalidVoteInput,
		domainerrors.ErrPollNotFound,
		domainerrors.ErrPollClosed,
		domainerrors.ErrOptionNotInPoll,
		domainerrors.ErrDuplicateVote,
		domainerrors.ErrIncompleteBallot,
		domainerrors.ErrInvalidRankAssignment,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type pollModel struct {
	PollID string     `gorm:"column:poll_id;primaryKey"`
	EndsAt *time.Time `gorm:"column:ends_at"`
}

func (pollModel) TableName() string {
	return "polls"
}

// Counters are written only by the counter reconciler.
type optionModel struct {
	OptionID          string         `gorm:"column:option_id;primaryKey"`
	PollID            string         `gorm:"column:poll_id"`
	Position          int            `gorm:"column:position"`
	Label             string         `gorm:"column:label"`
	SimpleVotes       int            `gorm:"column:simple_votes;->"`
	RankedPoints      int            `gorm:"column:ranked_points;->"`
	PreferentialVotes datatypes.JSON `gorm:"column:preferential_votes;->"`
}

func (optionModel) TableName() string {
	return "options"
}

type simpleVoteModel struct {
	VoteID    string    `gorm:"column:vote_id;primaryKey"`
	PollID    string    `gorm:"column:poll_id"`
	AuthorID  string    `gorm:"column:author_id"`
	OptionID  string    `gorm:"column:option_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (simpleVoteModel) TableName() string {
	return "simple_votes"
}

type rankedVoteModel struct {
	VoteID       string    `gorm:"column:vote_id;primaryKey"`
	PollID       string    `gorm:"column:poll_id"`
	AuthorID     string    `gorm:"column:author_id"`
	Preferential bool      `gorm:"column:preferential"`
	OptionID     string    `gorm:"column:option_id"`
	Points       int       `gorm:"column:points"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (rankedVoteModel) TableName() string {
	return "ranked_votes"
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
	return "voting_outbox"
}

func toSimpleEntities(rows []simpleVoteModel) []entities.SimpleVote {
	items := make([]entities.SimpleVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.SimpleVote{
			VoteID:    row.VoteID,
			PollID:    row.PollID,
			OptionID:  row.OptionID,
			AuthorID:  row.AuthorID,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items
}

func toRankedEntities(rows []rankedVoteModel) []entities.RankedVote {
	items := make([]entities.RankedVote, 0, len(rows))
	for _, row := range rows {
		items = append(items, entities.RankedVote{
			VoteID:    row.VoteID,
			PollID:    row.PollID,
			OptionID:  row.OptionID,
			AuthorID:  row.AuthorID,
			Points:    row.Points,
			Mode:      entities.ModeOf(row.Preferential),
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return items
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

var _ ports.VoteRepository = (*Repository)(nil)
var _ outbox.Store = (*Repository)(nil)
