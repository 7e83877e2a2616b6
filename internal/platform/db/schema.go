package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Schema-only models. Each service adapter declares its own narrower models
// over these tables; only Migrate touches the full column set.

type pollTable struct {
	PollID        string     `gorm:"column:poll_id;primaryKey;size:64"`
	AuthorID      string     `gorm:"column:author_id;size:64;not null;index"`
	Title         string     `gorm:"column:title;size:255;not null"`
	Description   string     `gorm:"column:description;type:text"`
	EndsAt        *time.Time `gorm:"column:ends_at"`
	Confirmed     bool       `gorm:"column:confirmed;not null;default:false"`
	CommentsCount int        `gorm:"column:comments_count;not null;default:0"`
	CreatedAt     time.Time  `gorm:"column:created_at;not null;index"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;not null"`
}

func (pollTable) TableName() string { return "polls" }

type optionTable struct {
	OptionID          string         `gorm:"column:option_id;primaryKey;size:64"`
	PollID            string         `gorm:"column:poll_id;size:64;not null;index"`
	Position          int            `gorm:"column:position;not null"`
	Label             string         `gorm:"column:label;size:255;not null"`
	ImageURL          string         `gorm:"column:image_url;size:1024"`
	SimpleVotes       int            `gorm:"column:simple_votes;not null;default:0"`
	RankedPoints      int            `gorm:"column:ranked_points;not null;default:0"`
	PreferentialVotes datatypes.JSON `gorm:"column:preferential_votes"`
	CreatedAt         time.Time      `gorm:"column:created_at;not null"`
}

func (optionTable) TableName() string { return "options" }

type categoryTable struct {
	CategoryID string    `gorm:"column:category_id;primaryKey;size:64"`
	Name       string    `gorm:"column:name;size:120;not null;uniqueIndex"`
	CreatedAt  time.Time `gorm:"column:created_at;not null"`
}

func (categoryTable) TableName() string { return "categories" }

type pollCategoryTable struct {
	PollID     string `gorm:"column:poll_id;primaryKey;size:64"`
	CategoryID string `gorm:"column:category_id;primaryKey;size:64;index"`
}

func (pollCategoryTable) TableName() string { return "poll_categories" }

type simpleVoteTable struct {
	VoteID    string    `gorm:"column:vote_id;primaryKey;size:64"`
	PollID    string    `gorm:"column:poll_id;size:64;not null;index:idx_simple_votes_poll_author"`
	AuthorID  string    `gorm:"column:author_id;size:64;not null;index:idx_simple_votes_poll_author"`
	OptionID  string    `gorm:"column:option_id;size:64;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (simpleVoteTable) TableName() string { return "simple_votes" }

type rankedVoteTable struct {
	VoteID       string    `gorm:"column:vote_id;primaryKey;size:64"`
	PollID       string    `gorm:"column:poll_id;size:64;not null;index:idx_ranked_votes_ballot"`
	AuthorID     string    `gorm:"column:author_id;size:64;not null;index:idx_ranked_votes_ballot"`
	Preferential bool      `gorm:"column:preferential;not null;index:idx_ranked_votes_ballot"`
	OptionID     string    `gorm:"column:option_id;size:64;not null;index"`
	Points       int       `gorm:"column:points;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;not null"`
}

func (rankedVoteTable) TableName() string { return "ranked_votes" }

type commentTable struct {
	CommentID     string    `gorm:"column:comment_id;primaryKey;size:64"`
	PollID        string    `gorm:"column:poll_id;size:64;not null;index"`
	ParentID      *string   `gorm:"column:parent_id;size:64;index"`
	AuthorID      string    `gorm:"column:author_id;size:64;not null"`
	Content       string    `gorm:"column:content;type:text;not null"`
	LikesCount    int       `gorm:"column:likes_count;not null;default:0"`
	DislikesCount int       `gorm:"column:dislikes_count;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at;not null"`
	UpdatedAt     time.Time `gorm:"column:updated_at;not null"`
}

func (commentTable) TableName() string { return "comments" }

type commentLikeTable struct {
	CommentID string    `gorm:"column:comment_id;primaryKey;size:64"`
	AuthorID  string    `gorm:"column:author_id;primaryKey;size:64"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (commentLikeTable) TableName() string { return "comment_likes" }

type commentDislikeTable struct {
	CommentID string    `gorm:"column:comment_id;primaryKey;size:64"`
	AuthorID  string    `gorm:"column:author_id;primaryKey;size:64"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (commentDislikeTable) TableName() string { return "comment_dislikes" }

type outboxTable struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey;size:64"`
	EventType    string     `gorm:"column:event_type;size:120;not null"`
	PartitionKey string     `gorm:"column:partition_key;size:64"`
	Payload      []byte     `gorm:"column:payload;not null"`
	Status       string     `gorm:"column:status;size:16;not null;index"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null;index"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

type votingOutboxTable struct{ outboxTable }

func (votingOutboxTable) TableName() string { return "voting_outbox" }

type discussionOutboxTable struct{ outboxTable }

func (discussionOutboxTable) TableName() string { return "discussion_outbox" }

type counterEventDedupTable struct {
	EventID     string    `gorm:"column:event_id;primaryKey;size:64"`
	PayloadHash string    `gorm:"column:payload_hash;size:64;not null"`
	ExpiresAt   time.Time `gorm:"column:expires_at;not null;index"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

func (counterEventDedupTable) TableName() string { return "counter_event_dedup" }

// Migrate creates or extends every table the services read and write.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&pollTable{},
		&optionTable{},
		&categoryTable{},
		&pollCategoryTable{},
		&simpleVoteTable{},
		&rankedVoteTable{},
		&commentTable{},
		&commentLikeTable{},
		&commentDislikeTable{},
		&votingOutboxTable{},
		&discussionOutboxTable{},
		&counterEventDedupTable{},
	)
}
