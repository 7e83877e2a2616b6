package v1

// Counter task event types. Producers append these to their outbox in the
// same transaction as the row change; only the counter reconciler consumes them.
const (
	CounterSimpleVoteDelta       = "counter.simple_vote_delta"
	CounterRankedDelta           = "counter.ranked_delta"
	CounterCommentCountDelta     = "counter.comment_count_delta"
	CounterCommentLikeToggled    = "counter.comment_like_toggled"
	CounterCommentDislikeToggled = "counter.comment_dislike_toggled"
)

// SimpleVoteDelta adjusts option.simple_votes by one.
type SimpleVoteDelta struct {
	PollID   string `json:"poll_id"`
	OptionID string `json:"option_id"`
	AuthorID string `json:"author_id"`
	Created  bool   `json:"created"`
}

// RankedDelta is one whole ballot. Ranked=true adds points to ranked_points;
// Ranked=false bumps preferential_votes[points] by one per option.
type RankedDelta struct {
	PollID         string         `json:"poll_id"`
	AuthorID       string         `json:"author_id"`
	OptionToPoints map[string]int `json:"option_to_points"`
	Created        bool           `json:"created"`
	Ranked         bool           `json:"ranked"`
}

// CommentCountDelta adjusts poll.comments_count by one.
type CommentCountDelta struct {
	PollID    string `json:"poll_id"`
	CommentID string `json:"comment_id"`
	Created   bool   `json:"created"`
}

// ReactionToggled records one like/dislike state transition for an
// (author, comment) pair together with the counter deltas it implies.
type ReactionToggled struct {
	CommentID     string `json:"comment_id"`
	AuthorID      string `json:"author_id"`
	From          string `json:"from"`
	To            string `json:"to"`
	LikesDelta    int    `json:"likes_delta"`
	DislikesDelta int    `json:"dislikes_delta"`
}
