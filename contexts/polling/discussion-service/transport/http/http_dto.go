package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateCommentRequest struct {
	Content  string `json:"content"`
	ParentID string `json:"parent_id,omitempty"`
}

type UpdateCommentRequest struct {
	Content string `json:"content"`
}

type CommentResponse struct {
	CommentID     string    `json:"comment_id"`
	PollID        string    `json:"poll_id"`
	ParentID      string    `json:"parent_id,omitempty"`
	AuthorID      string    `json:"author_id"`
	Content       string    `json:"content"`
	LikesCount    int       `json:"likes_count"`
	DislikesCount int       `json:"dislikes_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ThreadResponse struct {
	CommentResponse
	Replies []CommentResponse `json:"replies"`
}

type ListCommentsResponse struct {
	Items []ThreadResponse `json:"items"`
}

type DeleteCommentResponse struct {
	CommentID    string `json:"comment_id"`
	DeletedCount int    `json:"deleted_count"`
}

type ReactionResponse struct {
	CommentID string `json:"comment_id"`
	State     string `json:"state"`
}
