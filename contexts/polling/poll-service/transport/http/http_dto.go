package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionRequest struct {
	Label    string `json:"label"`
	ImageURL string `json:"image_url,omitempty"`
}

// PollRequest is used for both create and full replacement.
type PollRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	EndDatetime *time.Time      `json:"end_datetime,omitempty"`
	Options     []OptionRequest `json:"options"`
	CategoryIDs []string        `json:"category_ids"`
}

type ConfirmPollRequest struct {
	Confirmed bool `json:"confirmed"`
}

type CategoryRequest struct {
	Name string `json:"name"`
}

type OptionResponse struct {
	OptionID          string      `json:"option_id"`
	Position          int         `json:"position"`
	Label             string      `json:"label"`
	ImageURL          string      `json:"image_url,omitempty"`
	SimpleVotes       int         `json:"simple_votes"`
	RankedPoints      int         `json:"ranked_points"`
	PreferentialVotes map[int]int `json:"preferential_votes"`
}

type CategoryResponse struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type PollResponse struct {
	PollID        string             `json:"poll_id"`
	AuthorID      string             `json:"author_id"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	EndDatetime   *time.Time         `json:"end_datetime,omitempty"`
	Confirmed     bool               `json:"confirmed"`
	CommentsCount int                `json:"comments_count"`
	Options       []OptionResponse   `json:"options,omitempty"`
	Categories    []CategoryResponse `json:"categories"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

type ListPollsResponse struct {
	Items []PollResponse `json:"items"`
}

type ListCategoriesResponse struct {
	Items []CategoryResponse `json:"items"`
}
