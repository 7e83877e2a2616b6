package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BallotErrorResponse names the offending ballot entry.
type BallotErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	OptionID string `json:"option_id,omitempty"`
	Points   *int   `json:"points,omitempty"`
}

type SimpleVoteRequest struct {
	OptionID string `json:"option_id"`
}

type BallotEntryRequest struct {
	OptionID string `json:"option_id"`
	Points   int    `json:"points"`
}

type BallotRequest struct {
	Preferential bool                 `json:"preferential"`
	Entries      []BallotEntryRequest `json:"entries"`
}

type WithdrawRequest struct {
	Kind string `json:"kind"`
}

type SimpleVoteResponse struct {
	VoteID    string    `json:"vote_id"`
	PollID    string    `json:"poll_id"`
	OptionID  string    `json:"option_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

type RankedVoteResponse struct {
	VoteID       string    `json:"vote_id"`
	PollID       string    `json:"poll_id"`
	OptionID     string    `json:"option_id"`
	AuthorID     string    `json:"author_id"`
	Points       int       `json:"points"`
	Preferential bool      `json:"preferential"`
	CreatedAt    time.Time `json:"created_at"`
}

type BallotResponse struct {
	PollID       string               `json:"poll_id"`
	Preferential bool                 `json:"preferential"`
	Votes        []RankedVoteResponse `json:"votes"`
}

type WithdrawResponse struct {
	PollID       string `json:"poll_id"`
	Kind         string `json:"kind"`
	DeletedCount int    `json:"deleted_count"`
}

type OptionResultResponse struct {
	OptionID          string      `json:"option_id"`
	Label             string      `json:"label"`
	Position          int         `json:"position"`
	SimpleVotes       int         `json:"simple_votes"`
	RankedPoints      int         `json:"ranked_points"`
	PreferentialVotes map[int]int `json:"preferential_votes"`
}

type PollResultsResponse struct {
	PollID  string                 `json:"poll_id"`
	Source  string                 `json:"source"`
	Options []OptionResultResponse `json:"options"`
}

type MyVotesResponse struct {
	PollID       string               `json:"poll_id"`
	Simple       []SimpleVoteResponse `json:"simple"`
	Ranked       []RankedVoteResponse `json:"ranked"`
	Preferential []RankedVoteResponse `json:"preferential"`
}
