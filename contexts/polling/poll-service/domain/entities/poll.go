package entities

import (
	"strings"
	"time"

	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
)

const (
	MinOptions        = 2
	MaxOptions        = 32
	MaxTitleLength    = 255
	MaxLabelLength    = 255
	MaxDescriptionLen = 5000
	MaxCategoryName   = 120
)

type Poll struct {
	PollID        string
	AuthorID      string
	Title         string
	Description   string
	EndsAt        *time.Time
	Confirmed     bool
	CommentsCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Option counters are read-only here; the counter reconciler owns them.
type Option struct {
	OptionID          string
	PollID            string
	Position          int
	Label             string
	ImageURL          string
	SimpleVotes       int
	RankedPoints      int
	PreferentialVotes map[int]int
}

type Category struct {
	CategoryID string
	Name       string
	CreatedAt  time.Time
}

// PollDetails is the poll aggregate as clients see it.
type PollDetails struct {
	Poll       Poll
	Options    []Option
	Categories []Category
}

type OptionDraft struct {
	Label    string
	ImageURL string
}

// PollDraft is the writable part of a poll, shared by create and update.
type PollDraft struct {
	Title       string
	Description string
	EndsAt      *time.Time
	Options     []OptionDraft
	CategoryIDs []string
}

// Normalize trims text fields and drops duplicate category ids.
func (d PollDraft) Normalize() PollDraft {
	out := PollDraft{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Options:     make([]OptionDraft, 0, len(d.Options)),
		CategoryIDs: make([]string, 0, len(d.CategoryIDs)),
	}
	if d.EndsAt != nil {
		endsAt := d.EndsAt.UTC()
		out.EndsAt = &endsAt
	}
	for _, option := range d.Options {
		out.Options = append(out.Options, OptionDraft{
			Label:    strings.TrimSpace(option.Label),
			ImageURL: strings.TrimSpace(option.ImageURL),
		})
	}
	seen := make(map[string]struct{}, len(d.CategoryIDs))
	for _, id := range d.CategoryIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out.CategoryIDs = append(out.CategoryIDs, id)
	}
	return out
}

// Validate expects a normalized draft.
func (d PollDraft) Validate() error {
	if d.Title == "" || len(d.Title) > MaxTitleLength {
		return domainerrors.ErrInvalidPollInput
	}
	if len(d.Description) > MaxDescriptionLen {
		return domainerrors.ErrInvalidPollInput
	}
	if len(d.Options) < MinOptions || len(d.Options) > MaxOptions {
		return domainerrors.ErrInvalidPollInput
	}
	labels := make(map[string]struct{}, len(d.Options))
	for _, option := range d.Options {
		if option.Label == "" || len(option.Label) > MaxLabelLength {
			return domainerrors.ErrInvalidPollInput
		}
		key := strings.ToLower(option.Label)
		if _, ok := labels[key]; ok {
			return domainerrors.ErrInvalidPollInput
		}
		labels[key] = struct{}{}
	}
	return nil
}

func NormalizeCategoryName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}
