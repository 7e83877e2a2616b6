package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"altvote/contexts/polling/poll-service/domain/entities"
	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	polls         map[string]entities.Poll
	options       map[string][]entities.Option
	categories    map[string]entities.Category
	pollCategory  map[string][]string
	categoryNames map[string]string
}

func NewStore(seed []entities.PollDetails) *Store {
	store := &Store{
		polls:         make(map[string]entities.Poll),
		options:       make(map[string][]entities.Option),
		categories:    make(map[string]entities.Category),
		pollCategory:  make(map[string][]string),
		categoryNames: make(map[string]string),
	}
	for _, details := range seed {
		for _, category := range details.Categories {
			store.putCategory(category)
		}
		store.putPoll(details.Poll, details.Options, categoryIDs(details.Categories))
	}
	return store
}

func (s *Store) CreatePoll(_ context.Context, details entities.PollDetails) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.polls[details.Poll.PollID]; exists {
		return domainerrors.ErrInvalidPollInput
	}
	s.putPoll(details.Poll, details.Options, categoryIDs(details.Categories))
	return nil
}

func (s *Store) ReplacePoll(_ context.Context, poll entities.Poll, options []entities.Option, categoryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.polls[poll.PollID]
	if !ok {
		return domainerrors.ErrPollNotFound
	}
	// comments_count belongs to the reconciler and survives replacement.
	poll.CommentsCount = current.CommentsCount
	s.putPoll(poll, options, categoryIDs)
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.PollDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.PollDetails{}, domainerrors.ErrPollNotFound
	}
	return s.details(poll), nil
}

func (s *Store) ListPolls(_ context.Context, filter ports.PollFilter) ([]entities.PollDetails, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Poll, 0, len(s.polls))
	for _, poll := range s.polls {
		if filter.AuthorID != "" && poll.AuthorID != filter.AuthorID {
			continue
		}
		if filter.CategoryID != "" && !containsString(s.pollCategory[poll.PollID], filter.CategoryID) {
			continue
		}
		items = append(items, poll)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].PollID > items[j].PollID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if filter.Offset >= len(items) {
		return []entities.PollDetails{}, nil
	}
	items = items[filter.Offset:]
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	out := make([]entities.PollDetails, 0, len(items))
	for _, poll := range items {
		out = append(out, s.details(poll))
	}
	return out, nil
}

func (s *Store) DeletePoll(_ context.Context, pollID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pollID = strings.TrimSpace(pollID)
	if _, ok := s.polls[pollID]; !ok {
		return domainerrors.ErrPollNotFound
	}
	delete(s.polls, pollID)
	delete(s.options, pollID)
	delete(s.pollCategory, pollID)
	return nil
}

func (s *Store) SetConfirmed(_ context.Context, pollID string, confirmed bool, updatedAt time.Time) (entities.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	poll.Confirmed = confirmed
	poll.UpdatedAt = updatedAt.UTC()
	s.polls[poll.PollID] = poll
	return poll, nil
}

func (s *Store) CreateCategory(_ context.Context, category entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categoryNames[strings.ToLower(category.Name)]; exists {
		return domainerrors.ErrCategoryExists
	}
	s.putCategory(category)
	return nil
}

func (s *Store) GetCategoryByName(_ context.Context, name string) (entities.Category, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.categoryNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return entities.Category{}, false, nil
	}
	return s.categories[id], true, nil
}

func (s *Store) FindCategories(_ context.Context, ids []string) ([]entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Category, 0, len(ids))
	for _, id := range ids {
		if category, ok := s.categories[id]; ok {
			items = append(items, category)
		}
	}
	return items, nil
}

func (s *Store) ListCategories(_ context.Context) ([]entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Category, 0, len(s.categories))
	for _, category := range s.categories {
		items = append(items, category)
	}
	sortCategories(items)
	return items, nil
}

// SetOptionCounters lets tests stand in for the reconciler.
func (s *Store) SetOptionCounters(optionID string, simpleVotes int, rankedPoints int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for pollID, options := range s.options {
		for index := range options {
			if options[index].OptionID == optionID {
				options[index].SimpleVotes = simpleVotes
				options[index].RankedPoints = rankedPoints
				s.options[pollID] = options
				return
			}
		}
	}
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) putPoll(poll entities.Poll, options []entities.Option, categoryIDs []string) {
	s.polls[poll.PollID] = poll
	s.options[poll.PollID] = append([]entities.Option(nil), options...)
	s.pollCategory[poll.PollID] = append([]string(nil), categoryIDs...)
}

func (s *Store) putCategory(category entities.Category) {
	s.categories[category.CategoryID] = category
	s.categoryNames[strings.ToLower(category.Name)] = category.CategoryID
}

func (s *Store) details(poll entities.Poll) entities.PollDetails {
	options := append([]entities.Option(nil), s.options[poll.PollID]...)
	sort.Slice(options, func(i, j int) bool { return options[i].Position < options[j].Position })
	categories := make([]entities.Category, 0, len(s.pollCategory[poll.PollID]))
	for _, id := range s.pollCategory[poll.PollID] {
		if category, ok := s.categories[id]; ok {
			categories = append(categories, category)
		}
	}
	sortCategories(categories)
	return entities.PollDetails{Poll: poll, Options: options, Categories: categories}
}

func categoryIDs(categories []entities.Category) []string {
	ids := make([]string, 0, len(categories))
	for _, category := range categories {
		ids = append(ids, category.CategoryID)
	}
	return ids
}

func sortCategories(items []entities.Category) {
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

var _ ports.PollRepository = (*Store)(nil)
var _ ports.CategoryRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
