package memory

import (
	"context"
	"sync"
	"time"

	"altvote/contexts/polling/counter-reconciler/domain/entities"
	domainerrors "altvote/contexts/polling/counter-reconciler/domain/errors"
	"altvote/contexts/polling/counter-reconciler/ports"
)

type OptionCounters struct {
	SimpleVotes       int
	RankedPoints      int
	PreferentialVotes map[int]int
}

type ReactionCounters struct {
	Likes    int
	Dislikes int
}

// Store holds counters in memory. ApplyOnce runs under the store lock and
// restores a snapshot if fn fails.
type Store struct {
	mu sync.Mutex

	options      map[string]OptionCounters
	polls        map[string]int
	comments     map[string]ReactionCounters
	reservations map[string]entities.Reservation
}

func NewStore() *Store {
	return &Store{
		options:      make(map[string]OptionCounters),
		polls:        make(map[string]int),
		comments:     make(map[string]ReactionCounters),
		reservations: make(map[string]entities.Reservation),
	}
}

func (s *Store) PutOption(optionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[optionID] = OptionCounters{PreferentialVotes: map[int]int{}}
}

func (s *Store) PutPoll(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[pollID] = 0
}

func (s *Store) PutComment(commentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[commentID] = ReactionCounters{}
}

func (s *Store) Option(optionID string) OptionCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	counters := s.options[optionID]
	counters.SimpleVotes = entities.Visible(counters.SimpleVotes)
	counters.RankedPoints = entities.Visible(counters.RankedPoints)
	counters.PreferentialVotes = copyPositions(counters.PreferentialVotes)
	for position, count := range counters.PreferentialVotes {
		counters.PreferentialVotes[position] = entities.Visible(count)
	}
	return counters
}

func (s *Store) CommentsCount(pollID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.Visible(s.polls[pollID])
}

func (s *Store) Reactions(commentID string) ReactionCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	counters := s.comments[commentID]
	return ReactionCounters{
		Likes:    entities.Visible(counters.Likes),
		Dislikes: entities.Visible(counters.Dislikes),
	}
}

func (s *Store) ApplyOnce(ctx context.Context, reservation entities.Reservation, fn func(ctx context.Context, w ports.CounterWriter) error) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.reservations[reservation.EventID]; ok && existing.ExpiresAt.After(reservation.ProcessedAt) {
		if existing.PayloadHash != reservation.PayloadHash {
			return false, domainerrors.ErrDedupConflict
		}
		return true, nil
	}

	options := make(map[string]OptionCounters, len(s.options))
	for id, counters := range s.options {
		counters.PreferentialVotes = copyPositions(counters.PreferentialVotes)
		options[id] = counters
	}
	polls := make(map[string]int, len(s.polls))
	for id, count := range s.polls {
		polls[id] = count
	}
	comments := make(map[string]ReactionCounters, len(s.comments))
	for id, counters := range s.comments {
		comments[id] = counters
	}

	if err := fn(ctx, writer{store: s}); err != nil {
		s.options = options
		s.polls = polls
		s.comments = comments
		return false, err
	}
	s.reservations[reservation.EventID] = reservation
	return false, nil
}

func (s *Store) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, reservation := range s.reservations {
		if !reservation.ExpiresAt.After(now) {
			delete(s.reservations, id)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

// writer runs with Store.mu held.
type writer struct {
	store *Store
}

func (w writer) AddSimpleVotes(_ context.Context, optionID string, delta int) (bool, error) {
	counters, ok := w.store.options[optionID]
	if !ok {
		return false, nil
	}
	counters.SimpleVotes = counters.SimpleVotes + delta
	w.store.options[optionID] = counters
	return true, nil
}

func (w writer) AddRankedPoints(_ context.Context, optionID string, delta int) (bool, error) {
	counters, ok := w.store.options[optionID]
	if !ok {
		return false, nil
	}
	counters.RankedPoints = counters.RankedPoints + delta
	w.store.options[optionID] = counters
	return true, nil
}

func (w writer) AddPreferentialPosition(_ context.Context, optionID string, position int, delta int) (bool, error) {
	counters, ok := w.store.options[optionID]
	if !ok {
		return false, nil
	}
	counters.PreferentialVotes = entities.ApplyPosition(counters.PreferentialVotes, position, delta)
	w.store.options[optionID] = counters
	return true, nil
}

func (w writer) AddCommentsCount(_ context.Context, pollID string, delta int) (bool, error) {
	count, ok := w.store.polls[pollID]
	if !ok {
		return false, nil
	}
	w.store.polls[pollID] = count + delta
	return true, nil
}

func (w writer) AddReactionCounts(_ context.Context, commentID string, likesDelta int, dislikesDelta int) (bool, error) {
	counters, ok := w.store.comments[commentID]
	if !ok {
		return false, nil
	}
	counters.Likes = counters.Likes + likesDelta
	counters.Dislikes = counters.Dislikes + dislikesDelta
	w.store.comments[commentID] = counters
	return true, nil
}

func copyPositions(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ ports.CounterStore = (*Store)(nil)
