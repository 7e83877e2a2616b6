package memory

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"altvote/contexts/polling/voting-engine/domain/entities"
	domainerrors "altvote/contexts/polling/voting-engine/domain/errors"
	"altvote/contexts/polling/voting-engine/ports"
	"altvote/internal/shared/outbox"

	"github.com/google/uuid"
)

// Store keeps votes in memory. Transactions hold the write lock for their
// whole duration and roll back by restoring a snapshot.
type Store struct {
	mu sync.Mutex

	polls      map[string]entities.PollSnapshot
	options    map[string]entities.OptionTally
	simple     []entities.SimpleVote
	ranked     []entities.RankedVote
	outboxRows []OutboxRecord
}

type OutboxRecord struct {
	Envelope  ports.EventEnvelope
	Published bool
}

func NewStore() *Store {
	return &Store{
		polls:   make(map[string]entities.PollSnapshot),
		options: make(map[string]entities.OptionTally),
	}
}

// PutPoll registers a poll and its options in display order.
func (s *Store) PutPoll(poll entities.PollSnapshot, options []entities.OptionTally) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll.OptionIDs = poll.OptionIDs[:0:0]
	for i, option := range options {
		if option.Position == 0 {
			option.Position = i + 1
		}
		if option.PreferentialVotes == nil {
			option.PreferentialVotes = map[int]int{}
		}
		s.options[option.OptionID] = option
		poll.OptionIDs = append(poll.OptionIDs, option.OptionID)
	}
	s.polls[poll.PollID] = poll
}

// SetTally overwrites an option's counters, standing in for the reconciler.
func (s *Store) SetTally(tally entities.OptionTally) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.options[tally.OptionID]
	if !ok {
		return
	}
	current.SimpleVotes = tally.SimpleVotes
	current.RankedPoints = tally.RankedPoints
	current.PreferentialVotes = copyPositions(tally.PreferentialVotes)
	s.options[tally.OptionID] = current
}

func (s *Store) Outbox() []ports.EventEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]ports.EventEnvelope, 0, len(s.outboxRows))
	for _, record := range s.outboxRows {
		items = append(items, record.Envelope)
	}
	return items
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.VoteTransaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	simple := append([]entities.SimpleVote(nil), s.simple...)
	ranked := append([]entities.RankedVote(nil), s.ranked...)
	pending := append([]OutboxRecord(nil), s.outboxRows...)
	if err := fn(ctx, &storeTx{store: s}); err != nil {
		s.simple = simple
		s.ranked = ranked
		s.outboxRows = pending
		return err
	}
	return nil
}

func (s *Store) ListOptionTallies(_ context.Context, pollID string) ([]entities.OptionTally, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, ok := s.polls[pollID]
	if !ok {
		return nil, domainerrors.ErrPollNotFound
	}
	items := make([]entities.OptionTally, 0, len(poll.OptionIDs))
	for _, id := range poll.OptionIDs {
		option := s.options[id]
		option.PreferentialVotes = copyPositions(option.PreferentialVotes)
		items = append(items, option)
	}
	return items, nil
}

func (s *Store) ListPollVotes(_ context.Context, pollID string) ([]entities.SimpleVote, []entities.RankedVote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[pollID]; !ok {
		return nil, nil, domainerrors.ErrPollNotFound
	}
	simple := make([]entities.SimpleVote, 0)
	for _, vote := range s.simple {
		if vote.PollID == pollID {
			simple = append(simple, vote)
		}
	}
	ranked := make([]entities.RankedVote, 0)
	for _, vote := range s.ranked {
		if vote.PollID == pollID {
			ranked = append(ranked, vote)
		}
	}
	return simple, ranked, nil
}

func (s *Store) ListAuthorVotes(_ context.Context, pollID string, authorID string) (entities.AuthorVotes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[pollID]; !ok {
		return entities.AuthorVotes{}, domainerrors.ErrPollNotFound
	}
	out := entities.AuthorVotes{
		Simple:       []entities.SimpleVote{},
		Ranked:       []entities.RankedVote{},
		Preferential: []entities.RankedVote{},
	}
	for _, vote := range s.simple {
		if vote.PollID == pollID && vote.AuthorID == authorID {
			out.Simple = append(out.Simple, vote)
		}
	}
	for _, vote := range s.ranked {
		if vote.PollID != pollID || vote.AuthorID != authorID {
			continue
		}
		if vote.Mode.Preferential() {
			out.Preferential = append(out.Preferential, vote)
		} else {
			out.Ranked = append(out.Ranked, vote)
		}
	}
	sortByPoints(out.Ranked)
	sortByPoints(out.Preferential)
	return out, nil
}

// ListPendingOutbox serves the shared relay. The event id doubles as the
// outbox id.
func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]outbox.Message, 0)
	for _, record := range s.outboxRows {
		if record.Published {
			continue
		}
		payload, err := json.Marshal(record.Envelope)
		if err != nil {
			return nil, err
		}
		items = append(items, outbox.Message{
			OutboxID:     record.Envelope.EventID,
			EventType:    record.Envelope.EventType,
			PartitionKey: record.Envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    record.Envelope.OccurredAt,
		})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, eventID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outboxRows {
		if s.outboxRows[i].Envelope.EventID == eventID {
			s.outboxRows[i].Published = true
			return nil
		}
	}
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

// storeTx runs with Store.mu already held.
type storeTx struct {
	store *Store
}

func (t *storeTx) LockPoll(_ context.Context, pollID string) (entities.PollSnapshot, error) {
	poll, ok := t.store.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.PollSnapshot{}, domainerrors.ErrPollNotFound
	}
	poll.OptionIDs = append([]string(nil), poll.OptionIDs...)
	return poll, nil
}

func (t *storeTx) FindSimpleVotes(_ context.Context, pollID string, authorID string) ([]entities.SimpleVote, error) {
	items := make([]entities.SimpleVote, 0)
	for _, vote := range t.store.simple {
		if vote.PollID == pollID && vote.AuthorID == authorID {
			items = append(items, vote)
		}
	}
	return items, nil
}

func (t *storeTx) InsertSimpleVote(_ context.Context, vote entities.SimpleVote) error {
	t.store.simple = append(t.store.simple, vote)
	return nil
}

func (t *storeTx) DeleteSimpleVotes(_ context.Context, pollID string, authorID string) ([]entities.SimpleVote, error) {
	removed := make([]entities.SimpleVote, 0)
	kept := t.store.simple[:0:0]
	for _, vote := range t.store.simple {
		if vote.PollID == pollID && vote.AuthorID == authorID {
			removed = append(removed, vote)
			continue
		}
		kept = append(kept, vote)
	}
	t.store.simple = kept
	return removed, nil
}

func (t *storeTx) FindRankedVotes(_ context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error) {
	items := make([]entities.RankedVote, 0)
	for _, vote := range t.store.ranked {
		if vote.PollID == pollID && vote.AuthorID == authorID && vote.Mode == mode {
			items = append(items, vote)
		}
	}
	return items, nil
}

func (t *storeTx) InsertRankedVotes(_ context.Context, votes []entities.RankedVote) error {
	t.store.ranked = append(t.store.ranked, votes...)
	return nil
}

func (t *storeTx) DeleteRankedVotes(_ context.Context, pollID string, authorID string, mode entities.BallotMode) ([]entities.RankedVote, error) {
	removed := make([]entities.RankedVote, 0)
	kept := t.store.ranked[:0:0]
	for _, vote := range t.store.ranked {
		if vote.PollID == pollID && vote.AuthorID == authorID && vote.Mode == mode {
			removed = append(removed, vote)
			continue
		}
		kept = append(kept, vote)
	}
	t.store.ranked = kept
	return removed, nil
}

func (t *storeTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	t.store.outboxRows = append(t.store.outboxRows, OutboxRecord{Envelope: envelope})
	return nil
}

func sortByPoints(votes []entities.RankedVote) {
	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].Points < votes[j].Points
	})
}

func copyPositions(in map[int]int) map[int]int {
	out := make(map[int]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ ports.VoteRepository = (*Store)(nil)
var _ outbox.Store = (*Store)(nil)
