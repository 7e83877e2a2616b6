package memory

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"altvote/contexts/polling/discussion-service/domain/entities"
	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
	"altvote/contexts/polling/discussion-service/ports"
	"altvote/internal/shared/outbox"

	"github.com/google/uuid"
)

type reactionKey struct {
	commentID string
	authorID  string
}

type Store struct {
	mu sync.Mutex

	polls     map[string]bool
	comments  map[string]entities.Comment
	likes     map[reactionKey]time.Time
	dislikes  map[reactionKey]time.Time
	events    []ports.EventEnvelope
	published map[string]bool
}

func NewStore(pollIDs ...string) *Store {
	store := &Store{
		polls:     make(map[string]bool),
		comments:  make(map[string]entities.Comment),
		likes:     make(map[reactionKey]time.Time),
		dislikes:  make(map[reactionKey]time.Time),
		published: make(map[string]bool),
	}
	for _, id := range pollIDs {
		store.polls[id] = true
	}
	return store
}

func (s *Store) PutPoll(pollID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.polls[pollID] = true
}

func (s *Store) Outbox() []ports.EventEnvelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.EventEnvelope(nil), s.events...)
}

func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context, tx ports.CommentTransaction) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	comments := make(map[string]entities.Comment, len(s.comments))
	for k, v := range s.comments {
		comments[k] = v
	}
	likes := copyReactions(s.likes)
	dislikes := copyReactions(s.dislikes)
	events := append([]ports.EventEnvelope(nil), s.events...)

	if err := fn(ctx, &storeTx{store: s}); err != nil {
		s.comments = comments
		s.likes = likes
		s.dislikes = dislikes
		s.events = events
		return err
	}
	return nil
}

func (s *Store) GetComment(_ context.Context, commentID string) (entities.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[commentID]
	if !ok {
		return entities.Comment{}, domainerrors.ErrCommentNotFound
	}
	return comment, nil
}

func (s *Store) ListComments(_ context.Context, pollID string) ([]entities.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.polls[pollID] {
		return nil, domainerrors.ErrPollNotFound
	}
	items := make([]entities.Comment, 0)
	for _, comment := range s.comments {
		if comment.PollID == pollID {
			items = append(items, comment)
		}
	}
	return items, nil
}

func (s *Store) GetReactionState(_ context.Context, commentID string, authorID string) (entities.ReactionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reactionState(commentID, authorID)
}

// SetCounts stands in for the reconciler in tests.
func (s *Store) SetCounts(commentID string, likes int, dislikes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	comment, ok := s.comments[commentID]
	if !ok {
		return
	}
	comment.LikesCount = likes
	comment.DislikesCount = dislikes
	s.comments[commentID] = comment
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]outbox.Message, 0)
	for _, envelope := range s.events {
		if s.published[envelope.EventID] {
			continue
		}
		payload, err := json.Marshal(envelope)
		if err != nil {
			return nil, err
		}
		items = append(items, outbox.Message{
			OutboxID:     envelope.EventID,
			EventType:    envelope.EventType,
			PartitionKey: envelope.PartitionKey,
			Payload:      payload,
			CreatedAt:    envelope.OccurredAt,
		})
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published[outboxID] = true
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *Store) reactionState(commentID string, authorID string) (entities.ReactionState, error) {
	key := reactionKey{commentID: commentID, authorID: authorID}
	_, liked := s.likes[key]
	_, disliked := s.dislikes[key]
	return entities.StateOf(liked, disliked)
}

// storeTx runs with Store.mu held, which also stands in for the comment
// row lock.
type storeTx struct {
	store *Store
}

func (t *storeTx) PollExists(_ context.Context, pollID string) (bool, error) {
	return t.store.polls[pollID], nil
}

func (t *storeTx) GetComment(_ context.Context, commentID string) (entities.Comment, error) {
	comment, ok := t.store.comments[commentID]
	if !ok {
		return entities.Comment{}, domainerrors.ErrCommentNotFound
	}
	return comment, nil
}

func (t *storeTx) LockComment(ctx context.Context, commentID string) (entities.Comment, error) {
	return t.GetComment(ctx, commentID)
}

func (t *storeTx) InsertComment(_ context.Context, comment entities.Comment) error {
	t.store.comments[comment.CommentID] = comment
	return nil
}

func (t *storeTx) UpdateCommentContent(_ context.Context, commentID string, content string, updatedAt time.Time) error {
	comment, ok := t.store.comments[commentID]
	if !ok {
		return domainerrors.ErrCommentNotFound
	}
	comment.Content = content
	comment.UpdatedAt = updatedAt
	t.store.comments[commentID] = comment
	return nil
}

func (t *storeTx) ListReplies(_ context.Context, parentID string) ([]entities.Comment, error) {
	items := make([]entities.Comment, 0)
	for _, comment := range t.store.comments {
		if comment.ParentID == parentID {
			items = append(items, comment)
		}
	}
	return items, nil
}

func (t *storeTx) DeleteComments(_ context.Context, commentIDs []string) error {
	for _, id := range commentIDs {
		delete(t.store.comments, id)
		for key := range t.store.likes {
			if key.commentID == id {
				delete(t.store.likes, key)
			}
		}
		for key := range t.store.dislikes {
			if key.commentID == id {
				delete(t.store.dislikes, key)
			}
		}
	}
	return nil
}

func (t *storeTx) ReactionState(_ context.Context, commentID string, authorID string) (entities.ReactionState, error) {
	return t.store.reactionState(commentID, authorID)
}

func (t *storeTx) ApplyReaction(_ context.Context, commentID string, authorID string, transition entities.Transition, at time.Time) error {
	key := reactionKey{commentID: commentID, authorID: authorID}
	delete(t.store.likes, key)
	delete(t.store.dislikes, key)
	switch transition.To {
	case entities.ReactionLiked:
		t.store.likes[key] = at
	case entities.ReactionDisliked:
		t.store.dislikes[key] = at
	}
	return nil
}

func (t *storeTx) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	t.store.events = append(t.store.events, envelope)
	return nil
}

func copyReactions(in map[reactionKey]time.Time) map[reactionKey]time.Time {
	out := make(map[reactionKey]time.Time, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

var _ ports.CommentRepository = (*Store)(nil)
var _ outbox.Store = (*Store)(nil)
