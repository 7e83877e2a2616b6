package entities

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	domainerrors "altvote/contexts/polling/discussion-service/domain/errors"
)

const MaxContentLength = 5000

type Comment struct {
	CommentID     string
	PollID        string
	ParentID      string
	AuthorID      string
	Content       string
	LikesCount    int
	DislikesCount int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c Comment) IsReply() bool {
	return c.ParentID != ""
}

// Thread is a top-level comment with its replies.
type Thread struct {
	Comment Comment
	Replies []Comment
}

func NormalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return "", domainerrors.ErrInvalidCommentInput
	}
	return content, nil
}

// CheckParent enforces the single nesting level: a reply's parent must be a
// top-level comment on the same poll.
func CheckParent(parent Comment, pollID string) error {
	if parent.IsReply() || parent.PollID != pollID {
		return domainerrors.ErrInvalidParent
	}
	return nil
}

// BuildThreads orders top-level comments newest first and replies oldest
// first. Replies whose parent is missing from the input are dropped.
func BuildThreads(comments []Comment) []Thread {
	threads := make([]Thread, 0)
	index := make(map[string]int)
	for _, comment := range comments {
		if comment.IsReply() {
			continue
		}
		index[comment.CommentID] = len(threads)
		threads = append(threads, Thread{Comment: comment, Replies: []Comment{}})
	}
	for _, comment := range comments {
		if !comment.IsReply() {
			continue
		}
		if i, ok := index[comment.ParentID]; ok {
			threads[i].Replies = append(threads[i].Replies, comment)
		}
	}

	sort.SliceStable(threads, func(i, j int) bool {
		a, b := threads[i].Comment, threads[j].Comment
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.CommentID > b.CommentID
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	for i := range threads {
		replies := threads[i].Replies
		sort.SliceStable(replies, func(a, b int) bool {
			if replies[a].CreatedAt.Equal(replies[b].CreatedAt) {
				return replies[a].CommentID < replies[b].CommentID
			}
			return replies[a].CreatedAt.Before(replies[b].CreatedAt)
		})
	}
	return threads
}
