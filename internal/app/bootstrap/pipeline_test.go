package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	eventsv1 "altvote/contracts/events/v1"
	"altvote/internal/platform/config"
	"altvote/internal/platform/db/dbtest"
	"altvote/internal/platform/messaging"

	"github.com/golang-jwt/jwt/v5"
)

// syncBus delivers each published envelope to its subscribers before
// Publish returns, which keeps the pipeline deterministic under test.
type syncBus struct {
	handlers map[string][]messaging.Handler
}

func (b *syncBus) Publish(ctx context.Context, topic string, event eventsv1.Envelope) error {
	for _, handler := range b.handlers[topic] {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (b *syncBus) Subscribe(_ context.Context, topic string, _ string, handler messaging.Handler) error {
	b.handlers[topic] = append(b.handlers[topic], handler)
	return nil
}

type pipeline struct {
	api    http.Handler
	worker *WorkerApp
	bus    *syncBus
}

func newPipeline(t *testing.T) pipeline {
	t.Helper()
	gdb := dbtest.Open(t)
	cfg := config.Config{
		JWTSecret:          "pipeline-secret",
		VoteRateLimitRPS:   100,
		VoteRateLimitBurst: 100,
		OutboxBatchSize:    50,
		DedupTTL:           time.Hour,
	}
	bus := &syncBus{handlers: map[string][]messaging.Handler{}}
	worker := newWorker(gdb, bus, cfg, nil)
	if err := worker.consumer.Start(context.Background()); err != nil {
		t.Fatalf("start consumer: %v", err)
	}
	return pipeline{
		api:    newAPIServer(gdb, cfg, nil).Handler(),
		worker: worker,
		bus:    bus,
	}
}

func (p pipeline) call(t *testing.T, method string, path string, user string, body any, out any) int {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   user,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString([]byte("pipeline-secret"))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	p.api.ServeHTTP(rr, req)
	if out != nil && rr.Code < 300 {
		if err := json.Unmarshal(rr.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, path, err, rr.Body.String())
		}
	}
	return rr.Code
}

type optionResult struct {
	OptionID          string         `json:"option_id"`
	SimpleVotes       int            `json:"simple_votes"`
	RankedPoints      int            `json:"ranked_points"`
	PreferentialVotes map[string]int `json:"preferential_votes"`
}

type resultsBody struct {
	Options []optionResult `json:"options"`
}

func byOption(results resultsBody) map[string]optionResult {
	out := make(map[string]optionResult, len(results.Options))
	for _, option := range results.Options {
		out[option.OptionID] = option
	}
	return out
}

func createPoll(t *testing.T, p pipeline) (string, []string) {
	t.Helper()
	var poll struct {
		PollID  string `json:"poll_id"`
		Options []struct {
			OptionID string `json:"option_id"`
		} `json:"options"`
	}
	status := p.call(t, http.MethodPost, "/api/v1/polls", "author-1", map[string]any{
		"title":   "Best editor",
		"options": []map[string]string{{"label": "vim"}, {"label": "emacs"}, {"label": "nano"}},
	}, &poll)
	if status != http.StatusCreated || len(poll.Options) != 3 {
		t.Fatalf("create poll: status %d, %#v", status, poll)
	}
	ids := make([]string, 0, 3)
	for _, option := range poll.Options {
		ids = append(ids, option.OptionID)
	}
	return poll.PollID, ids
}

func TestVoteCountersFlowThroughOutboxToReconciler(t *testing.T) {
	p := newPipeline(t)
	pollID, options := createPoll(t, p)
	a, b, c := options[0], options[1], options[2]

	if status := p.call(t, http.MethodPost, "/api/v1/polls/"+pollID+"/votes/simple", "voter-1", map[string]string{"option_id": a}, nil); status != http.StatusCreated {
		t.Fatalf("simple vote: status %d", status)
	}
	if status := p.call(t, http.MethodPost, "/api/v1/polls/"+pollID+"/votes/ballot", "voter-1", map[string]any{
		"preferential": true,
		"entries": []map[string]any{
			{"option_id": a, "points": 2},
			{"option_id": b, "points": 1},
			{"option_id": c, "points": 3},
		},
	}, nil); status != http.StatusCreated {
		t.Fatalf("preferential ballot: status %d", status)
	}

	var before resultsBody
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID+"/results", "", nil, &before)
	if byOption(before)[a].SimpleVotes != 0 {
		t.Fatalf("counters must not move before the worker runs: %#v", before)
	}

	if published := p.worker.relayOnce(context.Background()); published != 2 {
		t.Fatalf("expected 2 relayed tasks, got %d", published)
	}

	var after resultsBody
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID+"/results", "", nil, &after)
	counters := byOption(after)
	if counters[a].SimpleVotes != 1 {
		t.Fatalf("expected simple_votes=1 on %s, got %#v", a, counters[a])
	}
	if counters[a].PreferentialVotes["2"] != 1 || counters[b].PreferentialVotes["1"] != 1 || counters[c].PreferentialVotes["3"] != 1 {
		t.Fatalf("unexpected preferential counters: %#v", counters)
	}

	var derived resultsBody
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID+"/results?derived=true", "", nil, &derived)
	if byOption(derived)[a].SimpleVotes != 1 || byOption(derived)[b].PreferentialVotes["1"] != 1 {
		t.Fatalf("derived results disagree with counters: %#v", derived)
	}

	if published := p.worker.relayOnce(context.Background()); published != 0 {
		t.Fatalf("published rows must not be relayed again, got %d", published)
	}

	if status := p.call(t, http.MethodPost, "/api/v1/polls/"+pollID+"/votes/withdraw", "voter-1", map[string]string{"kind": "preferential"}, nil); status != http.StatusOK {
		t.Fatalf("withdraw: status %d", status)
	}
	p.worker.relayOnce(context.Background())
	var withdrawn resultsBody
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID+"/results", "", nil, &withdrawn)
	if got := byOption(withdrawn)[b].PreferentialVotes["1"]; got != 0 {
		t.Fatalf("expected withdrawn preferential count 0, got %d", got)
	}
}

func TestDiscussionCountersFlowThroughOutboxToReconciler(t *testing.T) {
	p := newPipeline(t)
	pollID, _ := createPoll(t, p)

	var comment struct {
		CommentID string `json:"comment_id"`
	}
	if status := p.call(t, http.MethodPost, "/api/v1/polls/"+pollID+"/comments", "u1", map[string]string{"content": "first"}, &comment); status != http.StatusCreated {
		t.Fatalf("create comment: status %d", status)
	}
	for _, path := range []string{"/like", "/dislike", "/like"} {
		if status := p.call(t, http.MethodPost, "/api/v1/comments/"+comment.CommentID+path, "u2", nil, nil); status != http.StatusOK {
			t.Fatalf("toggle %s: status %d", path, status)
		}
	}
	p.worker.relayOnce(context.Background())

	var poll struct {
		CommentsCount int `json:"comments_count"`
	}
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID, "", nil, &poll)
	if poll.CommentsCount != 1 {
		t.Fatalf("expected comments_count=1, got %d", poll.CommentsCount)
	}

	var threads struct {
		Items []struct {
			LikesCount    int `json:"likes_count"`
			DislikesCount int `json:"dislikes_count"`
		} `json:"items"`
	}
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID+"/comments", "", nil, &threads)
	if len(threads.Items) != 1 || threads.Items[0].LikesCount != 1 || threads.Items[0].DislikesCount != 0 {
		t.Fatalf("expected likes=1 dislikes=0, got %#v", threads.Items)
	}

	if status := p.call(t, http.MethodDelete, "/api/v1/comments/"+comment.CommentID, "u1", nil, nil); status != http.StatusOK {
		t.Fatalf("delete comment: status %d", status)
	}
	p.worker.relayOnce(context.Background())
	p.call(t, http.MethodGet, "/api/v1/polls/"+pollID, "", nil, &poll)
	if poll.CommentsCount != 0 {
		t.Fatalf("expected comments_count=0 after delete, got %d", poll.CommentsCount)
	}
}
