package queries

import (
	"context"
	"errors"
	"testing"
	"time"

	"altvote/contexts/polling/poll-service/adapters/memory"
	"altvote/contexts/polling/poll-service/domain/entities"
	domainerrors "altvote/contexts/polling/poll-service/domain/errors"
	"altvote/contexts/polling/poll-service/ports"
)

var base = time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)

func seed() []entities.PollDetails {
	food := entities.Category{CategoryID: "cat-food", Name: "Food", CreatedAt: base}
	poll := func(id string, author string, offset time.Duration, categories ...entities.Category) entities.PollDetails {
		return entities.PollDetails{
			Poll: entities.Poll{PollID: id, AuthorID: author, Title: id, CreatedAt: base.Add(offset), UpdatedAt: base.Add(offset)},
			Options: []entities.Option{
				{OptionID: id + "-a", PollID: id, Position: 1, Label: "a"},
				{OptionID: id + "-b", PollID: id, Position: 2, Label: "b"},
			},
			Categories: categories,
		}
	}
	return []entities.PollDetails{
		poll("p1", "alice", 0, food),
		poll("p2", "bob", time.Hour),
		poll("p3", "alice", 2*time.Hour, food),
	}
}

func TestListPollsNewestFirstWithFilters(t *testing.T) {
	store := memory.NewStore(seed())
	uc := PollQueryUseCase{Polls: store, Categories: store}
	ctx := context.Background()

	all, err := uc.ListPolls(ctx, ports.PollFilter{})
	if err != nil || len(all) != 3 || all[0].Poll.PollID != "p3" || all[2].Poll.PollID != "p1" {
		t.Fatalf("expected newest first, got %#v (%v)", all, err)
	}

	byCategory, err := uc.ListPolls(ctx, ports.PollFilter{CategoryID: " cat-food "})
	if err != nil || len(byCategory) != 2 {
		t.Fatalf("expected two food polls, got %d (%v)", len(byCategory), err)
	}

	byAuthor, err := uc.ListPolls(ctx, ports.PollFilter{AuthorID: "bob"})
	if err != nil || len(byAuthor) != 1 || byAuthor[0].Poll.PollID != "p2" {
		t.Fatalf("expected bob's poll only, got %#v (%v)", byAuthor, err)
	}

	paged, err := uc.ListPolls(ctx, ports.PollFilter{Limit: 1, Offset: 1})
	if err != nil || len(paged) != 1 || paged[0].Poll.PollID != "p2" {
		t.Fatalf("expected second page to hold p2, got %#v (%v)", paged, err)
	}
}

func TestGetPollShowsReconciledCounters(t *testing.T) {
	store := memory.NewStore(seed())
	uc := PollQueryUseCase{Polls: store, Categories: store}

	store.SetOptionCounters("p1-b", 4, 9)
	details, err := uc.GetPoll(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get poll failed: %v", err)
	}
	if details.Options[1].SimpleVotes != 4 || details.Options[1].RankedPoints != 9 {
		t.Fatalf("expected counters on option b, got %#v", details.Options[1])
	}

	if _, err := uc.GetPoll(context.Background(), "missing"); !errors.Is(err, domainerrors.ErrPollNotFound) {
		t.Fatalf("expected ErrPollNotFound, got %v", err)
	}
}
