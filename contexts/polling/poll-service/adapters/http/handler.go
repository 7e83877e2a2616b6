package httpadapter

import (
	"context"
	"log/slog"

	"altvote/contexts/polling/poll-service/application/commands"
	"altvote/contexts/polling/poll-service/application/queries"
	"altvote/contexts/polling/poll-service/domain/entities"
	"altvote/contexts/polling/poll-service/ports"
	httptransport "altvote/contexts/polling/poll-service/transport/http"
)

type Handler struct {
	Polls      commands.PollUseCase
	Categories commands.CategoryUseCase
	Queries    queries.PollQueryUseCase
	Logger     *slog.Logger
}

func (h Handler) CreatePollHandler(ctx context.Context, userID string, req httptransport.PollRequest) (httptransport.PollResponse, error) {
	details, err := h.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		AuthorID: userID,
		Draft:    draftFromRequest(req),
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPollDetails(details), nil
}

func (h Handler) UpdatePollHandler(ctx context.Context, userID string, pollID string, req httptransport.PollRequest) (httptransport.PollResponse, error) {
	details, err := h.Polls.UpdatePoll(ctx, commands.UpdatePollCommand{
		PollID:  pollID,
		ActorID: userID,
		Draft:   draftFromRequest(req),
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPollDetails(details), nil
}

func (h Handler) DeletePollHandler(ctx context.Context, userID string, isAdmin bool, pollID string) error {
	return h.Polls.DeletePoll(ctx, commands.DeletePollCommand{
		PollID:       pollID,
		ActorID:      userID,
		ActorIsAdmin: isAdmin,
	})
}

func (h Handler) ConfirmPollHandler(
	ctx context.Context,
	userID string,
	isAdmin bool,
	pollID string,
	req httptransport.ConfirmPollRequest,
) (httptransport.PollResponse, error) {
	poll, err := h.Polls.ConfirmPoll(ctx, commands.ConfirmPollCommand{
		PollID:       pollID,
		ActorID:      userID,
		ActorIsAdmin: isAdmin,
		Confirmed:    req.Confirmed,
	})
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPoll(poll), nil
}

func (h Handler) GetPollHandler(ctx context.Context, pollID string) (httptransport.PollResponse, error) {
	details, err := h.Queries.GetPoll(ctx, pollID)
	if err != nil {
		return httptransport.PollResponse{}, err
	}
	return mapPollDetails(details), nil
}

func (h Handler) ListPollsHandler(ctx context.Context, filter ports.PollFilter) (httptransport.ListPollsResponse, error) {
	items, err := h.Queries.ListPolls(ctx, filter)
	if err != nil {
		return httptransport.ListPollsResponse{}, err
	}
	resp := httptransport.ListPollsResponse{Items: make([]httptransport.PollResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, mapPollDetails(item))
	}
	return resp, nil
}

func (h Handler) CreateCategoryHandler(ctx context.Context, isAdmin bool, req httptransport.CategoryRequest) (httptransport.CategoryResponse, error) {
	category, err := h.Categories.CreateCategory(ctx, commands.CreateCategoryCommand{
		Name:         req.Name,
		ActorIsAdmin: isAdmin,
	})
	if err != nil {
		return httptransport.CategoryResponse{}, err
	}
	return mapCategory(category), nil
}

func (h Handler) ListCategoriesHandler(ctx context.Context) (httptransport.ListCategoriesResponse, error) {
	items, err := h.Queries.ListCategories(ctx)
	if err != nil {
		return httptransport.ListCategoriesResponse{}, err
	}
	resp := httptransport.ListCategoriesResponse{Items: make([]httptransport.CategoryResponse, 0, len(items))}
	for _, item := range items {
		resp.Items = append(resp.Items, mapCategory(item))
	}
	return resp, nil
}

func draftFromRequest(req httptransport.PollRequest) entities.PollDraft {
	options := make([]entities.OptionDraft, 0, len(req.Options))
	for _, option := range req.Options {
		options = append(options, entities.OptionDraft{
			Label:    option.Label,
			ImageURL: option.ImageURL,
		})
	}
	return entities.PollDraft{
		Title:       req.Title,
		Description: req.Description,
		EndsAt:      req.EndDatetime,
		Options:     options,
		CategoryIDs: req.CategoryIDs,
	}
}

func mapPollDetails(details entities.PollDetails) httptransport.PollResponse {
	resp := mapPoll(details.Poll)
	resp.Options = make([]httptransport.OptionResponse, 0, len(details.Options))
	for _, option := range details.Options {
		positions := option.PreferentialVotes
		if positions == nil {
			positions = map[int]int{}
		}
		resp.Options = append(resp.Options, httptransport.OptionResponse{
			OptionID:          option.OptionID,
			Position:          option.Position,
			Label:             option.Label,
			ImageURL:          option.ImageURL,
			SimpleVotes:       option.SimpleVotes,
			RankedPoints:      option.RankedPoints,
			PreferentialVotes: positions,
		})
	}
	for _, category := range details.Categories {
		resp.Categories = append(resp.Categories, mapCategory(category))
	}
	return resp
}

func mapPoll(poll entities.Poll) httptransport.PollResponse {
	return httptransport.PollResponse{
		PollID:        poll.PollID,
		AuthorID:      poll.AuthorID,
		Title:         poll.Title,
		Description:   poll.Description,
		EndDatetime:   poll.EndsAt,
		Confirmed:     poll.Confirmed,
		CommentsCount: poll.CommentsCount,
		Categories:    []httptransport.CategoryResponse{},
		CreatedAt:     poll.CreatedAt,
		UpdatedAt:     poll.UpdatedAt,
	}
}

func mapCategory(category entities.Category) httptransport.CategoryResponse {
	return httptransport.CategoryResponse{
		CategoryID: category.CategoryID,
		Name:       category.Name,
	}
}
