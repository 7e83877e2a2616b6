package entities

import domainerrors "altvote/contexts/polling/discussion-service/domain/errors"

// ReactionState is the tagged state of one (author, comment) pair. Liked and
// disliked are mutually exclusive by construction.
type ReactionState string

const (
	ReactionNone     ReactionState = "none"
	ReactionLiked    ReactionState = "liked"
	ReactionDisliked ReactionState = "disliked"
)

type ReactionAction string

const (
	ActionLike    ReactionAction = "like"
	ActionDislike ReactionAction = "dislike"
)

// Transition is one step of the toggle machine and the counter deltas it
// implies.
type Transition struct {
	Action        ReactionAction
	From          ReactionState
	To            ReactionState
	LikesDelta    int
	DislikesDelta int
}

// StateOf folds the two reaction rows into the tagged state. Both rows
// existing at once is a corrupted pair.
func StateOf(liked bool, disliked bool) (ReactionState, error) {
	switch {
	case liked && disliked:
		return "", domainerrors.ErrConflict
	case liked:
		return ReactionLiked, nil
	case disliked:
		return ReactionDisliked, nil
	default:
		return ReactionNone, nil
	}
}

// Toggle applies action to from. Repeating an action undoes it; the opposite
// action swaps the reaction and moves both counters.
func Toggle(from ReactionState, action ReactionAction) (Transition, error) {
	target, own, other := ReactionLiked, 1, 0
	switch action {
	case ActionLike:
	case ActionDislike:
		target = ReactionDisliked
	default:
		return Transition{}, domainerrors.ErrInvalidCommentInput
	}

	t := Transition{Action: action, From: from}
	switch from {
	case target:
		t.To = ReactionNone
		own = -1
	case ReactionNone:
		t.To = target
	case ReactionLiked, ReactionDisliked:
		t.To = target
		other = -1
	default:
		return Transition{}, domainerrors.ErrConflict
	}

	if action == ActionLike {
		t.LikesDelta, t.DislikesDelta = own, other
	} else {
		t.LikesDelta, t.DislikesDelta = other, own
	}
	return t, nil
}
