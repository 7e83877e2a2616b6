package errors

import "errors"

var (
	ErrInvalidCommentInput = errors.New("invalid comment input")
	ErrInvalidParent       = errors.New("parent comment must be a top-level comment on the same poll")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrPollNotFound        = errors.New("poll not found")
	ErrForbidden           = errors.New("only the comment author may change it")
	ErrConflict            = errors.New("reaction state conflict")
	ErrStoreUnavailable    = errors.New("discussion store unavailable")
)
