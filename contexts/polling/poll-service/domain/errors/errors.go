package errors

import "errors"

var (
	ErrInvalidPollInput     = errors.New("invalid poll input")
	ErrPollNotFound         = errors.New("poll not found")
	ErrInvalidCategoryInput = errors.New("invalid category input")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryExists       = errors.New("category already exists")
	ErrForbidden            = errors.New("poll operation forbidden")
	ErrStoreUnavailable     = errors.New("poll store unavailable")
)
