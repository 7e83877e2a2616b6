package errors

import "errors"

var (
	ErrReconciliation   = errors.New("counter reconciliation failed")
	ErrInvalidTask      = errors.New("invalid counter task")
	ErrDedupConflict    = errors.New("event id reused with a different payload")
	ErrStoreUnavailable = errors.New("counter store unavailable")
)
