package models

import "errors"

// Domain error taxonomy. All are local, recoverable conditions reported
// synchronously to the caller, except ErrStoreUnavailable which signals the
// durable store itself is down.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicateEntry   = errors.New("already in waiting list for this event")
	ErrInvalidState     = errors.New("no valid ticket offer found")
	ErrForbidden        = errors.New("entry belongs to a different user")
	ErrEventCancelled   = errors.New("event is cancelled")
	ErrCapacityConflict = errors.New("lost the race for the last slot, retry")
	ErrStoreUnavailable = errors.New("store unavailable")
)
