package service

import (
	"errors"

	"waitlist-service/internal/models"
)

// isBenign reports whether an error is expected under concurrent retries and
// should be treated as a no-op by admitNext and the expiration callback.
func isBenign(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// errorReason maps a domain error to a metric label
func errorReason(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrDuplicateEntry):
		return "duplicate_entry"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, models.ErrForbidden):
		return "forbidden"
	case errors.Is(err, models.ErrEventCancelled):
		return "event_cancelled"
	case errors.Is(err, models.ErrCapacityConflict):
		return "capacity_conflict"
	case errors.Is(err, models.ErrStoreUnavailable):
		return "store_unavailable"
	default:
		return "internal"
	}
}
