package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"waitlist-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateEntry inserts a new waiting list entry. Creation timestamps are
// assigned by the database and are monotonic per event, which defines the
// FIFO order.
func (s *Store) CreateEntry(ctx context.Context, entry *models.WaitingListEntry) error {
	query := `
		INSERT INTO waiting_list_entries (id, event_id, user_id, status, offer_expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := sqlx.GetContext(ctx, s.querier(ctx), &entry.CreatedAt, query,
		entry.ID, entry.EventID, entry.UserID, entry.Status, entry.OfferExpiresAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: user %s", models.ErrDuplicateEntry, entry.UserID)
	}
	return mapStoreError(err)
}

// GetEntry retrieves a waiting list entry by ID
func (s *Store) GetEntry(ctx context.Context, id string) (*models.WaitingListEntry, error) {
	var entry models.WaitingListEntry
	err := sqlx.GetContext(ctx, s.querier(ctx), &entry,
		"SELECT * FROM waiting_list_entries WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &entry, nil
}

// FindActiveEntry returns the user's non-expired entry for an event, or nil
func (s *Store) FindActiveEntry(ctx context.Context, eventID, userID string) (*models.WaitingListEntry, error) {
	var entry models.WaitingListEntry
	err := sqlx.GetContext(ctx, s.querier(ctx), &entry, `
		SELECT * FROM waiting_list_entries
		WHERE event_id = $1 AND user_id = $2 AND status != $3
		LIMIT 1`,
		eventID, userID, models.EntryStatusExpired)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &entry, nil
}

// UpdateEntryStatus transitions an entry's lifecycle status. The offer expiry
// is set for waiting->offered and cleared otherwise.
func (s *Store) UpdateEntryStatus(ctx context.Context, id, status string, offerExpiresAt *time.Time) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		"UPDATE waiting_list_entries SET status = $1, offer_expires_at = $2 WHERE id = $3",
		status, offerExpiresAt, id)
	return mapStoreError(err)
}

// CountActiveOffers counts offered entries whose expiry is still in the
// future. Lapsed offers are excluded by timestamp even before the scheduler
// sweeps them.
func (s *Store) CountActiveOffers(ctx context.Context, eventID string, now time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.querier(ctx), &count, `
		SELECT COUNT(*) FROM waiting_list_entries
		WHERE event_id = $1 AND status = $2 AND offer_expires_at > $3`,
		eventID, models.EntryStatusOffered, now)
	return count, mapStoreError(err)
}

// ListWaiting returns up to limit waiting entries in FIFO order
func (s *Store) ListWaiting(ctx context.Context, eventID string, limit int) ([]models.WaitingListEntry, error) {
	var entries []models.WaitingListEntry
	err := sqlx.SelectContext(ctx, s.querier(ctx), &entries, `
		SELECT * FROM waiting_list_entries
		WHERE event_id = $1 AND status = $2
		ORDER BY created_at, id
		LIMIT $3`,
		eventID, models.EntryStatusWaiting, limit)
	return entries, mapStoreError(err)
}

// CountAhead counts waiting/offered entries created strictly before the given
// timestamp, for queue position queries.
func (s *Store) CountAhead(ctx context.Context, eventID string, before time.Time) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.querier(ctx), &count, `
		SELECT COUNT(*) FROM waiting_list_entries
		WHERE event_id = $1 AND status IN ($2, $3) AND created_at < $4`,
		eventID, models.EntryStatusWaiting, models.EntryStatusOffered, before)
	return count, mapStoreError(err)
}
