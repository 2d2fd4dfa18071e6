package store

import (
	"context"
	"database/sql"
	"fmt"

	"waitlist-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateEvent creates a new event
func (s *Store) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, owner_id, name, description, location, starts_at, price, total_tickets)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := sqlx.GetContext(ctx, s.querier(ctx), &event.CreatedAt, query,
		event.ID, event.OwnerID, event.Name, event.Description,
		event.Location, event.StartsAt, event.Price, event.TotalTickets)
	return mapStoreError(err)
}

// GetEvent retrieves an event by ID
func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := sqlx.GetContext(ctx, s.querier(ctx), &event, "SELECT * FROM events WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &event, nil
}

// ListEvents retrieves all non-cancelled events
func (s *Store) ListEvents(ctx context.Context) ([]models.Event, error) {
	var events []models.Event
	err := sqlx.SelectContext(ctx, s.querier(ctx), &events,
		"SELECT * FROM events WHERE NOT is_cancelled ORDER BY starts_at")
	return events, mapStoreError(err)
}

// UpdateEventCapacity updates the total ticket count for an event
func (s *Store) UpdateEventCapacity(ctx context.Context, id string, totalTickets int) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		"UPDATE events SET total_tickets = $1 WHERE id = $2", totalTickets, id)
	return mapStoreError(err)
}

// CancelEvent flips the one-way cancellation flag
func (s *Store) CancelEvent(ctx context.Context, id string) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		"UPDATE events SET is_cancelled = TRUE WHERE id = $1", id)
	return mapStoreError(err)
}
