package store

import (
	"context"
	"database/sql"
	"fmt"

	"waitlist-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateTicket inserts a committed ticket
func (s *Store) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (id, event_id, user_id, status, payment_ref, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := sqlx.GetContext(ctx, s.querier(ctx), &ticket.CreatedAt, query,
		ticket.ID, ticket.EventID, ticket.UserID, ticket.Status,
		ticket.PaymentRef, ticket.Amount)
	return mapStoreError(err)
}

// CountPurchased counts committed tickets (valid or used) for an event
func (s *Store) CountPurchased(ctx context.Context, eventID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, s.querier(ctx), &count, `
		SELECT COUNT(*) FROM tickets
		WHERE event_id = $1 AND status IN ($2, $3)`,
		eventID, models.TicketStatusValid, models.TicketStatusUsed)
	return count, mapStoreError(err)
}

// GetUserTicketForEvent finds a user's ticket to an event
func (s *Store) GetUserTicketForEvent(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := sqlx.GetContext(ctx, s.querier(ctx), &ticket,
		"SELECT * FROM tickets WHERE event_id = $1 AND user_id = $2 LIMIT 1",
		eventID, userID)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("ticket for event %s: %w", eventID, models.ErrNotFound)
	}
	if err != nil {
		return nil, mapStoreError(err)
	}
	return &ticket, nil
}

// ListUserTickets retrieves all tickets owned by a user
func (s *Store) ListUserTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := sqlx.SelectContext(ctx, s.querier(ctx), &tickets,
		"SELECT * FROM tickets WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return tickets, mapStoreError(err)
}

// IsEventProcessed checks if a broker event has been processed
func (s *Store) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, s.querier(ctx), &exists,
		"SELECT EXISTS(SELECT 1 FROM processed_events WHERE event_id = $1)", eventID)
	return exists, mapStoreError(err)
}

// MarkEventProcessed marks a broker event as processed
func (s *Store) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		"INSERT INTO processed_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING",
		eventID, eventType)
	return mapStoreError(err)
}
