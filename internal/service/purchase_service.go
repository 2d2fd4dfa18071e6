package service

import (
	"context"
	"fmt"

	"waitlist-service/internal/models"
	"waitlist-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseService converts validated offers into committed tickets. Payment
// capture happens outside this core before Purchase is invoked; the receipt
// only records the outcome.
type PurchaseService struct {
	store  Store
	queue  *QueueService
	pub    Publisher
	clock  Clock
	logger *zap.Logger
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(store Store, queue *QueueService, pub Publisher, clock Clock) *PurchaseService {
	return &PurchaseService{
		store:  store,
		queue:  queue,
		pub:    pub,
		clock:  clock,
		logger: util.GetLogger(),
	}
}

// PaymentReceipt records the outcome of an already-captured payment
type PaymentReceipt struct {
	Reference string `json:"reference"`
	Amount    int64  `json:"amount"`
}

// Purchase validates the offer and atomically inserts the ticket while
// flipping the entry to purchased. A lapsed offer is rejected by timestamp
// even if the expiration callback has not fired yet.
func (s *PurchaseService) Purchase(ctx context.Context, eventID, userID, entryID string, receipt PaymentReceipt) (*models.Ticket, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Purchase")
	defer span.End()

	var ticket *models.Ticket

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		event, err := s.store.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.IsCancelled {
			return models.ErrEventCancelled
		}

		entry, err := s.store.GetEntry(txCtx, entryID)
		if err != nil {
			return err
		}
		if entry.EventID != eventID {
			return fmt.Errorf("entry %s: %w", entryID, models.ErrNotFound)
		}
		if entry.UserID != userID {
			return models.ErrForbidden
		}
		if entry.Status != models.EntryStatusOffered {
			return fmt.Errorf("%w: entry is %s", models.ErrInvalidState, entry.Status)
		}
		if entry.OfferExpiresAt == nil || !entry.OfferExpiresAt.After(s.clock.Now()) {
			return fmt.Errorf("%w: offer has expired", models.ErrInvalidState)
		}

		ticket = &models.Ticket{
			ID:         uuid.New().String(),
			EventID:    eventID,
			UserID:     userID,
			Status:     models.TicketStatusValid,
			PaymentRef: receipt.Reference,
			Amount:     receipt.Amount,
			CreatedAt:  s.clock.Now(),
		}

		// Ticket insert and status flip commit or roll back together: a
		// ticket without the flip double-grants the slot, the flip without
		// the ticket loses the sale.
		if err := s.store.CreateTicket(txCtx, ticket); err != nil {
			return err
		}
		return s.store.UpdateEntryStatus(txCtx, entryID, models.EntryStatusPurchased, nil)
	})
	if err != nil {
		util.PurchasesFailedTotal.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}

	util.TicketsPurchasedTotal.Inc()
	s.logger.Info("Ticket purchased",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.String("ticket_id", ticket.ID))

	if err := s.pub.PublishTicketPurchased(ctx, &models.TicketPurchasedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeTicketPurchased,
			Timestamp: s.clock.Now(),
		},
		TicketID:      ticket.ID,
		EntryID:       entryID,
		TicketEventID: eventID,
		UserID:        userID,
		Amount:        ticket.Amount,
		PaymentRef:    ticket.PaymentRef,
	}); err != nil {
		s.logger.Error("Failed to publish TicketPurchased event", zap.Error(err))
	}

	// A purchase consumes its own offer, but entries whose offers lapsed
	// concurrently may still be promotable.
	if err := s.queue.AdmitNext(ctx, eventID); err != nil {
		s.logger.Error("Failed to run admission after purchase",
			zap.String("event_id", eventID), zap.Error(err))
	}

	return ticket, nil
}

// GetUserTicketForEvent finds a user's ticket to an event
func (s *PurchaseService) GetUserTicketForEvent(ctx context.Context, eventID, userID string) (*models.Ticket, error) {
	return s.store.GetUserTicketForEvent(ctx, eventID, userID)
}

// ListUserTickets retrieves all tickets owned by a user
func (s *PurchaseService) ListUserTickets(ctx context.Context, userID string) ([]models.Ticket, error) {
	return s.store.ListUserTickets(ctx, userID)
}
