package worker

import (
	"context"
	"fmt"

	"waitlist-service/internal/broker"
	"waitlist-service/internal/models"
	"waitlist-service/internal/util"

	"go.uber.org/zap"
)

// ProcessedStore tracks which broker events have already been handled, so
// at-least-once delivery produces at-most-one notification.
type ProcessedStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// NotificationWorker consumes waitlist lifecycle events and records
// user-facing notifications: "your offer is ready", "your offer lapsed",
// "here is your ticket". Delivery transport is a follow-on concern; the
// worker logs and counts for now.
type NotificationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        ProcessedStore
	logger       *zap.Logger
}

// NewNotificationWorker creates a new notification worker
func NewNotificationWorker(consumer *broker.Consumer, store ProcessedStore) *NotificationWorker {
	w := &NotificationWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOfferIssued(w.handleOfferIssued)
	eventHandler.OnOfferExpired(w.handleOfferExpired)
	eventHandler.OnTicketPurchased(w.handleTicketPurchased)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting notification worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *NotificationWorker) Stop() error {
	w.logger.Info("Stopping notification worker")
	return w.consumer.Close()
}

func (w *NotificationWorker) handleOfferIssued(ctx context.Context, event *models.OfferIssuedEvent) error {
	return w.notifyOnce(ctx, event.EventID, event.EventType, func() {
		w.logger.Info("Notifying user of ticket offer",
			zap.String("user_id", event.UserID),
			zap.String("ticket_event_id", event.TicketEventID),
			zap.Time("offer_expires_at", event.OfferExpiresAt))
	})
}

func (w *NotificationWorker) handleOfferExpired(ctx context.Context, event *models.OfferExpiredEvent) error {
	return w.notifyOnce(ctx, event.EventID, event.EventType, func() {
		w.logger.Info("Notifying user of lapsed offer",
			zap.String("user_id", event.UserID),
			zap.String("ticket_event_id", event.TicketEventID))
	})
}

func (w *NotificationWorker) handleTicketPurchased(ctx context.Context, event *models.TicketPurchasedEvent) error {
	return w.notifyOnce(ctx, event.EventID, event.EventType, func() {
		w.logger.Info("Notifying user of confirmed ticket",
			zap.String("user_id", event.UserID),
			zap.String("ticket_id", event.TicketID))
	})
}

func (w *NotificationWorker) notifyOnce(ctx context.Context, eventID, eventType string, notify func()) error {
	processed, err := w.store.IsEventProcessed(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	notify()
	util.NotificationsSentTotal.WithLabelValues(eventType).Inc()

	if err := w.store.MarkEventProcessed(ctx, eventID, eventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
