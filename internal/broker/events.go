package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"waitlist-service/internal/models"
	"waitlist-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing waitlist lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishWaitlistJoined publishes WaitlistJoined event
func (ep *EventPublisher) PublishWaitlistJoined(ctx context.Context, event *models.WaitlistJoinedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

// PublishOfferIssued publishes OfferIssued event
func (ep *EventPublisher) PublishOfferIssued(ctx context.Context, event *models.OfferIssuedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

// PublishOfferExpired publishes OfferExpired event
func (ep *EventPublisher) PublishOfferExpired(ctx context.Context, event *models.OfferExpiredEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

// PublishOfferReleased publishes OfferReleased event
func (ep *EventPublisher) PublishOfferReleased(ctx context.Context, event *models.OfferReleasedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

// PublishTicketPurchased publishes TicketPurchased event
func (ep *EventPublisher) PublishTicketPurchased(ctx context.Context, event *models.TicketPurchasedEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

// PublishEventCancelled publishes EventCancelled event
func (ep *EventPublisher) PublishEventCancelled(ctx context.Context, event *models.EventCancelledEvent) error {
	return ep.producer.PublishEvent(ctx, eventKey(event.TicketEventID), event)
}

func eventKey(ticketEventID string) string {
	return fmt.Sprintf("event-%s", ticketEventID)
}

// EventHandler routes incoming waitlist events to registered callbacks
type EventHandler struct {
	onOfferIssued     func(context.Context, *models.OfferIssuedEvent) error
	onOfferExpired    func(context.Context, *models.OfferExpiredEvent) error
	onTicketPurchased func(context.Context, *models.TicketPurchasedEvent) error
	logger            *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnOfferIssued registers a handler for OfferIssued events
func (eh *EventHandler) OnOfferIssued(handler func(context.Context, *models.OfferIssuedEvent) error) {
	eh.onOfferIssued = handler
}

// OnOfferExpired registers a handler for OfferExpired events
func (eh *EventHandler) OnOfferExpired(handler func(context.Context, *models.OfferExpiredEvent) error) {
	eh.onOfferExpired = handler
}

// OnTicketPurchased registers a handler for TicketPurchased events
func (eh *EventHandler) OnTicketPurchased(handler func(context.Context, *models.TicketPurchasedEvent) error) {
	eh.onTicketPurchased = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOfferIssued:
		if eh.onOfferIssued != nil {
			var event models.OfferIssuedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferIssued event: %w", err)
			}
			return eh.onOfferIssued(ctx, &event)
		}

	case models.EventTypeOfferExpired:
		if eh.onOfferExpired != nil {
			var event models.OfferExpiredEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OfferExpired event: %w", err)
			}
			return eh.onOfferExpired(ctx, &event)
		}

	case models.EventTypeTicketPurchased:
		if eh.onTicketPurchased != nil {
			var event models.TicketPurchasedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal TicketPurchased event: %w", err)
			}
			return eh.onTicketPurchased(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
