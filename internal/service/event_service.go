package service

import (
	"context"
	"fmt"
	"time"

	"waitlist-service/internal/models"
	"waitlist-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventService handles event lifecycle: creation, capacity edits, and the
// one-way cancellation flag.
type EventService struct {
	store  Store
	queue  *QueueService
	pub    Publisher
	clock  Clock
	logger *zap.Logger
}

// NewEventService creates a new event service
func NewEventService(store Store, queue *QueueService, pub Publisher, clock Clock) *EventService {
	return &EventService{
		store:  store,
		queue:  queue,
		pub:    pub,
		clock:  clock,
		logger: util.GetLogger(),
	}
}

// CreateEventRequest carries the fields for a new event
type CreateEventRequest struct {
	OwnerID      string    `json:"owner_id" binding:"required"`
	Name         string    `json:"name" binding:"required"`
	Description  string    `json:"description"`
	Location     string    `json:"location"`
	StartsAt     time.Time `json:"starts_at" binding:"required"`
	Price        int64     `json:"price" binding:"min=0"`
	TotalTickets int       `json:"total_tickets" binding:"min=0"`
}

// CreateEvent creates a new event
func (s *EventService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*models.Event, error) {
	ctx, span := util.StartSpan(ctx, "EventService.CreateEvent")
	defer span.End()

	event := &models.Event{
		ID:           uuid.New().String(),
		OwnerID:      req.OwnerID,
		Name:         req.Name,
		Description:  req.Description,
		Location:     req.Location,
		StartsAt:     req.StartsAt,
		Price:        req.Price,
		TotalTickets: req.TotalTickets,
	}

	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	s.logger.Info("Event created",
		zap.String("event_id", event.ID),
		zap.Int("total_tickets", event.TotalTickets))
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *EventService) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListEvents retrieves all non-cancelled events
func (s *EventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.store.ListEvents(ctx)
}

// UpdateCapacity changes the total ticket count. Capacity may be raised
// freely; lowering stops at the count of already-committed tickets. A raise
// is followed by admission so waiting users drain into the new slots.
func (s *EventService) UpdateCapacity(ctx context.Context, eventID, callerID string, totalTickets int) (*models.Event, error) {
	ctx, span := util.StartSpan(ctx, "EventService.UpdateCapacity")
	defer span.End()

	var event *models.Event
	raised := false

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		var err error
		event, err = s.store.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != callerID {
			return models.ErrForbidden
		}
		if event.IsCancelled {
			return models.ErrEventCancelled
		}

		if totalTickets < event.TotalTickets {
			purchased, err := s.store.CountPurchased(txCtx, eventID)
			if err != nil {
				return err
			}
			if totalTickets < purchased {
				return fmt.Errorf("%w: %d tickets already sold", models.ErrInvalidState, purchased)
			}
		}

		raised = totalTickets > event.TotalTickets
		if err := s.store.UpdateEventCapacity(txCtx, eventID, totalTickets); err != nil {
			return err
		}
		event.TotalTickets = totalTickets
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Event capacity updated",
		zap.String("event_id", eventID),
		zap.Int("total_tickets", totalTickets))

	if raised {
		if err := s.queue.AdmitNext(ctx, eventID); err != nil {
			s.logger.Error("Failed to run admission after capacity raise",
				zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return event, nil
}

// CancelEvent flips the irreversible cancellation flag
func (s *EventService) CancelEvent(ctx context.Context, eventID, callerID string) error {
	ctx, span := util.StartSpan(ctx, "EventService.CancelEvent")
	defer span.End()

	var owner string

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		event, err := s.store.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.OwnerID != callerID {
			return models.ErrForbidden
		}
		if event.IsCancelled {
			return models.ErrEventCancelled
		}
		owner = event.OwnerID
		return s.store.CancelEvent(txCtx, eventID)
	})
	if err != nil {
		return err
	}

	util.EventsCancelledTotal.Inc()
	s.logger.Info("Event cancelled", zap.String("event_id", eventID))

	if err := s.pub.PublishEventCancelled(ctx, &models.EventCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeEventCancelled,
			Timestamp: s.clock.Now(),
		},
		TicketEventID: eventID,
		OwnerID:       owner,
	}); err != nil {
		s.logger.Error("Failed to publish EventCancelled event", zap.Error(err))
	}
	return nil
}
