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

// JobKindExpireOffer is the scheduled-job kind for offer expirations
const JobKindExpireOffer = "expire_offer"

// ExpireOfferPayload is the scheduled-job payload for offer expirations
type ExpireOfferPayload struct {
	EntryID string `json:"entry_id"`
	EventID string `json:"event_id"`
}

// QueueService is the admission engine: it decides whether a joining user
// gets an offer or waits, promotes waiting entries when capacity frees up,
// and expires offers that were not acted upon.
type QueueService struct {
	store       Store
	scheduler   Scheduler
	publisher   Publisher
	clock       Clock
	offerWindow time.Duration
	logger      *zap.Logger
}

// NewQueueService creates a new queue admission service
func NewQueueService(store Store, scheduler Scheduler, publisher Publisher, clock Clock, opts ...QueueServiceOption) *QueueService {
	svc := &QueueService{
		store:       store,
		scheduler:   scheduler,
		publisher:   publisher,
		clock:       clock,
		offerWindow: models.OfferWindow,
		logger:      util.GetLogger(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type QueueServiceOption func(*QueueService)

// WithOfferWindow overrides the default offer validity window
func WithOfferWindow(d time.Duration) QueueServiceOption {
	return func(s *QueueService) {
		if d > 0 {
			s.offerWindow = d
		}
	}
}

// Availability recomputes the capacity snapshot for an event. Pure read:
// offers past their expiry timestamp are excluded even if the scheduler has
// not swept them yet.
func (s *QueueService) Availability(ctx context.Context, eventID string) (*models.Availability, error) {
	ctx, span := util.StartSpan(ctx, "QueueService.Availability")
	defer span.End()

	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.availability(ctx, event)
}

func (s *QueueService) availability(ctx context.Context, event *models.Event) (*models.Availability, error) {
	purchased, err := s.store.CountPurchased(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count purchased tickets: %w", err)
	}

	offered, err := s.store.CountActiveOffers(ctx, event.ID, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to count active offers: %w", err)
	}

	remaining := event.TotalTickets - purchased - offered
	if remaining < 0 {
		remaining = 0
	}

	return &models.Availability{
		TotalTickets:   event.TotalTickets,
		PurchasedCount: purchased,
		ActiveOffers:   offered,
		Remaining:      remaining,
		IsSoldOut:      purchased+offered >= event.TotalTickets,
	}, nil
}

// Join adds a user to the waiting list for an event. If capacity is
// available at join time the entry is created directly as an offer with a
// scheduled expiration; otherwise it is created as waiting. The availability
// read and the insert are serialized per event so two concurrent joins cannot
// both take the last slot.
func (s *QueueService) Join(ctx context.Context, eventID, userID string) (*models.WaitingListEntry, error) {
	ctx, span := util.StartSpan(ctx, "QueueService.Join")
	defer span.End()

	var entry *models.WaitingListEntry

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		event, err := s.store.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.IsCancelled {
			return models.ErrEventCancelled
		}

		existing, err := s.store.FindActiveEntry(txCtx, eventID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: user %s", models.ErrDuplicateEntry, userID)
		}

		avail, err := s.availability(txCtx, event)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		entry = &models.WaitingListEntry{
			ID:        uuid.New().String(),
			EventID:   eventID,
			UserID:    userID,
			Status:    models.EntryStatusWaiting,
			CreatedAt: now,
		}

		if avail.Remaining > 0 {
			expiresAt := now.Add(s.offerWindow)
			entry.Status = models.EntryStatusOffered
			entry.OfferExpiresAt = &expiresAt
		}

		if err := s.store.CreateEntry(txCtx, entry); err != nil {
			return err
		}

		if entry.Status == models.EntryStatusOffered {
			return s.scheduleExpiration(txCtx, entry)
		}
		return nil
	})
	if err != nil {
		util.JoinsFailedTotal.WithLabelValues(errorReason(err)).Inc()
		return nil, err
	}

	util.JoinsTotal.WithLabelValues(entry.Status).Inc()
	s.logger.Info("User joined waiting list",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.String("status", entry.Status))

	s.publishEntryCreated(ctx, entry)
	return entry, nil
}

// AdmitNext promotes up to remaining-capacity waiting entries to offered, in
// strict FIFO order. Idempotent: a no-op when no capacity or no one waiting.
func (s *QueueService) AdmitNext(ctx context.Context, eventID string) error {
	ctx, span := util.StartSpan(ctx, "QueueService.AdmitNext")
	defer span.End()

	var promoted []models.WaitingListEntry

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		event, err := s.store.GetEvent(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.IsCancelled {
			return nil
		}

		avail, err := s.availability(txCtx, event)
		if err != nil {
			return err
		}
		if avail.Remaining <= 0 {
			return nil
		}

		waiting, err := s.store.ListWaiting(txCtx, eventID, avail.Remaining)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		expiresAt := now.Add(s.offerWindow)

		for i := range waiting {
			e := &waiting[i]
			if err := s.store.UpdateEntryStatus(txCtx, e.ID, models.EntryStatusOffered, &expiresAt); err != nil {
				return err
			}
			e.Status = models.EntryStatusOffered
			e.OfferExpiresAt = &expiresAt

			if err := s.scheduleExpiration(txCtx, e); err != nil {
				return err
			}
		}

		promoted = waiting
		return nil
	})
	if err != nil {
		return err
	}

	for i := range promoted {
		e := &promoted[i]
		util.OffersIssuedTotal.Inc()
		s.logger.Info("Offer issued",
			zap.String("event_id", eventID),
			zap.String("entry_id", e.ID),
			zap.String("user_id", e.UserID))
		s.publishOfferIssued(ctx, e)
	}
	return nil
}

// Release gives an outstanding offer back early. Only valid while the entry
// is offered; the freed slot is handed to the next waiting user.
func (s *QueueService) Release(ctx context.Context, eventID, entryID, userID string) error {
	ctx, span := util.StartSpan(ctx, "QueueService.Release")
	defer span.End()

	var released *models.WaitingListEntry

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
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

		if err := s.store.UpdateEntryStatus(txCtx, entryID, models.EntryStatusExpired, nil); err != nil {
			return err
		}
		released = entry
		return nil
	})
	if err != nil {
		return err
	}

	util.OffersReleasedTotal.Inc()
	s.logger.Info("Offer released",
		zap.String("event_id", eventID),
		zap.String("entry_id", entryID))

	if err := s.publisher.PublishOfferReleased(ctx, &models.OfferReleasedEvent{
		BaseEvent:     s.baseEvent(models.EventTypeOfferReleased),
		EntryID:       released.ID,
		TicketEventID: eventID,
		UserID:        released.UserID,
	}); err != nil {
		s.logger.Error("Failed to publish OfferReleased event", zap.Error(err))
	}

	return s.AdmitNext(ctx, eventID)
}

// ExpireOffer is the scheduled-job callback. Idempotent: entries that were
// purchased, released, or already expired are benign no-ops.
func (s *QueueService) ExpireOffer(ctx context.Context, entryID, eventID string) error {
	ctx, span := util.StartSpan(ctx, "QueueService.ExpireOffer")
	defer span.End()

	var expired *models.WaitingListEntry

	err := s.store.WithEventTx(ctx, eventID, func(txCtx context.Context) error {
		entry, err := s.store.GetEntry(txCtx, entryID)
		if err != nil {
			if isBenign(err) {
				return nil
			}
			return err
		}
		if entry.Status != models.EntryStatusOffered {
			return nil
		}

		if err := s.store.UpdateEntryStatus(txCtx, entryID, models.EntryStatusExpired, nil); err != nil {
			return err
		}
		expired = entry
		return nil
	})
	if err != nil {
		if isBenign(err) {
			return nil
		}
		return err
	}
	if expired == nil {
		return nil
	}

	util.OffersExpiredTotal.Inc()
	s.logger.Info("Offer expired",
		zap.String("event_id", eventID),
		zap.String("entry_id", entryID),
		zap.String("user_id", expired.UserID))

	if err := s.publisher.PublishOfferExpired(ctx, &models.OfferExpiredEvent{
		BaseEvent:     s.baseEvent(models.EventTypeOfferExpired),
		EntryID:       expired.ID,
		TicketEventID: eventID,
		UserID:        expired.UserID,
	}); err != nil {
		s.logger.Error("Failed to publish OfferExpired event", zap.Error(err))
	}

	return s.AdmitNext(ctx, eventID)
}

// Position returns the user's entry and 1-based rank in the queue,
// recomputed on every call.
func (s *QueueService) Position(ctx context.Context, eventID, userID string) (*models.QueuePosition, error) {
	ctx, span := util.StartSpan(ctx, "QueueService.Position")
	defer span.End()

	entry, err := s.store.FindActiveEntry(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("no entry for user %s: %w", userID, models.ErrNotFound)
	}

	ahead, err := s.store.CountAhead(ctx, eventID, entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	return &models.QueuePosition{
		Entry:    entry,
		Position: ahead + 1,
	}, nil
}

func (s *QueueService) scheduleExpiration(ctx context.Context, entry *models.WaitingListEntry) error {
	_, err := s.scheduler.ScheduleAt(ctx, *entry.OfferExpiresAt, JobKindExpireOffer, ExpireOfferPayload{
		EntryID: entry.ID,
		EventID: entry.EventID,
	})
	if err != nil {
		return fmt.Errorf("failed to schedule offer expiration: %w", err)
	}
	return nil
}

func (s *QueueService) publishEntryCreated(ctx context.Context, entry *models.WaitingListEntry) {
	if entry.Status == models.EntryStatusOffered {
		s.publishOfferIssued(ctx, entry)
		return
	}
	if err := s.publisher.PublishWaitlistJoined(ctx, &models.WaitlistJoinedEvent{
		BaseEvent:     s.baseEvent(models.EventTypeWaitlistJoined),
		EntryID:       entry.ID,
		TicketEventID: entry.EventID,
		UserID:        entry.UserID,
	}); err != nil {
		s.logger.Error("Failed to publish WaitlistJoined event", zap.Error(err))
	}
}

func (s *QueueService) publishOfferIssued(ctx context.Context, entry *models.WaitingListEntry) {
	if err := s.publisher.PublishOfferIssued(ctx, &models.OfferIssuedEvent{
		BaseEvent:      s.baseEvent(models.EventTypeOfferIssued),
		EntryID:        entry.ID,
		TicketEventID:  entry.EventID,
		UserID:         entry.UserID,
		OfferExpiresAt: *entry.OfferExpiresAt,
	}); err != nil {
		s.logger.Error("Failed to publish OfferIssued event", zap.Error(err))
	}
}

func (s *QueueService) baseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: s.clock.Now(),
	}
}
