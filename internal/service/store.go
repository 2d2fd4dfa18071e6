package service

import (
	"context"
	"time"

	"waitlist-service/internal/models"
)

// Store is the entity store collaborator. All capacity-affecting operations
// run inside WithEventTx, which serializes them per event; read methods
// called within the callback observe the transaction.
type Store interface {
	WithEventTx(ctx context.Context, eventID string, fn func(ctx context.Context) error) error

	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	UpdateEventCapacity(ctx context.Context, id string, totalTickets int) error
	CancelEvent(ctx context.Context, id string) error

	CreateEntry(ctx context.Context, entry *models.WaitingListEntry) error
	GetEntry(ctx context.Context, id string) (*models.WaitingListEntry, error)
	FindActiveEntry(ctx context.Context, eventID, userID string) (*models.WaitingListEntry, error)
	UpdateEntryStatus(ctx context.Context, id, status string, offerExpiresAt *time.Time) error
	CountActiveOffers(ctx context.Context, eventID string, now time.Time) (int, error)
	ListWaiting(ctx context.Context, eventID string, limit int) ([]models.WaitingListEntry, error)
	CountAhead(ctx context.Context, eventID string, before time.Time) (int, error)

	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	CountPurchased(ctx context.Context, eventID string) (int, error)
	GetUserTicketForEvent(ctx context.Context, eventID, userID string) (*models.Ticket, error)
	ListUserTickets(ctx context.Context, userID string) ([]models.Ticket, error)
}

// Scheduler is the durable deferred-execution collaborator. ScheduleAt must
// persist the callback within the caller's transaction so a crash between
// scheduling and firing cannot lose it.
type Scheduler interface {
	ScheduleAt(ctx context.Context, runAt time.Time, kind string, payload interface{}) (string, error)
}

// Publisher emits waitlist lifecycle events to the broker. Publishing is
// best-effort relative to the committed state change.
type Publisher interface {
	PublishWaitlistJoined(ctx context.Context, event *models.WaitlistJoinedEvent) error
	PublishOfferIssued(ctx context.Context, event *models.OfferIssuedEvent) error
	PublishOfferExpired(ctx context.Context, event *models.OfferExpiredEvent) error
	PublishOfferReleased(ctx context.Context, event *models.OfferReleasedEvent) error
	PublishTicketPurchased(ctx context.Context, event *models.TicketPurchasedEvent) error
	PublishEventCancelled(ctx context.Context, event *models.EventCancelledEvent) error
}
