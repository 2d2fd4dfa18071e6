package models

import "time"

// OfferWindow is how long a ticket offer stays valid before it lapses.
// 30 minutes is the minimum checkout expiry the payment provider allows.
const OfferWindow = 30 * time.Minute

// Event represents a ticketed event
type Event struct {
	ID           string    `db:"id" json:"id"`
	OwnerID      string    `db:"owner_id" json:"owner_id"`
	Name         string    `db:"name" json:"name"`
	Description  string    `db:"description" json:"description"`
	Location     string    `db:"location" json:"location"`
	StartsAt     time.Time `db:"starts_at" json:"starts_at"`
	Price        int64     `db:"price" json:"price"`
	TotalTickets int       `db:"total_tickets" json:"total_tickets"`
	IsCancelled  bool      `db:"is_cancelled" json:"is_cancelled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// WaitingListEntry represents a user's place in the queue for an event
type WaitingListEntry struct {
	ID             string     `db:"id" json:"id"`
	EventID        string     `db:"event_id" json:"event_id"`
	UserID         string     `db:"user_id" json:"user_id"`
	Status         string     `db:"status" json:"status"`
	OfferExpiresAt *time.Time `db:"offer_expires_at" json:"offer_expires_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Ticket represents a committed ticket purchase
type Ticket struct {
	ID         string    `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Status     string    `db:"status" json:"status"`
	PaymentRef string    `db:"payment_ref" json:"payment_ref,omitempty"`
	Amount     int64     `db:"amount" json:"amount"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Availability is the recomputed-on-read capacity snapshot for an event
type Availability struct {
	TotalTickets   int  `json:"total_tickets"`
	PurchasedCount int  `json:"purchased_count"`
	ActiveOffers   int  `json:"active_offers"`
	Remaining      int  `json:"remaining"`
	IsSoldOut      bool `json:"is_sold_out"`
}

// QueuePosition is a user's entry plus their rank in the queue
type QueuePosition struct {
	Entry    *WaitingListEntry `json:"entry"`
	Position int               `json:"position"`
}

// Waiting list entry statuses (persisted values, fixed for store interop)
const (
	EntryStatusWaiting   = "waiting"
	EntryStatusOffered   = "offered"
	EntryStatusPurchased = "purchased"
	EntryStatusExpired   = "expired"
)

// Ticket statuses (persisted values, fixed for store interop)
const (
	TicketStatusValid     = "valid"
	TicketStatusUsed      = "used"
	TicketStatusRefunded  = "refunded"
	TicketStatusCancelled = "cancelled"
)

// ScheduledJob is a durable deferred callback record
type ScheduledJob struct {
	ID        string     `db:"id"`
	Kind      string     `db:"kind"`
	RunAt     time.Time  `db:"run_at"`
	Payload   string     `db:"payload"`
	FiredAt   *time.Time `db:"fired_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
