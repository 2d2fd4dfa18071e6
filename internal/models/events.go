package models

import "time"

// Event types
const (
	EventTypeWaitlistJoined  = "WAITLIST_JOINED"
	EventTypeOfferIssued     = "OFFER_ISSUED"
	EventTypeOfferExpired    = "OFFER_EXPIRED"
	EventTypeOfferReleased   = "OFFER_RELEASED"
	EventTypeTicketPurchased = "TICKET_PURCHASED"
	EventTypeEventCancelled  = "EVENT_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// WaitlistJoinedEvent published when a user enters the queue as waiting
type WaitlistJoinedEvent struct {
	BaseEvent
	EntryID       string `json:"entry_id"`
	TicketEventID string `json:"ticket_event_id"`
	UserID        string `json:"user_id"`
}

// OfferIssuedEvent published when a waiting entry receives a time-boxed offer
type OfferIssuedEvent struct {
	BaseEvent
	EntryID        string    `json:"entry_id"`
	TicketEventID  string    `json:"ticket_event_id"`
	UserID         string    `json:"user_id"`
	OfferExpiresAt time.Time `json:"offer_expires_at"`
}

// OfferExpiredEvent published when an offer lapses without purchase
type OfferExpiredEvent struct {
	BaseEvent
	EntryID       string `json:"entry_id"`
	TicketEventID string `json:"ticket_event_id"`
	UserID        string `json:"user_id"`
}

// OfferReleasedEvent published when a user gives an offer back early
type OfferReleasedEvent struct {
	BaseEvent
	EntryID       string `json:"entry_id"`
	TicketEventID string `json:"ticket_event_id"`
	UserID        string `json:"user_id"`
}

// TicketPurchasedEvent published when an offer converts into a ticket
type TicketPurchasedEvent struct {
	BaseEvent
	TicketID      string `json:"ticket_id"`
	EntryID       string `json:"entry_id"`
	TicketEventID string `json:"ticket_event_id"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	PaymentRef    string `json:"payment_ref"`
}

// EventCancelledEvent published when an event owner cancels the event
type EventCancelledEvent struct {
	BaseEvent
	TicketEventID string `json:"ticket_event_id"`
	OwnerID       string `json:"owner_id"`
}
