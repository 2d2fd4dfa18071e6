package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"waitlist-service/internal/models"
)

// testClock is a mutable clock for temporal scenarios
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock {
	return &testClock{now: t.UTC()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTxKey struct{}

// fakeStore is an in-memory Store. WithEventTx serializes per event with a
// mutex, mirroring the row lock the real store takes.
type fakeStore struct {
	mu      sync.Mutex
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
	events  map[string]*models.Event
	entries map[string]*models.WaitingListEntry
	order   []string
	tickets map[string]*models.Ticket
	seq     int
	base    time.Time
}

func newFakeStore(base time.Time) *fakeStore {
	return &fakeStore{
		locks:   make(map[string]*sync.Mutex),
		events:  make(map[string]*models.Event),
		entries: make(map[string]*models.WaitingListEntry),
		tickets: make(map[string]*models.Ticket),
		base:    base.UTC(),
	}
}

func (f *fakeStore) eventLock(eventID string) *sync.Mutex {
	f.lockMu.Lock()
	defer f.lockMu.Unlock()
	if _, ok := f.locks[eventID]; !ok {
		f.locks[eventID] = &sync.Mutex{}
	}
	return f.locks[eventID]
}

func (f *fakeStore) WithEventTx(ctx context.Context, eventID string, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	lock := f.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	f.mu.Lock()
	_, ok := f.events[eventID]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("event %s: %w", eventID, models.ErrNotFound)
	}

	return fn(context.WithValue(ctx, fakeTxKey{}, eventID))
}

func (f *fakeStore) CreateEvent(_ context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev := *event
	ev.CreatedAt = f.nextTime()
	f.events[event.ID] = &ev
	event.CreatedAt = ev.CreatedAt
	return nil
}

func (f *fakeStore) GetEvent(_ context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, models.ErrNotFound)
	}
	ev := *event
	return &ev, nil
}

func (f *fakeStore) ListEvents(_ context.Context) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, event := range f.events {
		if !event.IsCancelled {
			out = append(out, *event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (f *fakeStore) UpdateEventCapacity(_ context.Context, id string, totalTickets int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok {
		event.TotalTickets = totalTickets
	}
	return nil
}

func (f *fakeStore) CancelEvent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok {
		event.IsCancelled = true
	}
	return nil
}

// nextTime returns strictly increasing timestamps, standing in for the
// database-assigned monotonic created_at.
func (f *fakeStore) nextTime() time.Time {
	f.seq++
	return f.base.Add(time.Duration(f.seq) * time.Millisecond)
}

func (f *fakeStore) CreateEntry(_ context.Context, entry *models.WaitingListEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.EventID == entry.EventID && e.UserID == entry.UserID && e.Status != models.EntryStatusExpired {
			return fmt.Errorf("%w: user %s", models.ErrDuplicateEntry, entry.UserID)
		}
	}
	e := *entry
	e.CreatedAt = f.nextTime()
	f.entries[entry.ID] = &e
	f.order = append(f.order, entry.ID)
	entry.CreatedAt = e.CreatedAt
	return nil
}

func (f *fakeStore) GetEntry(_ context.Context, id string) (*models.WaitingListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return nil, fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	e := *entry
	return &e, nil
}

func (f *fakeStore) FindActiveEntry(_ context.Context, eventID, userID string) (*models.WaitingListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.order {
		e := f.entries[id]
		if e.EventID == eventID && e.UserID == userID && e.Status != models.EntryStatusExpired {
			entry := *e
			return &entry, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UpdateEntryStatus(_ context.Context, id, status string, offerExpiresAt *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[id]
	if !ok {
		return fmt.Errorf("entry %s: %w", id, models.ErrNotFound)
	}
	entry.Status = status
	entry.OfferExpiresAt = offerExpiresAt
	return nil
}

func (f *fakeStore) CountActiveOffers(_ context.Context, eventID string, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.EventID == eventID && e.Status == models.EntryStatusOffered &&
			e.OfferExpiresAt != nil && e.OfferExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListWaiting(_ context.Context, eventID string, limit int) ([]models.WaitingListEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.WaitingListEntry
	for _, id := range f.order {
		e := f.entries[id]
		if e.EventID == eventID && e.Status == models.EntryStatusWaiting {
			out = append(out, *e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) CountAhead(_ context.Context, eventID string, before time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, e := range f.entries {
		if e.EventID == eventID && e.CreatedAt.Before(before) &&
			(e.Status == models.EntryStatusWaiting || e.Status == models.EntryStatusOffered) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateTicket(_ context.Context, ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := *ticket
	t.CreatedAt = f.nextTime()
	f.tickets[ticket.ID] = &t
	ticket.CreatedAt = t.CreatedAt
	return nil
}

func (f *fakeStore) CountPurchased(_ context.Context, eventID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, t := range f.tickets {
		if t.EventID == eventID && (t.Status == models.TicketStatusValid || t.Status == models.TicketStatusUsed) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetUserTicketForEvent(_ context.Context, eventID, userID string) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tickets {
		if t.EventID == eventID && t.UserID == userID {
			ticket := *t
			return &ticket, nil
		}
	}
	return nil, fmt.Errorf("ticket for event %s: %w", eventID, models.ErrNotFound)
}

func (f *fakeStore) ListUserTickets(_ context.Context, userID string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Ticket
	for _, t := range f.tickets {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

// entryStatus reads an entry's status directly, for assertions
func (f *fakeStore) entryStatus(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.entries[id]; ok {
		return e.Status
	}
	return ""
}

// fakeScheduler records scheduled jobs
type fakeScheduler struct {
	mu   sync.Mutex
	jobs []fakeJob
}

type fakeJob struct {
	RunAt   time.Time
	Kind    string
	Payload interface{}
}

func (f *fakeScheduler) ScheduleAt(_ context.Context, runAt time.Time, kind string, payload interface{}) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, fakeJob{RunAt: runAt, Kind: kind, Payload: payload})
	return fmt.Sprintf("job-%d", len(f.jobs)), nil
}

func (f *fakeScheduler) scheduled() []fakeJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeJob(nil), f.jobs...)
}

// fakePublisher records published lifecycle events by type
type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) record(eventType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return nil
}

func (f *fakePublisher) PublishWaitlistJoined(_ context.Context, e *models.WaitlistJoinedEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) PublishOfferIssued(_ context.Context, e *models.OfferIssuedEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) PublishOfferExpired(_ context.Context, e *models.OfferExpiredEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) PublishOfferReleased(_ context.Context, e *models.OfferReleasedEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) PublishTicketPurchased(_ context.Context, e *models.TicketPurchasedEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) PublishEventCancelled(_ context.Context, e *models.EventCancelledEvent) error {
	return f.record(e.EventType)
}

func (f *fakePublisher) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}
