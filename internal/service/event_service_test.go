package service

import (
	"context"
	"testing"
	"time"

	"waitlist-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEvents(t *testing.T) (*EventService, *QueueService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := newFakeStore(testStart)
	sched := &fakeScheduler{}
	pub := &fakePublisher{}
	clock := newTestClock(testStart)
	queue := NewQueueService(store, sched, pub, clock)
	svc := NewEventService(store, queue, pub, clock)
	return svc, queue, store, pub
}

func TestCreateEvent(t *testing.T) {
	svc, _, _, _ := newTestEvents(t)

	event, err := svc.CreateEvent(context.Background(), &CreateEventRequest{
		OwnerID:      "owner-1",
		Name:         "Launch Party",
		StartsAt:     testStart.Add(48 * time.Hour),
		Price:        2500,
		TotalTickets: 100,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, 100, event.TotalTickets)
	assert.False(t, event.IsCancelled)
}

func TestUpdateCapacity_CannotDropBelowSold(t *testing.T) {
	svc, queue, store, _ := newTestEvents(t)
	seedEvent(t, store, 3)
	purchase := NewPurchaseService(store, queue, &fakePublisher{}, newTestClock(testStart))

	for _, user := range []string{"user-1", "user-2"} {
		entry, err := queue.Join(context.Background(), "event-1", user)
		require.NoError(t, err)
		_, err = purchase.Purchase(context.Background(), "event-1", user, entry.ID,
			PaymentReceipt{Reference: "ch_" + user, Amount: 2500})
		require.NoError(t, err)
	}

	_, err := svc.UpdateCapacity(context.Background(), "event-1", "owner-1", 1)
	assert.ErrorIs(t, err, models.ErrInvalidState)

	event, err := svc.UpdateCapacity(context.Background(), "event-1", "owner-1", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, event.TotalTickets)
}

func TestUpdateCapacity_RaiseDrainsWaitingList(t *testing.T) {
	svc, queue, store, _ := newTestEvents(t)
	seedEvent(t, store, 0)

	entry, err := queue.Join(context.Background(), "event-1", "user-1")
	require.NoError(t, err)
	require.Equal(t, models.EntryStatusWaiting, entry.Status)

	_, err = svc.UpdateCapacity(context.Background(), "event-1", "owner-1", 1)
	require.NoError(t, err)

	assert.Equal(t, models.EntryStatusOffered, store.entryStatus(entry.ID))
}

func TestUpdateCapacity_OwnerOnly(t *testing.T) {
	svc, _, store, _ := newTestEvents(t)
	seedEvent(t, store, 3)

	_, err := svc.UpdateCapacity(context.Background(), "event-1", "intruder", 10)
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestCancelEvent_OneWay(t *testing.T) {
	svc, _, store, pub := newTestEvents(t)
	seedEvent(t, store, 3)

	require.NoError(t, svc.CancelEvent(context.Background(), "event-1", "owner-1"))

	event, err := store.GetEvent(context.Background(), "event-1")
	require.NoError(t, err)
	assert.True(t, event.IsCancelled)
	assert.Contains(t, pub.published(), models.EventTypeEventCancelled)

	// A second cancel has nothing left to do.
	err = svc.CancelEvent(context.Background(), "event-1", "owner-1")
	assert.ErrorIs(t, err, models.ErrEventCancelled)
}

func TestCancelEvent_OwnerOnly(t *testing.T) {
	svc, _, store, _ := newTestEvents(t)
	seedEvent(t, store, 3)

	err := svc.CancelEvent(context.Background(), "event-1", "intruder")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
