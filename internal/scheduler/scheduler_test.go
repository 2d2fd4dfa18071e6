package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"waitlist-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]*models.ScheduledJob
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: make(map[string]*models.ScheduledJob)}
}

func (f *fakeJobStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeJobStore) CreateScheduledJob(_ context.Context, job *models.ScheduledJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := *job
	f.jobs[job.ID] = &j
	return nil
}

func (f *fakeJobStore) ClaimDueJobs(_ context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var due []models.ScheduledJob
	for _, j := range f.jobs {
		if j.FiredAt == nil && !j.RunAt.After(now) {
			due = append(due, *j)
		}
	}
	sort.Slice(due, func(i, k int) bool { return due[i].RunAt.Before(due[k].RunAt) })
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

func (f *fakeJobStore) MarkJobFired(_ context.Context, id string, firedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if j, ok := f.jobs[id]; ok {
		t := firedAt
		j.FiredAt = &t
	}
	return nil
}

func (f *fakeJobStore) fired(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	return ok && j.FiredAt != nil
}

type fakeLocker struct {
	denied bool
}

func (f *fakeLocker) AcquireLock(context.Context, string, time.Duration) (bool, error) {
	return !f.denied, nil
}

func (f *fakeLocker) ReleaseLock(context.Context, string) error {
	return nil
}

func TestSweep_FiresDueJobs(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, nil, time.Second, 100)

	var mu sync.Mutex
	var payloads []string
	s.Register("test_kind", func(_ context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		payloads = append(payloads, string(payload))
		return nil
	})

	id, err := s.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), "test_kind", map[string]string{"k": "v"})
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))

	assert.True(t, store.fired(id))
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, payloads, 1)
	assert.JSONEq(t, `{"k":"v"}`, payloads[0])
}

func TestSweep_SkipsFutureJobs(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, nil, time.Second, 100)

	called := false
	s.Register("test_kind", func(context.Context, []byte) error {
		called = true
		return nil
	})

	id, err := s.ScheduleAt(context.Background(), time.Now().Add(time.Hour), "test_kind", nil)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))

	assert.False(t, called)
	assert.False(t, store.fired(id))
}

func TestSweep_FiredJobNotRefired(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, nil, time.Second, 100)

	count := 0
	s.Register("test_kind", func(context.Context, []byte) error {
		count++
		return nil
	})

	_, err := s.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), "test_kind", nil)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))
	require.NoError(t, s.Sweep(context.Background()))

	assert.Equal(t, 1, count)
}

func TestSweep_FailedHandlerRetriedNextSweep(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, nil, time.Second, 100)

	attempts := 0
	s.Register("test_kind", func(context.Context, []byte) error {
		attempts++
		if attempts == 1 {
			return errors.New("transient failure")
		}
		return nil
	})

	id, err := s.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), "test_kind", nil)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))
	assert.False(t, store.fired(id), "failed job must stay unfired")

	require.NoError(t, s.Sweep(context.Background()))
	assert.True(t, store.fired(id))
	assert.Equal(t, 2, attempts)
}

func TestSweep_UnknownKindStaysUnfired(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, nil, time.Second, 100)

	id, err := s.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), "unregistered", nil)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))
	assert.False(t, store.fired(id))
}

func TestSweep_SkipsWhenLockHeldElsewhere(t *testing.T) {
	store := newFakeJobStore()
	s := New(store, &fakeLocker{denied: true}, time.Second, 100)

	called := false
	s.Register("test_kind", func(context.Context, []byte) error {
		called = true
		return nil
	})

	_, err := s.ScheduleAt(context.Background(), time.Now().Add(-time.Minute), "test_kind", nil)
	require.NoError(t, err)

	require.NoError(t, s.Sweep(context.Background()))
	assert.False(t, called)
}
