package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"waitlist-service/internal/models"
	"waitlist-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStore is the durable backing for scheduled jobs. Job rows survive
// restarts; WithTx holds claimed rows locked while their handlers run.
type JobStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateScheduledJob(ctx context.Context, job *models.ScheduledJob) error
	ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error)
	MarkJobFired(ctx context.Context, id string, firedAt time.Time) error
}

// SweepLocker serializes sweeps across instances. Losing the lock is not an
// error: another instance is already sweeping.
type SweepLocker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Handler processes a fired job. Handlers must be idempotent: jobs fire
// at least once and may be retried after a crash.
type Handler func(ctx context.Context, payload []byte) error

// Scheduler is a durable deferred-execution facility: callbacks are
// persisted with a deadline and fired at-or-after it by a background sweep.
type Scheduler struct {
	store    JobStore
	locker   SweepLocker
	interval time.Duration
	batch    int
	logger   *zap.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	done chan struct{}
	wg   sync.WaitGroup
}

const sweepLockKey = "scheduler:sweep"

// New creates a scheduler sweeping at the given interval
func New(store JobStore, locker SweepLocker, interval time.Duration, batch int) *Scheduler {
	return &Scheduler{
		store:    store,
		locker:   locker,
		interval: interval,
		batch:    batch,
		logger:   util.GetLogger(),
		handlers: make(map[string]Handler),
		done:     make(chan struct{}),
	}
}

// Register binds a handler to a job kind. Must be called before Start.
func (s *Scheduler) Register(kind string, handler Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = handler
}

// ScheduleAt persists a job to fire at-or-after runAt. When called inside a
// store transaction the job record commits atomically with the caller's
// writes.
func (s *Scheduler) ScheduleAt(ctx context.Context, runAt time.Time, kind string, payload interface{}) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := &models.ScheduledJob{
		ID:      uuid.New().String(),
		Kind:    kind,
		RunAt:   runAt,
		Payload: string(data),
	}
	if err := s.store.CreateScheduledJob(ctx, job); err != nil {
		return "", fmt.Errorf("failed to persist scheduled job: %w", err)
	}
	return job.ID, nil
}

// Start runs the sweep loop until the context is cancelled or Stop is called
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("Starting scheduler sweep loop",
		zap.Duration("interval", s.interval),
		zap.Int("batch", s.batch))

	s.wg.Add(1)
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil {
				s.logger.Error("Scheduler sweep failed", zap.Error(err))
			}
		}
	}
}

// Stop terminates the sweep loop
func (s *Scheduler) Stop() {
	close(s.done)
	s.wg.Wait()
}

// Sweep fires all due jobs once. Jobs whose handler fails stay unfired and
// are retried on the next sweep.
func (s *Scheduler) Sweep(ctx context.Context) error {
	if s.locker != nil {
		acquired, err := s.locker.AcquireLock(ctx, sweepLockKey, 2*s.interval)
		if err != nil {
			return fmt.Errorf("failed to acquire sweep lock: %w", err)
		}
		if !acquired {
			return nil
		}
		defer func() {
			if err := s.locker.ReleaseLock(ctx, sweepLockKey); err != nil {
				s.logger.Error("Failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	now := time.Now().UTC()

	return s.store.WithTx(ctx, func(txCtx context.Context) error {
		jobs, err := s.store.ClaimDueJobs(txCtx, now, s.batch)
		if err != nil {
			return err
		}

		for _, job := range jobs {
			// Handlers run outside the claim transaction so they take
			// their own per-event locks.
			if err := s.dispatch(ctx, job); err != nil {
				util.SchedulerJobsFailedTotal.WithLabelValues(job.Kind).Inc()
				s.logger.Error("Scheduled job handler failed",
					zap.String("job_id", job.ID),
					zap.String("kind", job.Kind),
					zap.Error(err))
				continue
			}

			if err := s.store.MarkJobFired(txCtx, job.ID, now); err != nil {
				return err
			}
			util.SchedulerJobsFiredTotal.WithLabelValues(job.Kind).Inc()
		}
		return nil
	})
}

func (s *Scheduler) dispatch(ctx context.Context, job models.ScheduledJob) error {
	s.mu.RLock()
	handler, ok := s.handlers[job.Kind]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("no handler registered for job kind %q", job.Kind)
	}
	return handler(ctx, []byte(job.Payload))
}
