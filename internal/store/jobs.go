package store

import (
	"context"
	"time"

	"waitlist-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateScheduledJob persists a deferred callback. Called inside the same
// WithEventTx that mutates the offer, so the schedule record cannot be lost
// between scheduling and firing.
func (s *Store) CreateScheduledJob(ctx context.Context, job *models.ScheduledJob) error {
	query := `
		INSERT INTO scheduled_jobs (id, kind, run_at, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := sqlx.GetContext(ctx, s.querier(ctx), &job.CreatedAt, query,
		job.ID, job.Kind, job.RunAt, job.Payload)
	return mapStoreError(err)
}

// ClaimDueJobs locks and returns up to limit unfired jobs whose deadline has
// passed. SKIP LOCKED lets concurrent sweepers partition the due set instead
// of blocking on each other.
func (s *Store) ClaimDueJobs(ctx context.Context, now time.Time, limit int) ([]models.ScheduledJob, error) {
	var jobs []models.ScheduledJob
	err := sqlx.SelectContext(ctx, s.querier(ctx), &jobs, `
		SELECT * FROM scheduled_jobs
		WHERE fired_at IS NULL AND run_at <= $1
		ORDER BY run_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`,
		now, limit)
	return jobs, mapStoreError(err)
}

// MarkJobFired records that a job's handler completed. Left unfired on
// handler failure so the next sweep retries it (at-least-once).
func (s *Store) MarkJobFired(ctx context.Context, id string, firedAt time.Time) error {
	_, err := s.querier(ctx).ExecContext(ctx,
		"UPDATE scheduled_jobs SET fired_at = $1 WHERE id = $2", firedAt, id)
	return mapStoreError(err)
}
