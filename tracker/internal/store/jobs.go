package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/reelwatch/dbopen"
	"github.com/hazyhaar/reelwatch/idgen"
)

const jobColumns = `id, reel_id, user_id, status, priority, created_at,
	started_at, completed_at, error_message,
	result_views, result_likes, result_comments, result_shares`

// EnqueueJob creates a pending job for a reel, deduplicating against jobs
// already in flight: if a pending or running job exists for the reel, that
// job is returned unchanged and created reports false.
func (s *Store) EnqueueJob(ctx context.Context, reelID, userID string, priority int) (job *ParseJob, created bool, err error) {
	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM parse_jobs
			WHERE reel_id = ? AND status IN (?, ?)
			LIMIT 1`, reelID, JobPending, JobRunning)
		existing, err := scanJob(row)
		if err != nil {
			return err
		}
		if existing != nil {
			job = existing
			return nil
		}

		j := &ParseJob{
			ID:        idgen.New(),
			ReelID:    reelID,
			UserID:    userID,
			Status:    JobPending,
			Priority:  priority,
			CreatedAt: time.Now().UnixMilli(),
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO parse_jobs (id, reel_id, user_id, status, priority, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			j.ID, j.ReelID, j.UserID, j.Status, j.Priority, j.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}
		job = j
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return job, created, nil
}

// ClaimNextJob atomically flips the best pending job to running and returns
// it. Best means highest priority, then oldest. The select and the status
// flip happen in one write transaction, so two workers can never claim the
// same job. Returns nil, nil when the queue is empty.
func (s *Store) ClaimNextJob(ctx context.Context) (*ParseJob, error) {
	var claimed *ParseJob
	err := dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+jobColumns+` FROM parse_jobs
			WHERE status = ?
			ORDER BY priority DESC, created_at ASC
			LIMIT 1`, JobPending)
		job, err := scanJob(row)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}

		now := time.Now().UnixMilli()
		res, err := tx.ExecContext(ctx,
			`UPDATE parse_jobs SET status = ?, started_at = ?
			WHERE id = ? AND status = ?`,
			JobRunning, now, job.ID, JobPending)
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		job.Status = JobRunning
		job.StartedAt = &now
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// CompleteJob moves a running job to completed and records its metrics.
// Jobs in any other state are left untouched.
func (s *Store) CompleteJob(ctx context.Context, jobID string, m JobMetrics) error {
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.DB,
		`UPDATE parse_jobs SET status = ?, completed_at = ?,
		result_views = ?, result_likes = ?, result_comments = ?, result_shares = ?
		WHERE id = ? AND status = ?`,
		JobCompleted, now, m.Views, m.Likes, m.Comments, m.Shares,
		jobID, JobRunning)
	return err
}

// FailJob moves a pending or running job to failed with an error message.
func (s *Store) FailJob(ctx context.Context, jobID, message string) error {
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.DB,
		`UPDATE parse_jobs SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ? AND status IN (?, ?)`,
		JobFailed, now, message, jobID, JobPending, JobRunning)
	return err
}

// GetJob retrieves a job by ID. Returns nil, nil when not found.
func (s *Store) GetJob(ctx context.Context, id string) (*ParseJob, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM parse_jobs WHERE id = ?`, id)
	return scanJob(row)
}

// ListUserJobs returns a tenant's jobs, newest first, capped at limit.
func (s *Store) ListUserJobs(ctx context.Context, userID string, limit int) ([]*ParseJob, error) {
	q := `SELECT ` + jobColumns + ` FROM parse_jobs
		WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*ParseJob
	for rows.Next() {
		j, err := scanJobRows(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// RecoverStuckJobs requeues running jobs whose started_at is older than
// threshold. Such jobs belonged to a worker that died mid-scrape; they go
// back to pending with started_at cleared so any worker can claim them
// again. Returns the number of jobs recovered.
func (s *Store) RecoverStuckJobs(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold).UnixMilli()
	res, err := dbopen.Exec(ctx, s.DB,
		`UPDATE parse_jobs SET status = ?, started_at = NULL
		WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`,
		JobPending, JobRunning, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// UserQueueStatus summarises a tenant's queue. interval is the tenant's
// tariff parse interval; canEnqueueNow is false only while the interval
// since the last completed job has not elapsed. In-flight jobs are
// reported in the counts but do not block enqueueing, since EnqueueJob
// dedups against them anyway.
func (s *Store) UserQueueStatus(ctx context.Context, userID string, interval time.Duration) (*QueueStatus, error) {
	st := &QueueStatus{IntervalMinutes: int(interval.Minutes())}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM parse_jobs
		WHERE user_id = ? AND status IN (?, ?)
		GROUP BY status`, userID, JobPending, JobRunning)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan queue status: %w", err)
		}
		switch JobStatus(status) {
		case JobPending:
			st.PendingCount = count
		case JobRunning:
			st.RunningCount = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullInt64
	err = s.DB.QueryRowContext(ctx,
		`SELECT MAX(completed_at) FROM parse_jobs
		WHERE user_id = ? AND status = ?`, userID, JobCompleted).Scan(&last)
	if err != nil {
		return nil, err
	}
	if last.Valid {
		v := last.Int64
		st.LastCompletedAt = &v
	}

	st.CanEnqueueNow = true
	if st.LastCompletedAt != nil && interval > 0 {
		next := *st.LastCompletedAt + interval.Milliseconds()
		if next > time.Now().UnixMilli() {
			st.CanEnqueueNow = false
			st.NextAllowedAt = &next
		}
	}
	return st, nil
}

// LastCompletedAt returns the completed_at of a tenant's most recent
// completed job, or nil when none exists.
func (s *Store) LastCompletedAt(ctx context.Context, userID string) (*int64, error) {
	var last sql.NullInt64
	err := s.DB.QueryRowContext(ctx,
		`SELECT MAX(completed_at) FROM parse_jobs
		WHERE user_id = ? AND status = ?`, userID, JobCompleted).Scan(&last)
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	v := last.Int64
	return &v, nil
}

// InFlightCount returns the number of a tenant's pending plus running jobs.
func (s *Store) InFlightCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM parse_jobs
		WHERE user_id = ? AND status IN (?, ?)`,
		userID, JobPending, JobRunning).Scan(&count)
	return count, err
}

func scanJob(row *sql.Row) (*ParseJob, error) {
	var j ParseJob
	var errMsg sql.NullString
	err := row.Scan(
		&j.ID, &j.ReelID, &j.UserID, &j.Status, &j.Priority, &j.CreatedAt,
		&j.StartedAt, &j.CompletedAt, &errMsg,
		&j.ResultViews, &j.ResultLikes, &j.ResultComments, &j.ResultShares,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.ErrorMessage = errMsg.String
	return &j, nil
}

func scanJobRows(rows *sql.Rows) (*ParseJob, error) {
	var j ParseJob
	var errMsg sql.NullString
	err := rows.Scan(
		&j.ID, &j.ReelID, &j.UserID, &j.Status, &j.Priority, &j.CreatedAt,
		&j.StartedAt, &j.CompletedAt, &errMsg,
		&j.ResultViews, &j.ResultLikes, &j.ResultComments, &j.ResultShares,
	)
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	j.ErrorMessage = errMsg.String
	return &j, nil
}
