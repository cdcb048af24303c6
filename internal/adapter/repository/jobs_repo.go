package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"portlens/internal/domain"
)

// JobsRepo is the persistent job store. Every status transition is a single
// conditional UPDATE guarded by the expected prior status; losing the guard
// is a normal race outcome, never an error.
type JobsRepo struct {
	pool *pgxpool.Pool
}

func NewJobsRepo(pool *pgxpool.Pool) *JobsRepo {
	return &JobsRepo{pool: pool}
}

const jobColumns = `id, submitter_id, source_type, source_url, file_paths, title,
	candidate_name, status, retry_count, failure_reason, created_at, updated_at`

// Create inserts a new pending job.
func (r *JobsRepo) Create(ctx context.Context, j *domain.Job) error {
	paths, _ := json.Marshal(j.FilePaths)
	_, err := r.pool.Exec(ctx, `INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		j.ID, j.SubmitterID, j.SourceType, j.SourceURL, paths, j.Title,
		j.CandidateName, j.Status, j.RetryCount, j.FailureReason, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a job by id. Unknown ids map to domain.ErrNotFound.
func (r *JobsRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// ListBySubmitter returns a submitter's jobs, newest first.
func (r *JobsRepo) ListBySubmitter(ctx context.Context, submitterID uuid.UUID) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE submitter_id = $1 ORDER BY created_at DESC`, submitterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

// ClaimNext atomically flips the oldest pending job to processing and
// returns it. SKIP LOCKED keeps concurrent claimants from ever blocking on
// the same row; a nil job means nothing is pending.
func (r *JobsRepo) ClaimNext(ctx context.Context) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `UPDATE jobs
		SET status = $1, updated_at = now()
		WHERE id = (
			SELECT id FROM jobs WHERE status = $2
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns,
		domain.StatusProcessing, domain.StatusPending)

	j, err := scanJob(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return j, err
}

// Complete finalizes a processing job: the status flip and the result row
// land in the same transaction, so a reader can never observe one without
// the other. A job deleted while its worker was running is a no-op.
func (r *JobsRepo) Complete(ctx context.Context, id uuid.UUID, res *domain.AnalysisResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin complete: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE jobs SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3`,
		domain.StatusCompleted, id, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Deleted or already finalized elsewhere; nothing to commit.
		return nil
	}

	if err := insertAnalysis(ctx, tx, id, res); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Fail finalizes a processing job as failed, recording the coarse reason
// and spending one retry in the same statement.
func (r *JobsRepo) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `UPDATE jobs
		SET status = $1, failure_reason = $2, retry_count = retry_count + 1, updated_at = now()
		WHERE id = $3 AND status = $4`,
		domain.StatusFailed, reason, id, domain.StatusProcessing)
	return err
}

// Retry requeues a failed job that still has budget. Used by the resubmit path.
func (r *JobsRepo) Retry(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs
		SET status = $1, failure_reason = '', updated_at = now()
		WHERE id = $2 AND status = $3`,
		domain.StatusPending, id, domain.StatusFailed)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// RequeueStale moves orphaned processing jobs back to pending. A job is
// orphaned when its updated_at predates the cutoff: its worker stopped
// heartbeating status transitions and will never finalize it.
func (r *JobsRepo) RequeueStale(ctx context.Context, cutoff time.Time, maxRetries int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs
		SET status = $1, retry_count = retry_count + 1, updated_at = now()
		WHERE status = $2 AND updated_at < $3 AND retry_count < $4`,
		domain.StatusPending, domain.StatusProcessing, cutoff, maxRetries)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// FailStale finalizes orphaned processing jobs whose retry budget is spent.
func (r *JobsRepo) FailStale(ctx context.Context, cutoff time.Time, maxRetries int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs
		SET status = $1, failure_reason = $2, updated_at = now()
		WHERE status = $3 AND updated_at < $4 AND retry_count >= $5`,
		domain.StatusFailed, domain.ReasonStaleWorker, domain.StatusProcessing, cutoff, maxRetries)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a job (and, via cascade, its analysis). Callers may delete
// at any time; active workers observe the missing row as a no-op.
func (r *JobsRepo) Delete(ctx context.Context, id uuid.UUID, submitterID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1 AND submitter_id = $2`, id, submitterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	var paths []byte
	err := row.Scan(&j.ID, &j.SubmitterID, &j.SourceType, &j.SourceURL, &paths,
		&j.Title, &j.CandidateName, &j.Status, &j.RetryCount, &j.FailureReason,
		&j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(paths) > 0 {
		_ = json.Unmarshal(paths, &j.FilePaths)
	}
	return &j, nil
}
