package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"

	"flowgate/internal/cache"
	"flowgate/internal/storage"
)

// Job statuses.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ErrJobNotFound is returned when a job id does not exist.
var ErrJobNotFound = errors.New("job not found")

// Job is one queued transformation request.
type Job struct {
	ID           string    `db:"id" json:"id"`
	Text         string    `db:"text" json:"text"`
	Intensity    int       `db:"intensity" json:"intensity"`
	Status       string    `db:"status" json:"status"`
	Result       string    `db:"result" json:"result,omitempty"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int       `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProcessFunc performs the transformation for one job.
type ProcessFunc func(ctx context.Context, text string, intensity int) (string, error)

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Claimed   int `json:"claimed"`
	Completed int `json:"completed"`
	Retried   int `json:"retried"`
	Failed    int `json:"failed"`
}

// StatusCounts holds the number of jobs per status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// Queue persists jobs in the jobs table.
type Queue struct {
	db         *sql.DB
	maxRetries int
	log        *slog.Logger
}

// New returns a Queue backed by db. A job fails permanently once it has
// been attempted maxRetries times.
func New(db *sql.DB, maxRetries int, log *slog.Logger) *Queue {
	return &Queue{db: db, maxRetries: maxRetries, log: log}
}

// Enqueue stores a new pending job and returns it.
func (q *Queue) Enqueue(ctx context.Context, text string, intensity int) (*Job, error) {
	job := &Job{
		ID:        uuid.NewString(),
		Text:      text,
		Intensity: intensity,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	job.UpdatedAt = job.CreatedAt

	query, args, err := storage.Builder().
		Insert("jobs").
		Columns("id", "text", "intensity", "status", "retry_count", "created_at", "updated_at").
		Values(job.ID, job.Text, job.Intensity, job.Status, 0, job.CreatedAt, job.UpdatedAt).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build enqueue query: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("enqueue job: %w", err)
	}

	q.log.Info("job enqueued",
		"job_id", job.ID, "text", cache.SanitizeLog(text), "intensity", intensity)
	return job, nil
}

// GetJob returns the job with the given id, or ErrJobNotFound.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	query, args, err := storage.Builder().
		Select("id", "text", "intensity", "status", "result", "error_message",
			"retry_count", "created_at", "updated_at").
		From("jobs").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job query: %w", err)
	}

	var job Job
	if err := sqlscan.Get(ctx, q.db, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return &job, nil
}

// Counts returns the number of jobs per status.
func (q *Queue) Counts(ctx context.Context) (StatusCounts, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var counts StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return StatusCounts{}, fmt.Errorf("scan job count: %w", err)
		}
		switch status {
		case StatusPending:
			counts.Pending = n
		case StatusProcessing:
			counts.Processing = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		}
	}
	return counts, rows.Err()
}

// DrainPending claims up to limit pending jobs in creation order and runs
// process on each. A successful job is marked completed with its result.
// A failed job returns to pending until its retry budget is spent, then
// is marked failed with the last error message.
func (q *Queue) DrainPending(ctx context.Context, limit int, process ProcessFunc) (DrainStats, error) {
	query, args, err := storage.Builder().
		Select("id", "text", "intensity", "status", "result", "error_message",
			"retry_count", "created_at", "updated_at").
		From("jobs").
		Where(squirrel.Eq{"status": StatusPending}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return DrainStats{}, fmt.Errorf("build drain query: %w", err)
	}

	var jobs []*Job
	if err := sqlscan.Select(ctx, q.db, &jobs, query, args...); err != nil {
		return DrainStats{}, fmt.Errorf("list pending jobs: %w", err)
	}

	var stats DrainStats
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		claimed, err := q.claim(ctx, job.ID)
		if err != nil {
			return stats, err
		}
		if !claimed {
			// Another drainer got here first.
			continue
		}
		stats.Claimed++

		result, procErr := process(ctx, job.Text, job.Intensity)
		if procErr != nil {
			retried, err := q.recordFailure(ctx, job, procErr)
			if err != nil {
				return stats, err
			}
			if retried {
				stats.Retried++
			} else {
				stats.Failed++
			}
			continue
		}

		if err := q.complete(ctx, job.ID, result); err != nil {
			return stats, err
		}
		stats.Completed++
	}
	return stats, nil
}

// claim transitions a job from pending to processing. The conditional
// update makes the claim atomic: only one drainer observes a row change.
func (q *Queue) claim(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusProcessing, time.Now().UTC(), id, StatusPending)
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim job %s: %w", id, err)
	}
	return n > 0, nil
}

func (q *Queue) complete(ctx context.Context, id, result string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, result = ?, error_message = '', updated_at = ? WHERE id = ?`,
		StatusCompleted, result, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	q.log.Info("job completed", "job_id", id)
	return nil
}

// recordFailure bumps the retry count and either re-queues the job or
// marks it permanently failed. Returns true when the job will be retried.
func (q *Queue) recordFailure(ctx context.Context, job *Job, procErr error) (bool, error) {
	attempts := job.RetryCount + 1
	status := StatusPending
	if attempts >= q.maxRetries {
		status = StatusFailed
	}

	_, err := q.db.ExecContext(ctx,
		`UPDATE jobs SET status = ?, retry_count = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, attempts, procErr.Error(), time.Now().UTC(), job.ID)
	if err != nil {
		return false, fmt.Errorf("record job failure %s: %w", job.ID, err)
	}

	if status == StatusFailed {
		q.log.Warn("job failed permanently",
			"job_id", job.ID, "attempts", attempts, "error", procErr)
		return false, nil
	}
	q.log.Info("job will be retried",
		"job_id", job.ID, "attempts", attempts, "error", procErr)
	return true, nil
}
