package queue

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowgate/internal/storage"
)

func newTestQueue(t *testing.T, maxRetries int) (*Queue, *sql.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "flowgate.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, maxRetries, log), db
}

func TestEnqueueAndGet(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "polish this", 60)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "polish this", got.Text)
	assert.Equal(t, 60, got.Intensity)
	assert.Equal(t, StatusPending, got.Status)
	assert.Zero(t, got.RetryCount)
}

func TestGetJob_NotFound(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	_, err := q.GetJob(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDrainPending_CompletesJob(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "some text", 30)
	require.NoError(t, err)

	stats, err := q.DrainPending(ctx, 10, func(ctx context.Context, text string, intensity int) (string, error) {
		return "transformed: " + text, nil
	})
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Claimed: 1, Completed: 1}, stats)

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "transformed: some text", got.Result)
	assert.Empty(t, got.ErrorMessage)
}

func TestDrainPending_RetriesUntilBudgetSpent(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "flaky text", 30)
	require.NoError(t, err)

	failing := func(ctx context.Context, text string, intensity int) (string, error) {
		return "", errors.New("upstream timeout")
	}

	// First two attempts leave the job pending with a bumped retry count.
	for attempt := 1; attempt <= 2; attempt++ {
		stats, err := q.DrainPending(ctx, 10, failing)
		require.NoError(t, err)
		assert.Equal(t, DrainStats{Claimed: 1, Retried: 1}, stats)

		got, err := q.GetJob(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, got.Status)
		assert.Equal(t, attempt, got.RetryCount)
	}

	// Third attempt exhausts the budget.
	stats, err := q.DrainPending(ctx, 10, failing)
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Claimed: 1, Failed: 1}, stats)

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, 3, got.RetryCount)
	assert.Equal(t, "upstream timeout", got.ErrorMessage)

	// A failed job is out of the drain path for good.
	stats, err = q.DrainPending(ctx, 10, failing)
	require.NoError(t, err)
	assert.Equal(t, DrainStats{}, stats)
}

func TestDrainPending_FailThenSucceed(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "recovers eventually", 30)
	require.NoError(t, err)

	calls := 0
	flaky := func(ctx context.Context, text string, intensity int) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("transient error")
		}
		return "done", nil
	}

	stats, err := q.DrainPending(ctx, 10, flaky)
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Claimed: 1, Retried: 1}, stats)

	stats, err = q.DrainPending(ctx, 10, flaky)
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Claimed: 1, Completed: 1}, stats)

	got, err := q.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "done", got.Result)
	assert.Equal(t, 1, got.RetryCount)
}

func TestDrainPending_RespectsLimitAndOrder(t *testing.T) {
	q, db := newTestQueue(t, 3)
	ctx := context.Background()

	first, err := q.Enqueue(ctx, "first", 30)
	require.NoError(t, err)
	// Creation order is by timestamp; push the first job back to make
	// the ordering unambiguous.
	_, err = db.Exec(`UPDATE jobs SET created_at = ? WHERE id = ?`,
		time.Now().UTC().Add(-time.Minute), first.ID)
	require.NoError(t, err)

	second, err := q.Enqueue(ctx, "second", 30)
	require.NoError(t, err)

	stats, err := q.DrainPending(ctx, 1, func(ctx context.Context, text string, intensity int) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, DrainStats{Claimed: 1, Completed: 1}, stats)

	got, err := q.GetJob(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = q.GetJob(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
}

func TestClaim_IsAtomic(t *testing.T) {
	q, _ := newTestQueue(t, 3)
	ctx := context.Background()

	job, err := q.Enqueue(ctx, "contested", 30)
	require.NoError(t, err)

	claimed, err := q.claim(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Second claim sees no pending row.
	claimed, err = q.claim(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestCounts(t *testing.T) {
	q, _ := newTestQueue(t, 1)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, "will fail", 30)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, "will complete", 30)
	require.NoError(t, err)

	_, err = q.DrainPending(ctx, 10, func(ctx context.Context, text string, intensity int) (string, error) {
		if text == "will complete" {
			return "ok", nil
		}
		return "", errors.New("nope")
	})
	require.NoError(t, err)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, StatusCounts{Completed: 1, Failed: 1}, counts)
}
