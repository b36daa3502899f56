package cache

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flowgate/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, ttl time.Duration, maxEntries int) (*Store, *sql.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "flowgate.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, ttl, maxEntries, testLogger()), db
}

func insertEntry(t *testing.T, db *sql.DB, text, variantsJSON string, createdAt, accessedAt time.Time) {
	t.Helper()
	_, err := db.Exec(`
        INSERT INTO cache_entries (hash_id, original_text, variants, created_at, updated_at, last_accessed_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		HashText(text), text, variantsJSON, createdAt, createdAt, accessedAt)
	require.NoError(t, err)
}

func TestHashText(t *testing.T) {
	h := HashText("some text")
	assert.Len(t, h, 32)
	assert.Equal(t, h, HashText("some text"))
	assert.NotEqual(t, h, HashText("other text"))
}

func TestSanitizeLog(t *testing.T) {
	assert.Equal(t, "[empty]", SanitizeLog(""))
	got := SanitizeLog("hello world")
	assert.Contains(t, got, "[text:")
	assert.Contains(t, got, "len=11]")
	assert.NotContains(t, got, "hello")
}

func TestLookup_MissWhenEmpty(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 100)
	hit, err := s.Lookup(context.Background(), "unknown", 30)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestPutLookup_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 100)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "input text", 30, "polished text"))

	hit, err := s.Lookup(ctx, "input text", 30)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "polished text", hit.Result)
	assert.Equal(t, 30, hit.Intensity)

	// Other intensity for the same text is a separate variant.
	hit, err = s.Lookup(ctx, "input text", 60)
	require.NoError(t, err)
	assert.Nil(t, hit)

	require.NoError(t, s.Put(ctx, "input text", 60, "richer text"))
	hit, err = s.Lookup(ctx, "input text", 60)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "richer text", hit.Result)
}

func TestLookup_ErrorSentinelIsNotAHit(t *testing.T) {
	s, _ := newTestStore(t, time.Hour, 100)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "bad input", 30, "Error: upstream exploded"))

	hit, err := s.Lookup(ctx, "bad input", 30)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestLookup_TTLExpiryDeletesLazily(t *testing.T) {
	s, db := newTestStore(t, 168*time.Hour, 100)
	ctx := context.Background()

	// Eight days old with a seven day TTL.
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)
	insertEntry(t, db, "old onigiri", `{"seasoning_30":"stale data"}`, old, old)

	hit, err := s.Lookup(ctx, "old onigiri", 30)
	require.NoError(t, err)
	assert.Nil(t, hit)

	// The expired row is deleted as a side effect of the miss.
	var count int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM cache_entries WHERE hash_id = ?`, HashText("old onigiri"),
	).Scan(&count))
	assert.Zero(t, count)
}

func TestLookup_BumpsLastAccessed(t *testing.T) {
	s, db := newTestStore(t, time.Hour, 100)
	ctx := context.Background()

	stale := time.Now().UTC().Add(-10 * time.Minute)
	insertEntry(t, db, "warm text", `{"seasoning_30":"result"}`, stale, stale)

	hit, err := s.Lookup(ctx, "warm text", 30)
	require.NoError(t, err)
	require.NotNil(t, hit)

	var accessed time.Time
	require.NoError(t, db.QueryRow(
		`SELECT last_accessed_at FROM cache_entries WHERE hash_id = ?`, HashText("warm text"),
	).Scan(&accessed))
	assert.True(t, accessed.After(stale), "last_accessed_at should be bumped on hit")
}

func TestEnforceCapacity_EvictsLeastRecentlyAccessed(t *testing.T) {
	s, db := newTestStore(t, time.Hour, 2)
	ctx := context.Background()

	now := time.Now().UTC()
	insertEntry(t, db, "item_0", `{}`, now, now.Add(-10*time.Minute))
	insertEntry(t, db, "item_1", `{}`, now, now.Add(-9*time.Minute))
	insertEntry(t, db, "item_new", `{}`, now, now)

	deleted, err := s.EnforceCapacity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// The least recently accessed entry is the one that went.
	var n int
	require.NoError(t, db.QueryRow(
		`SELECT COUNT(*) FROM cache_entries WHERE hash_id = ?`, HashText("item_0"),
	).Scan(&n))
	assert.Zero(t, n)
}

func TestEnforceCapacity_NoopUnderLimit(t *testing.T) {
	s, db := newTestStore(t, time.Hour, 10)
	now := time.Now().UTC()
	insertEntry(t, db, "only", `{}`, now, now)

	deleted, err := s.EnforceCapacity(context.Background())
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStartSweeper_RunsPeriodically(t *testing.T) {
	s, db := newTestStore(t, time.Hour, 100)

	now := time.Now().UTC()
	insertEntry(t, db, "expired", `{}`, now.Add(-2*time.Hour), now.Add(-2*time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartSweeper(ctx, 20*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		count, err := s.Count(context.Background())
		require.NoError(t, err)
		if count == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("sweeper did not collect the expired entry in time")
}

func TestSweep_CollectsExpiredWithoutReads(t *testing.T) {
	s, db := newTestStore(t, time.Hour, 100)
	ctx := context.Background()

	now := time.Now().UTC()
	insertEntry(t, db, "expired", `{}`, now.Add(-2*time.Hour), now.Add(-2*time.Hour))
	insertEntry(t, db, "fresh", `{}`, now, now)

	deleted, err := s.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
