package ledger

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

func newTestLedger(t *testing.T) (*Ledger, *sql.DB) {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "flowgate.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, slog.New(slog.NewTextHandler(io.Discard, nil))), db
}

func appendN(t *testing.T, l *Ledger, n int) []*AuditLog {
	t.Helper()
	recs := make([]*AuditLog, 0, n)
	for i := 0; i < n; i++ {
		rec, err := l.Append(context.Background(), Entry{
			UserID:      "cli",
			ActionType:  "ai_generate",
			TargetTable: "cache_entries",
			AIModel:     "models/test",
			After:       map[string]any{"seq": i},
		})
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

func TestAppend_ChainsFromGenesis(t *testing.T) {
	l, _ := newTestLedger(t)

	recs := appendN(t, l, 3)

	assert.Equal(t, GenesisHash, recs[0].PreviousHash)
	assert.Equal(t, recs[0].CurrentHash, recs[1].PreviousHash)
	assert.Equal(t, recs[1].CurrentHash, recs[2].PreviousHash)
	for _, rec := range recs {
		assert.Len(t, rec.CurrentHash, 64)
	}
}

func TestAppend_CanonicalizesSnapshots(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	// Same map content must hash the same regardless of insertion order.
	a, err := l.Append(ctx, Entry{UserID: "u", ActionType: "x", TargetTable: "t",
		After: map[string]any{"b": 2, "a": 1}})
	require.NoError(t, err)
	b, err := l.Append(ctx, Entry{UserID: "u", ActionType: "x", TargetTable: "t",
		After: map[string]any{"a": 1, "b": 2}})
	require.NoError(t, err)
	assert.Equal(t, a.AfterData, b.AfterData)
	assert.JSONEq(t, `{"a":1,"b":2}`, a.AfterData)
}

func TestVerifyAll_ValidChain(t *testing.T) {
	l, _ := newTestLedger(t)
	appendN(t, l, 5)

	result, err := l.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 5, result.TotalCount)
	assert.Empty(t, result.Errors)
}

func TestVerifyAll_EmptyChainIsValid(t *testing.T) {
	l, _ := newTestLedger(t)

	result, err := l.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Zero(t, result.TotalCount)
}

func TestVerifyAll_DetectsContentTampering(t *testing.T) {
	l, db := newTestLedger(t)
	recs := appendN(t, l, 3)

	_, err := db.Exec(`UPDATE audit_logs SET user_id = 'intruder' WHERE id = ?`, recs[1].ID)
	require.NoError(t, err)

	result, err := l.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "does not match its stored hash")
}

func TestVerifyAll_DetectsBrokenChain(t *testing.T) {
	l, db := newTestLedger(t)
	recs := appendN(t, l, 3)

	// Deleting a middle record orphans its successor's previous_hash.
	_, err := db.Exec(`DELETE FROM audit_logs WHERE id = ?`, recs[1].ID)
	require.NoError(t, err)

	result, err := l.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "chain broken")
}

func TestVerifyAll_RehashedTamperStillCaught(t *testing.T) {
	l, db := newTestLedger(t)
	recs := appendN(t, l, 3)

	// An attacker who edits a record and recomputes its hash still breaks
	// the link from the next record.
	tampered := *recs[1]
	tampered.UserID = "intruder"
	_, err := db.Exec(`UPDATE audit_logs SET user_id = ?, current_hash = ? WHERE id = ?`,
		tampered.UserID, computeHash(&tampered), recs[1].ID)
	require.NoError(t, err)

	result, err := l.VerifyAll(context.Background())
	require.NoError(t, err)
	assert.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "chain broken")
}

func TestList_NewestFirstWithPaging(t *testing.T) {
	l, _ := newTestLedger(t)
	recs := appendN(t, l, 5)

	page, err := l.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, recs[4].ID, page[0].ID)
	assert.Equal(t, recs[3].ID, page[1].ID)

	page, err = l.List(context.Background(), 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, recs[0].ID, page[0].ID)
}
