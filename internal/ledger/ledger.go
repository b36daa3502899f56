package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"

	"flowgate/internal/storage"
)

// GenesisHash anchors the chain: the first record's previous_hash.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// Entry is the caller-supplied content of one audit record. Before and
// After are canonicalized to JSON before hashing and storage; nil means
// no snapshot.
type Entry struct {
	UserID      string
	ActionType  string
	TargetTable string
	AIModel     string
	Before      any
	After       any
}

// AuditLog is one persisted, hash-chained record.
type AuditLog struct {
	ID           int64     `db:"id" json:"id"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
	UserID       string    `db:"user_id" json:"user_id"`
	ActionType   string    `db:"action_type" json:"action_type"`
	TargetTable  string    `db:"target_table" json:"target_table"`
	AIModel      string    `db:"ai_model" json:"ai_model,omitempty"`
	BeforeData   string    `db:"before_data" json:"before_data,omitempty"`
	AfterData    string    `db:"after_data" json:"after_data,omitempty"`
	PreviousHash string    `db:"previous_hash" json:"previous_hash"`
	CurrentHash  string    `db:"current_hash" json:"current_hash"`
}

// VerificationResult reports a full-chain integrity check.
type VerificationResult struct {
	IsValid    bool     `json:"is_valid"`
	TotalCount int      `json:"total_count"`
	Errors     []string `json:"errors,omitempty"`
}

// Ledger appends to and verifies the audit_logs table.
type Ledger struct {
	db  *sql.DB
	log *slog.Logger
}

func New(db *sql.DB, log *slog.Logger) *Ledger {
	return &Ledger{db: db, log: log}
}

// Append stores a new record linked to the current chain tip. The read of
// the tip and the insert happen in one transaction so concurrent appends
// cannot fork the chain.
func (l *Ledger) Append(ctx context.Context, e Entry) (*AuditLog, error) {
	before, err := canonicalJSON(e.Before)
	if err != nil {
		return nil, fmt.Errorf("canonicalize before snapshot: %w", err)
	}
	after, err := canonicalJSON(e.After)
	if err != nil {
		return nil, fmt.Errorf("canonicalize after snapshot: %w", err)
	}

	rec := &AuditLog{
		Timestamp:   time.Now().UTC(),
		UserID:      e.UserID,
		ActionType:  e.ActionType,
		TargetTable: e.TargetTable,
		AIModel:     e.AIModel,
		BeforeData:  before,
		AfterData:   after,
	}

	err = storage.WithTx(ctx, l.db, func(tx *sql.Tx) error {
		prev := GenesisHash
		row := tx.QueryRowContext(ctx,
			`SELECT current_hash FROM audit_logs ORDER BY id DESC LIMIT 1`)
		if err := row.Scan(&prev); err != nil && err != sql.ErrNoRows {
			return fmt.Errorf("read chain tip: %w", err)
		}

		rec.PreviousHash = prev
		rec.CurrentHash = computeHash(rec)

		query, args, err := storage.Builder().
			Insert("audit_logs").
			Columns("timestamp", "user_id", "action_type", "target_table",
				"ai_model", "before_data", "after_data", "previous_hash", "current_hash").
			Values(rec.Timestamp, rec.UserID, rec.ActionType, rec.TargetTable,
				rec.AIModel, rec.BeforeData, rec.AfterData, rec.PreviousHash, rec.CurrentHash).
			ToSql()
		if err != nil {
			return fmt.Errorf("build append query: %w", err)
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
		rec.ID, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug("audit record appended",
		"id", rec.ID, "action", rec.ActionType, "user_id", rec.UserID)
	return rec, nil
}

// List returns records newest first.
func (l *Ledger) List(ctx context.Context, limit, offset int) ([]*AuditLog, error) {
	query, args, err := storage.Builder().
		Select("id", "timestamp", "user_id", "action_type", "target_table",
			"ai_model", "before_data", "after_data", "previous_hash", "current_hash").
		From("audit_logs").
		OrderBy("id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	var logs []*AuditLog
	if err := sqlscan.Select(ctx, l.db, &logs, query, args...); err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	return logs, nil
}

// VerifyAll walks the whole chain oldest first and runs two independent
// checks on every record: the link to its predecessor, and the integrity
// of its own content against its stored hash. All violations are collected
// rather than stopping at the first.
func (l *Ledger) VerifyAll(ctx context.Context) (VerificationResult, error) {
	query, args, err := storage.Builder().
		Select("id", "timestamp", "user_id", "action_type", "target_table",
			"ai_model", "before_data", "after_data", "previous_hash", "current_hash").
		From("audit_logs").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return VerificationResult{}, fmt.Errorf("build verify query: %w", err)
	}

	var logs []*AuditLog
	if err := sqlscan.Select(ctx, l.db, &logs, query, args...); err != nil {
		return VerificationResult{}, fmt.Errorf("read audit records: %w", err)
	}

	result := VerificationResult{IsValid: true, TotalCount: len(logs)}
	prev := GenesisHash
	for _, rec := range logs {
		if rec.PreviousHash != prev {
			result.Errors = append(result.Errors,
				fmt.Sprintf("record %d: chain broken, previous_hash does not match predecessor", rec.ID))
		}
		if computeHash(rec) != rec.CurrentHash {
			result.Errors = append(result.Errors,
				fmt.Sprintf("record %d: content does not match its stored hash", rec.ID))
		}
		prev = rec.CurrentHash
	}
	result.IsValid = len(result.Errors) == 0
	return result, nil
}

// computeHash hashes the record's content fields in a fixed order, with
// the timestamp normalized to UTC RFC 3339.
func computeHash(rec *AuditLog) string {
	h := sha256.New()
	h.Write([]byte(rec.Timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(rec.UserID))
	h.Write([]byte(rec.ActionType))
	h.Write([]byte(rec.TargetTable))
	h.Write([]byte(rec.AIModel))
	h.Write([]byte(rec.BeforeData))
	h.Write([]byte(rec.AfterData))
	h.Write([]byte(rec.PreviousHash))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// canonicalJSON renders v deterministically: encoding/json sorts map keys,
// so equal values always produce equal bytes.
func canonicalJSON(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
