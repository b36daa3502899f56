package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	"flowgate/internal/storage"
)

// errorSentinel marks a stored variant value that records a failed call.
// Such values are never served as hits.
const errorSentinel = "Error:"

// HashText returns the deterministic content digest used as the cache key.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum)[:32]
}

// SanitizeLog renders text for logging without exposing its content.
func SanitizeLog(text string) string {
	if text == "" {
		return "[empty]"
	}
	return fmt.Sprintf("[text:%s...len=%d]", HashText(text)[:8], len(text))
}

// VariantKey encodes the requested intensity as a variant map key.
func VariantKey(intensity int) string {
	return fmt.Sprintf("seasoning_%d", intensity)
}

// Hit is a successful cache lookup.
type Hit struct {
	Result    string
	Intensity int
}

// Store is the SQLite-backed result cache.
type Store struct {
	db         *sql.DB
	ttl        time.Duration
	maxEntries int
	log        *slog.Logger
}

// New creates a Store with the given TTL and capacity.
func New(db *sql.DB, ttl time.Duration, maxEntries int, log *slog.Logger) *Store {
	return &Store{db: db, ttl: ttl, maxEntries: maxEntries, log: log}
}

// Lookup returns the cached result for (text, intensity), or nil on a miss.
// An entry older than the TTL is deleted as a side effect and reported as a
// miss. A hit bumps the entry's last-accessed timestamp.
func (s *Store) Lookup(ctx context.Context, text string, intensity int) (*Hit, error) {
	hashID := HashText(text)

	query, args, err := storage.Builder().
		Select("variants", "created_at").
		From("cache_entries").
		Where(squirrel.Eq{"hash_id": hashID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build cache lookup: %w", err)
	}

	var variantsJSON string
	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&variantsJSON, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup %s: %w", hashID, err)
	}

	if s.expired(createdAt) {
		// Lazy eviction: the expired row is gone after this miss.
		if err := s.deleteEntry(ctx, hashID); err != nil {
			s.log.Warn("cache expire delete failed", "hash", hashID, "error", err)
		}
		return nil, nil
	}

	var variants map[string]string
	if err := json.Unmarshal([]byte(variantsJSON), &variants); err != nil {
		return nil, fmt.Errorf("cache entry %s variants: %w", hashID, err)
	}
	result, ok := variants[VariantKey(intensity)]
	if !ok || strings.HasPrefix(result, errorSentinel) {
		return nil, nil
	}

	if err := s.touch(ctx, hashID); err != nil {
		s.log.Warn("cache touch failed", "hash", hashID, "error", err)
	}
	s.log.Info("cache hit", "text", SanitizeLog(text), "intensity", intensity)
	return &Hit{Result: result, Intensity: intensity}, nil
}

// Put upserts the variant result into the entry for text, creating the
// entry when absent.
func (s *Store) Put(ctx context.Context, text string, intensity int, result string) error {
	hashID := HashText(text)
	now := time.Now().UTC()

	return storage.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var variantsJSON string
		variants := map[string]string{}
		err := tx.QueryRowContext(ctx,
			`SELECT variants FROM cache_entries WHERE hash_id = ?`, hashID,
		).Scan(&variantsJSON)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("cache read for put %s: %w", hashID, err)
		default:
			if err := json.Unmarshal([]byte(variantsJSON), &variants); err != nil {
				return fmt.Errorf("cache entry %s variants: %w", hashID, err)
			}
		}

		variants[VariantKey(intensity)] = result
		merged, err := json.Marshal(variants)
		if err != nil {
			return fmt.Errorf("marshal variants: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
            INSERT INTO cache_entries (hash_id, original_text, variants, created_at, updated_at, last_accessed_at)
            VALUES (?, ?, ?, ?, ?, ?)
            ON CONFLICT (hash_id) DO UPDATE SET variants = excluded.variants, updated_at = excluded.updated_at`,
			hashID, text, string(merged), now, now, now)
		if err != nil {
			return fmt.Errorf("cache upsert %s: %w", hashID, err)
		}
		return nil
	})
}

// EnforceCapacity deletes the least-recently-accessed entries until the
// entry count is back at the configured maximum. Callers batch this after
// bulk insertion rather than invoking it per write.
func (s *Store) EnforceCapacity(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	if count <= s.maxEntries {
		return 0, nil
	}

	excess := count - s.maxEntries
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM cache_entries WHERE hash_id IN (
            SELECT hash_id FROM cache_entries ORDER BY last_accessed_at ASC LIMIT ?
        )`, excess)
	if err != nil {
		return 0, fmt.Errorf("cache evict: %w", err)
	}
	deleted, _ := res.RowsAffected()
	s.log.Info("cache capacity enforced", "deleted", deleted, "limit", s.maxEntries)
	return int(deleted), nil
}

// Sweep deletes every entry past the TTL, independent of read traffic.
// Lazy eviction in Lookup only reclaims entries that are read again; the
// sweep collects the rest.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.ttl)
	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	deleted, _ := res.RowsAffected()
	if deleted > 0 {
		s.log.Info("cache sweep", "deleted", deleted)
	}
	return int(deleted), nil
}

// StartSweeper runs Sweep on a ticker until ctx is canceled.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Sweep(ctx); err != nil {
					s.log.Warn("cache sweep failed", "error", err)
				}
			}
		}
	}()
}

// Count returns the live entry count.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

func (s *Store) expired(createdAt time.Time) bool {
	return time.Since(createdAt) > s.ttl
}

func (s *Store) deleteEntry(ctx context.Context, hashID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE hash_id = ?`, hashID)
	return err
}

func (s *Store) touch(ctx context.Context, hashID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cache_entries SET last_accessed_at = ? WHERE hash_id = ?`,
		time.Now().UTC(), hashID)
	return err
}
