package privacy

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"

	"flowgate/internal/storage"
)

// Term is a user-supplied sensitive vocabulary entry.
type Term struct {
	Term      string    `db:"term" json:"term"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// TermStore persists custom sensitive terms in the sensitive_terms table.
type TermStore struct {
	db *sql.DB
}

// NewTermStore creates a term store over the given database.
func NewTermStore(db *sql.DB) *TermStore {
	return &TermStore{db: db}
}

// Add registers a term. It returns false without error when the term is
// already registered.
func (ts *TermStore) Add(ctx context.Context, term, category string) (bool, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return false, fmt.Errorf("term is required")
	}
	if category == "" {
		category = "custom"
	}

	query, args, err := storage.Builder().
		Insert("sensitive_terms").
		Columns("term", "category", "created_at").
		Values(term, category, time.Now().UTC()).
		Suffix("ON CONFLICT (term) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert term: %w", err)
	}

	res, err := ts.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("insert term: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert term rows affected: %w", err)
	}
	return affected > 0, nil
}

// Remove deletes a term. Removing an unknown term is not an error.
func (ts *TermStore) Remove(ctx context.Context, term string) error {
	query, args, err := storage.Builder().
		Delete("sensitive_terms").
		Where(squirrel.Eq{"term": term}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete term: %w", err)
	}
	if _, err := ts.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// List returns all registered terms ordered alphabetically.
func (ts *TermStore) List(ctx context.Context) ([]Term, error) {
	query, args, err := storage.Builder().
		Select("term", "category", "created_at").
		From("sensitive_terms").
		OrderBy("term ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list terms: %w", err)
	}

	var terms []Term
	if err := sqlscan.Select(ctx, ts.db, &terms, query, args...); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindInText returns the registered terms that occur in text, as a simple
// substring containment scan. At the expected vocabulary size (hundreds of
// terms) this beats maintaining a search index.
func (ts *TermStore) FindInText(ctx context.Context, text string) ([]string, error) {
	terms, err := ts.List(ctx)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, t := range terms {
		if strings.Contains(text, t.Term) {
			found = append(found, t.Term)
		}
	}
	return found, nil
}
