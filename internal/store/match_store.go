package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// MatchStore persists candidate/catalog matches in radar.matches. The market
// snapshot is frozen into the row at insert time.
type MatchStore struct {
	db *pgxpool.Pool
}

// NewMatchStore creates a match store.
func NewMatchStore(db *pgxpool.Pool) *MatchStore {
	return &MatchStore{db: db}
}

const matchColumns = `
	m.id, m.candidate_id, m.catalog_entry_id, e.title, m.score, m.method,
	m.sales_rank, m.new_price_cents, m.used_price_cents, m.payout_cents, m.snapshot_at,
	m.confirmed, m.rejected, m.adjusted_condition, m.created_at
`

// Replace rewrites the match set of a candidate: stale matches from earlier
// runs go away, user overrides on surviving (candidate, entry) pairs are kept.
func (s *MatchStore) Replace(ctx context.Context, candidateID int64, matches []contracts.Match) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin match replace: %w", err)
	}
	defer tx.Rollback(ctx)

	entryIDs := make([]int64, len(matches))
	for i, m := range matches {
		entryIDs[i] = m.CatalogEntryID
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM radar.matches
		WHERE candidate_id = $1 AND NOT (catalog_entry_id = ANY($2))
	`, candidateID, entryIDs); err != nil {
		return fmt.Errorf("delete stale matches: %w", err)
	}

	for i := range matches {
		m := &matches[i]
		err := tx.QueryRow(ctx, `
			INSERT INTO radar.matches (
				candidate_id, catalog_entry_id, score, method,
				sales_rank, new_price_cents, used_price_cents, payout_cents, snapshot_at,
				created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
			ON CONFLICT (candidate_id, catalog_entry_id) DO UPDATE SET
				score = EXCLUDED.score,
				method = EXCLUDED.method
			RETURNING id
		`, candidateID, m.CatalogEntryID, m.Score, m.Method,
			m.Snapshot.SalesRank, m.Snapshot.NewPriceCents, m.Snapshot.UsedPriceCents,
			m.Snapshot.PayoutCents, m.Snapshot.SnapshotAt,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("upsert match candidate=%d entry=%d: %w", candidateID, m.CatalogEntryID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit match replace: %w", err)
	}
	return nil
}

// ListByCandidate returns all matches of one candidate, best score first.
func (s *MatchStore) ListByCandidate(ctx context.Context, candidateID int64) ([]contracts.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM radar.matches m
		JOIN catalog.entries e ON e.id = m.catalog_entry_id
		WHERE m.candidate_id = $1
		ORDER BY m.score DESC, m.id
	`

	rows, err := s.db.Query(ctx, query, candidateID)
	if err != nil {
		return nil, fmt.Errorf("query matches for candidate %d: %w", candidateID, err)
	}
	defer rows.Close()

	var out []contracts.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetByID loads one match.
func (s *MatchStore) GetByID(ctx context.Context, id int64) (*contracts.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM radar.matches m
		JOIN catalog.entries e ON e.id = m.catalog_entry_id
		WHERE m.id = $1
	`

	m, err := scanMatch(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get match %d: %w", id, err)
	}
	return m, nil
}

// MatchOverride carries the user-adjustable match fields. Nil means "leave
// unchanged".
type MatchOverride struct {
	Confirmed         *bool
	Rejected          *bool
	AdjustedCondition *string
}

// UpdateOverrides applies user overrides to a match and returns the updated
// row.
func (s *MatchStore) UpdateOverrides(ctx context.Context, id int64, o MatchOverride) (*contracts.Match, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE radar.matches
		SET confirmed = COALESCE($2, confirmed),
			rejected = COALESCE($3, rejected),
			adjusted_condition = COALESCE($4, adjusted_condition)
		WHERE id = $1
	`, id, o.Confirmed, o.Rejected, o.AdjustedCondition)
	if err != nil {
		return nil, fmt.Errorf("update match %d overrides: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}

	return s.GetByID(ctx, id)
}

func scanMatch(row rowScanner) (*contracts.Match, error) {
	var m contracts.Match
	err := row.Scan(
		&m.ID, &m.CandidateID, &m.CatalogEntryID, &m.EntryTitle, &m.Score, &m.Method,
		&m.Snapshot.SalesRank, &m.Snapshot.NewPriceCents, &m.Snapshot.UsedPriceCents,
		&m.Snapshot.PayoutCents, &m.Snapshot.SnapshotAt,
		&m.Confirmed, &m.Rejected, &m.AdjustedCondition, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
