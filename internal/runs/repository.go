// Package runs records one row per pipeline execution. Finished rows are
// append-only history; the scheduler reads them back for its interval,
// cooldown and degraded gates.
package runs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// Repository persists runs in radar.runs.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a run repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Start inserts the run row at the moment work begins, so a crashed worker
// leaves a visible unfinished run behind.
func (r *Repository) Start(ctx context.Context, run *contracts.Run) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO radar.runs (id, platform, trigger, started_at)
		VALUES ($1, $2, $3, $4)
	`, run.ID, run.Platform, run.Trigger, run.StartedAt)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// Finish writes the outcome and counters of a completed run.
func (r *Repository) Finish(ctx context.Context, run *contracts.Run) error {
	_, err := r.db.Exec(ctx, `
		UPDATE radar.runs
		SET finished_at = $2, outcome = $3, error_message = $4,
			listings_scraped = $5, candidates_new = $6, candidates_ready = $7
		WHERE id = $1
	`, run.ID, run.FinishedAt, run.Outcome, run.ErrorMessage,
		run.ListingsScraped, run.CandidatesNew, run.CandidatesReady)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `
	id, platform, trigger, started_at, finished_at, outcome, error_message,
	listings_scraped, candidates_new, candidates_ready
`

// LastFinished returns the most recently finished run for a platform, or nil
// when the platform has no history yet.
func (r *Repository) LastFinished(ctx context.Context, platform string) (*contracts.Run, error) {
	query := `SELECT ` + runColumns + `
		FROM radar.runs
		WHERE platform = $1 AND finished_at IS NOT NULL
		ORDER BY finished_at DESC
		LIMIT 1
	`

	run, err := scanRun(r.db.QueryRow(ctx, query, platform))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last run: %w", err)
	}
	return run, nil
}

// ConsecutiveEmpty counts how many finished runs in a row scraped nothing,
// newest first, stopping at the first productive or errored run. Blocked runs
// scraped nothing too, so they extend the streak exactly like a true empty
// result.
func (r *Repository) ConsecutiveEmpty(ctx context.Context, platform string, lookback int) (int, error) {
	query := `SELECT outcome, listings_scraped
		FROM radar.runs
		WHERE platform = $1 AND finished_at IS NOT NULL
		ORDER BY finished_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, platform, lookback)
	if err != nil {
		return 0, fmt.Errorf("query run history: %w", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var outcome string
		var scraped int
		if err := rows.Scan(&outcome, &scraped); err != nil {
			return 0, fmt.Errorf("scan run row: %w", err)
		}
		empty := scraped == 0 && outcome != string(contracts.OutcomeError)
		if !empty {
			break
		}
		count++
	}
	return count, rows.Err()
}

// List returns recent runs, newest first.
func (r *Repository) List(ctx context.Context, limit int) ([]contracts.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+runColumns+` FROM radar.runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []contracts.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*contracts.Run, error) {
	var run contracts.Run
	err := row.Scan(
		&run.ID, &run.Platform, &run.Trigger, &run.StartedAt, &run.FinishedAt,
		&run.Outcome, &run.ErrorMessage,
		&run.ListingsScraped, &run.CandidatesNew, &run.CandidatesReady,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
