// Package agents stores the optional scheduling layer above raw search
// terms: an agent groups queries that run on the agent's interval.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// Repository persists agents and their queries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates an agent repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// DueQueries returns every enabled query of an enabled agent whose
// next_run_at has passed, oldest first so starved queries go first.
func (r *Repository) DueQueries(ctx context.Context, now time.Time) ([]contracts.AgentQuery, error) {
	query := `
		SELECT q.id, q.agent_id, q.platform, q.keyword, q.max_pages, q.enrich,
			q.enabled, q.next_run_at, q.last_run_at, q.last_error
		FROM radar.agent_queries q
		JOIN radar.agents a ON a.id = q.agent_id
		WHERE q.enabled AND a.enabled AND q.next_run_at <= $1
		ORDER BY q.next_run_at
	`

	rows, err := r.db.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query due agent queries: %w", err)
	}
	defer rows.Close()

	var out []contracts.AgentQuery
	for rows.Next() {
		var q contracts.AgentQuery
		if err := rows.Scan(&q.ID, &q.AgentID, &q.Platform, &q.Keyword, &q.MaxPages,
			&q.Enrich, &q.Enabled, &q.NextRunAt, &q.LastRunAt, &q.LastError); err != nil {
			return nil, fmt.Errorf("scan agent query: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Complete advances a query after a run: next_run_at moves forward by the
// agent's interval from the run time (not from the stale schedule), and the
// last error is recorded or cleared.
func (r *Repository) Complete(ctx context.Context, queryID int64, ranAt time.Time, lastError string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE radar.agent_queries q
		SET last_run_at = $2,
			last_error = $3,
			next_run_at = $2 + make_interval(mins => a.interval_minutes)
		FROM radar.agents a
		WHERE q.id = $1 AND a.id = q.agent_id
	`, queryID, ranAt, lastError)
	if err != nil {
		return fmt.Errorf("complete agent query %d: %w", queryID, err)
	}
	return nil
}

// List returns all agents with their queries for the operator surface.
func (r *Repository) List(ctx context.Context) ([]contracts.Agent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, interval_minutes, enabled FROM radar.agents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []contracts.Agent
	byID := map[int64]int{}
	for rows.Next() {
		var a contracts.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.IntervalMinutes, &a.Enabled); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		byID[a.ID] = len(agents)
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := r.db.Query(ctx, `
		SELECT id, agent_id, platform, keyword, max_pages, enrich, enabled,
			next_run_at, last_run_at, last_error
		FROM radar.agent_queries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query agent queries: %w", err)
	}
	defer qrows.Close()

	for qrows.Next() {
		var q contracts.AgentQuery
		if err := qrows.Scan(&q.ID, &q.AgentID, &q.Platform, &q.Keyword, &q.MaxPages,
			&q.Enrich, &q.Enabled, &q.NextRunAt, &q.LastRunAt, &q.LastError); err != nil {
			return nil, fmt.Errorf("scan agent query: %w", err)
		}
		if idx, ok := byID[q.AgentID]; ok {
			agents[idx].Queries = append(agents[idx].Queries, q)
		}
	}
	return agents, qrows.Err()
}
