package contracts

import "time"

// Agent groups scheduled search queries under one run interval.
type Agent struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	IntervalMinutes int           `json:"interval_minutes"`
	Enabled         bool          `json:"enabled"`
	Queries         []AgentQuery  `json:"queries,omitempty"`
}

// AgentQuery is one platform+keyword search an agent executes. A query is due
// when NextRunAt is at or before now.
type AgentQuery struct {
	ID       int64  `json:"id"`
	AgentID  int64  `json:"agent_id"`
	Platform string `json:"platform"`
	Keyword  string `json:"keyword"`
	MaxPages int    `json:"max_pages"`
	Enrich   bool   `json:"enrich"`
	Enabled  bool   `json:"enabled"`

	NextRunAt time.Time  `json:"next_run_at"`
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Due reports whether the query should run now.
func (q *AgentQuery) Due(now time.Time) bool {
	return q.Enabled && !q.NextRunAt.After(now)
}
