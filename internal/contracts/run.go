package contracts

import (
	"time"

	"github.com/google/uuid"
)

// RunTrigger records what started a run.
type RunTrigger string

const (
	TriggerSchedule   RunTrigger = "schedule"
	TriggerManual     RunTrigger = "manual"
	TriggerAgentQuery RunTrigger = "agent_query"
)

// RunOutcome is the final classification of one pipeline run.
type RunOutcome string

const (
	// OutcomeOK means the run completed, possibly with zero results.
	OutcomeOK RunOutcome = "ok"
	// OutcomeBlocked means the upstream served an anti-bot challenge.
	OutcomeBlocked RunOutcome = "blocked"
	// OutcomeDegraded flags sustained zero-result scraping on a platform.
	OutcomeDegraded RunOutcome = "degraded"
	// OutcomeError means a run-level failure aborted the tick.
	OutcomeError RunOutcome = "error"
)

// Run is one pipeline execution for one trigger. Append-only once finished.
type Run struct {
	ID         uuid.UUID  `json:"id"`
	Trigger    RunTrigger `json:"trigger"`
	Platform   string     `json:"platform"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	Outcome      RunOutcome `json:"outcome,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`

	ListingsScraped int `json:"listings_scraped"`
	CandidatesNew   int `json:"candidates_new"`
	CandidatesReady int `json:"candidates_ready"`
}

// NewRun starts a run record with a fresh identity.
func NewRun(trigger RunTrigger, platform string) *Run {
	return &Run{
		ID:        uuid.New(),
		Trigger:   trigger,
		Platform:  platform,
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the outcome and completion time.
func (r *Run) Finish(outcome RunOutcome, errMsg string) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	r.Outcome = outcome
	r.ErrorMessage = errMsg
}
