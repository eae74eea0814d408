// Package pipeline executes one sourcing run end to end: fetch listings,
// filter and ingest, match against the catalog, valuate, and record the run.
// The scheduler job, the manual trigger endpoint and the CLI all go through
// the same Runner.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/ingest"
	"github.com/rwerner/sourcing-radar/internal/match"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/internal/valuation"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// candidateUpdater flips candidates into ERROR when their matching fails.
type candidateUpdater interface {
	UpdateStatus(ctx context.Context, id int64, status contracts.CandidateStatus, reason string) error
}

// runRecorder is the slice of the run repository the runner needs.
type runRecorder interface {
	Start(ctx context.Context, run *contracts.Run) error
	Finish(ctx context.Context, run *contracts.Run) error
	LastFinished(ctx context.Context, platform string) (*contracts.Run, error)
	ConsecutiveEmpty(ctx context.Context, platform string, lookback int) (int, error)
}

// EventFunc receives pipeline lifecycle events for the realtime feed. May be
// nil.
type EventFunc func(event string, payload interface{})

// Request describes one pipeline execution.
type Request struct {
	Trigger  contracts.RunTrigger
	Platform string
	Terms    []string
	Paging   contracts.PagingOptions
	Enrich   bool
}

// Runner orchestrates one run. All heavy lifting lives in the stage packages;
// the runner owns ordering, per-candidate error isolation and the run record.
type Runner struct {
	clients    map[string]contracts.MarketplaceClient
	ingestor   *ingest.Ingestor
	matcher    *match.Matcher
	valuer     *valuation.Service
	candidates candidateUpdater
	runs       runRecorder
	settings   contracts.SettingsReader
	logger     *logger.Logger
	publish    EventFunc
}

// NewRunner creates a pipeline runner.
func NewRunner(
	clients map[string]contracts.MarketplaceClient,
	ingestor *ingest.Ingestor,
	matcher *match.Matcher,
	valuer *valuation.Service,
	candidates candidateUpdater,
	runRepo runRecorder,
	s contracts.SettingsReader,
	log *logger.Logger,
	publish EventFunc,
) *Runner {
	return &Runner{
		clients:    clients,
		ingestor:   ingestor,
		matcher:    matcher,
		valuer:     valuer,
		candidates: candidates,
		runs:       runRepo,
		settings:   s,
		logger:     log.Component("pipeline"),
		publish:    publish,
	}
}

// Platforms returns the configured platform keys.
func (r *Runner) Platforms() []string {
	keys := make([]string, 0, len(r.clients))
	for k := range r.clients {
		keys = append(keys, k)
	}
	return keys
}

// ShouldRun applies the scheduling gates for a platform: the cooldown after a
// blocked or failed run always holds; the minimum-interval gate can be
// bypassed with force.
func (r *Runner) ShouldRun(ctx context.Context, platform string, force bool) (bool, string) {
	last, err := r.runs.LastFinished(ctx, platform)
	if err != nil {
		r.logger.WithError(err).Warn("Run history read failed, allowing run")
		return true, ""
	}
	if last == nil || last.FinishedAt == nil {
		return true, ""
	}

	age := time.Since(*last.FinishedAt)

	// A degraded run that carries a fetch error message was a block that
	// crossed the empty-streak threshold; the cooldown must hold for it too.
	blockedOrFailed := last.Outcome == contracts.OutcomeBlocked ||
		last.Outcome == contracts.OutcomeError ||
		(last.Outcome == contracts.OutcomeDegraded && last.ErrorMessage != "")

	if blockedOrFailed {
		cooldown := time.Duration(r.settings.Int(ctx, settings.KeyCooldownMinutes)) * time.Minute
		if age < cooldown {
			return false, fmt.Sprintf("cooldown after %s run, %s remaining",
				last.Outcome, (cooldown - age).Round(time.Second))
		}
	}

	if !force {
		minInterval := time.Duration(r.settings.Int(ctx, settings.KeyMinRunIntervalMin)) * time.Minute
		if age < minInterval {
			return false, fmt.Sprintf("minimum interval not reached, %s remaining",
				(minInterval - age).Round(time.Second))
		}
	}

	return true, ""
}

// Execute performs one run and always returns the finished run record; only
// infrastructure failures (no client, run row writes) surface as errors.
// Fetch-level blocks and errors finish the run with the matching outcome and
// leave the cooldown decision to ShouldRun on the next tick.
func (r *Runner) Execute(ctx context.Context, req Request) (*contracts.Run, error) {
	client, ok := r.clients[req.Platform]
	if !ok {
		return nil, fmt.Errorf("unknown platform %q", req.Platform)
	}

	run := contracts.NewRun(req.Trigger, req.Platform)
	if err := r.runs.Start(ctx, run); err != nil {
		return nil, err
	}
	r.emit("run.started", run)

	res := client.FetchListings(ctx, req.Terms, req.Paging)
	switch {
	case res.Blocked:
		// A block scraped nothing, so it counts toward the empty streak the
		// same as a true empty result. The error message is kept either way;
		// ShouldRun reads it to arm the cooldown.
		msg := res.ErrorMessage
		if msg == "" {
			msg = "blocked by upstream"
		}
		outcome := contracts.OutcomeBlocked
		if r.emptyStreakExceeded(ctx, req.Platform) {
			outcome = contracts.OutcomeDegraded
		}
		return r.finish(ctx, run, outcome, msg)
	case !res.Ok():
		return r.finish(ctx, run, contracts.OutcomeError,
			fmt.Sprintf("%s: %s", res.ErrorKind, res.ErrorMessage))
	}

	run.ListingsScraped = len(res.Listings)

	batch, err := r.ingestor.IngestBatch(ctx, req.Platform, res.Listings)
	if err != nil {
		return r.finish(ctx, run, contracts.OutcomeError, err.Error())
	}
	run.CandidatesNew = len(batch.Inserted)

	// Per-candidate isolation: one bad candidate never aborts the run; the
	// last failure is kept as the run's summary error.
	var lastErr string
	for i := range batch.Inserted {
		c := &batch.Inserted[i]
		if err := r.analyze(ctx, c); err != nil {
			lastErr = fmt.Sprintf("candidate %d: %v", c.ID, err)
			r.logger.WithError(err).WithField("candidate_id", c.ID).
				Error("Candidate analysis failed")
			continue
		}
	}

	run.CandidatesReady = countReady(batch.Inserted)

	if req.Enrich {
		r.ingestor.Enrich(ctx, client)
	}

	outcome := contracts.OutcomeOK
	if run.ListingsScraped == 0 && r.emptyStreakExceeded(ctx, req.Platform) {
		outcome = contracts.OutcomeDegraded
	}

	return r.finish(ctx, run, outcome, lastErr)
}

// emptyStreakExceeded reports whether this run, counted on top of the recent
// streak of zero-scrape runs, reaches the degraded threshold.
func (r *Runner) emptyStreakExceeded(ctx context.Context, platform string) bool {
	degradedAfter := int(r.settings.Int(ctx, settings.KeyDegradedAfterEmpty))
	streak, err := r.runs.ConsecutiveEmpty(ctx, platform, degradedAfter)
	return err == nil && streak+1 >= degradedAfter
}

// analyze runs matching and valuation for one candidate, flipping it to ERROR
// on failure.
func (r *Runner) analyze(ctx context.Context, c *contracts.Candidate) error {
	if _, err := r.matcher.MatchCandidate(ctx, c); err != nil {
		r.markError(ctx, c, fmt.Sprintf("matching failed: %v", err))
		return err
	}

	updated, err := r.valuer.Recalc(ctx, c.ID, false)
	if err != nil {
		r.markError(ctx, c, fmt.Sprintf("valuation failed: %v", err))
		return err
	}

	*c = *updated
	r.emit("candidate.analyzed", updated)
	return nil
}

func (r *Runner) markError(ctx context.Context, c *contracts.Candidate, reason string) {
	if !c.Status.CanTransitionTo(contracts.StatusError) {
		return
	}
	if err := r.candidates.UpdateStatus(ctx, c.ID, contracts.StatusError, reason); err != nil {
		r.logger.WithError(err).WithField("candidate_id", c.ID).
			Error("Failed to mark candidate errored")
	}
}

func countReady(batch []contracts.Candidate) int {
	ready := 0
	for i := range batch {
		if batch[i].Status == contracts.StatusReady {
			ready++
		}
	}
	return ready
}

func (r *Runner) finish(ctx context.Context, run *contracts.Run, outcome contracts.RunOutcome, errMsg string) (*contracts.Run, error) {
	run.Finish(outcome, errMsg)
	if err := r.runs.Finish(ctx, run); err != nil {
		return run, err
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id":   run.ID.String(),
		"platform": run.Platform,
		"outcome":  string(run.Outcome),
		"scraped":  run.ListingsScraped,
		"new":      run.CandidatesNew,
		"ready":    run.CandidatesReady,
	}).Info("Run finished")

	r.emit("run.finished", run)
	return run, nil
}

func (r *Runner) emit(event string, payload interface{}) {
	if r.publish != nil {
		r.publish(event, payload)
	}
}
