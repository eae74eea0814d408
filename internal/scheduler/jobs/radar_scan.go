// Package jobs holds the scheduled job implementations: the sourcing scan,
// the catalog price refresh and the retention maintenance pass. Each job
// guards itself with a named lease so any number of worker processes can run
// the same schedule with exactly one doing the work.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rwerner/sourcing-radar/internal/agents"
	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/leaselock"
	"github.com/rwerner/sourcing-radar/internal/pipeline"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// LeaseRadarScan is the lease name serializing sourcing scans across workers.
const LeaseRadarScan = "radar_scan"

// RadarScanJob executes due agent queries (or the default search terms when
// no agents are configured) through the pipeline runner, once per tick, on
// whichever worker holds the lease.
type RadarScanJob struct {
	lock     *leaselock.Lock
	holderID string
	leaseTTL time.Duration
	runner   *pipeline.Runner
	agents   *agents.Repository
	settings contracts.SettingsReader
	logger   *logger.Logger
	schedule string
}

// NewRadarScanJob creates the scan job.
func NewRadarScanJob(
	lock *leaselock.Lock,
	holderID string,
	leaseTTL time.Duration,
	runner *pipeline.Runner,
	agentRepo *agents.Repository,
	s contracts.SettingsReader,
	log *logger.Logger,
	schedule string,
) *RadarScanJob {
	return &RadarScanJob{
		lock:     lock,
		holderID: holderID,
		leaseTTL: leaseTTL,
		runner:   runner,
		agents:   agentRepo,
		settings: s,
		logger:   log.Component("radar_scan"),
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *RadarScanJob) Name() string { return "radar_scan" }

// Schedule implements scheduler.Job.
func (j *RadarScanJob) Schedule() string { return j.schedule }

// Run performs one tick. Returning nil on a lost lease is deliberate: another
// worker doing the work is not a failure.
func (j *RadarScanJob) Run(ctx context.Context) error {
	ok, err := j.lock.TryAcquireOrRenew(ctx, LeaseRadarScan, j.holderID, j.leaseTTL)
	if err != nil {
		return fmt.Errorf("lease: %w", err)
	}
	if !ok {
		j.logger.Debug("Lease held elsewhere, skipping tick")
		return nil
	}

	due, err := j.agents.DueQueries(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("due queries: %w", err)
	}

	if len(due) == 0 {
		return j.runDefaults(ctx)
	}

	for i := range due {
		q := &due[i]

		if ok, reason := j.runner.ShouldRun(ctx, q.Platform, false); !ok {
			j.logger.WithFields(map[string]interface{}{
				"query_id": q.ID,
				"platform": q.Platform,
				"reason":   reason,
			}).Debug("Query gated, leaving it due")
			continue
		}

		// Renew before the blocking fetch, not after: a slow fetch must not
		// let the lease lapse mid-run.
		ok, err := j.lock.TryAcquireOrRenew(ctx, LeaseRadarScan, j.holderID, j.leaseTTL)
		if err != nil || !ok {
			j.logger.Warn("Lost the scan lease mid-tick, aborting")
			return err
		}

		run, err := j.runner.Execute(ctx, pipeline.Request{
			Trigger:  contracts.TriggerAgentQuery,
			Platform: q.Platform,
			Terms:    []string{q.Keyword},
			Paging:   contracts.PagingOptions{MaxPages: q.MaxPages},
			Enrich:   q.Enrich,
		})
		if err != nil {
			return fmt.Errorf("query %d: %w", q.ID, err)
		}

		lastError := ""
		if run.Outcome == contracts.OutcomeBlocked || run.Outcome == contracts.OutcomeError {
			lastError = fmt.Sprintf("%s: %s", run.Outcome, run.ErrorMessage)
		}
		if err := j.agents.Complete(ctx, q.ID, time.Now(), lastError); err != nil {
			j.logger.WithError(err).WithField("query_id", q.ID).
				Error("Failed to advance agent query")
		}
	}

	return nil
}

// runDefaults scans each platform with the configured default search terms
// when no agent query is due.
func (j *RadarScanJob) runDefaults(ctx context.Context) error {
	terms := j.settings.Strings(ctx, settings.KeySearchTerms)
	if len(terms) == 0 {
		return nil
	}

	for _, platform := range j.runner.Platforms() {
		if ok, _ := j.runner.ShouldRun(ctx, platform, false); !ok {
			continue
		}

		ok, err := j.lock.TryAcquireOrRenew(ctx, LeaseRadarScan, j.holderID, j.leaseTTL)
		if err != nil || !ok {
			j.logger.Warn("Lost the scan lease mid-tick, aborting")
			return err
		}

		if _, err := j.runner.Execute(ctx, pipeline.Request{
			Trigger:  contracts.TriggerSchedule,
			Platform: platform,
			Terms:    terms,
			Enrich:   true,
		}); err != nil {
			return err
		}
	}
	return nil
}
