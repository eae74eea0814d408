package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rwerner/sourcing-radar/internal/leaselock"
	"github.com/rwerner/sourcing-radar/internal/prune"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// LeaseMaintenance is the lease name for the retention pass.
const LeaseMaintenance = "maintenance"

// MaintenanceJob runs the retention pruner on a schedule.
type MaintenanceJob struct {
	lock     *leaselock.Lock
	holderID string
	leaseTTL time.Duration
	pruner   *prune.Pruner
	logger   *logger.Logger
	schedule string
}

// NewMaintenanceJob creates the maintenance job.
func NewMaintenanceJob(
	lock *leaselock.Lock,
	holderID string,
	leaseTTL time.Duration,
	pruner *prune.Pruner,
	log *logger.Logger,
	schedule string,
) *MaintenanceJob {
	return &MaintenanceJob{
		lock:     lock,
		holderID: holderID,
		leaseTTL: leaseTTL,
		pruner:   pruner,
		logger:   log.Component("maintenance"),
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *MaintenanceJob) Name() string { return "maintenance" }

// Schedule implements scheduler.Job.
func (j *MaintenanceJob) Schedule() string { return j.schedule }

// Run drains the prune backlog in bounded batches.
func (j *MaintenanceJob) Run(ctx context.Context) error {
	ok, err := j.lock.TryAcquireOrRenew(ctx, LeaseMaintenance, j.holderID, j.leaseTTL)
	if err != nil {
		return fmt.Errorf("lease: %w", err)
	}
	if !ok {
		j.logger.Debug("Lease held elsewhere, skipping maintenance")
		return nil
	}

	if _, err := j.pruner.RunAll(ctx); err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	return nil
}
