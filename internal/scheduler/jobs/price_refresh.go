package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rwerner/sourcing-radar/internal/catalog"
	"github.com/rwerner/sourcing-radar/internal/external/marketdata"
	"github.com/rwerner/sourcing-radar/internal/leaselock"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// LeasePriceRefresh is the lease name for the catalog price refresh.
const LeasePriceRefresh = "price_refresh"

// PriceRefreshJob pulls fresh market metrics for every catalog entry and
// stores them as new snapshots. Match snapshots are never touched; only
// future matching sees the new data.
type PriceRefreshJob struct {
	lock     *leaselock.Lock
	holderID string
	leaseTTL time.Duration
	catalog  *catalog.Provider
	client   *marketdata.Client
	logger   *logger.Logger
	schedule string
}

// NewPriceRefreshJob creates the refresh job.
func NewPriceRefreshJob(
	lock *leaselock.Lock,
	holderID string,
	leaseTTL time.Duration,
	provider *catalog.Provider,
	client *marketdata.Client,
	log *logger.Logger,
	schedule string,
) *PriceRefreshJob {
	return &PriceRefreshJob{
		lock:     lock,
		holderID: holderID,
		leaseTTL: leaseTTL,
		catalog:  provider,
		client:   client,
		logger:   log.Component("price_refresh"),
		schedule: schedule,
	}
}

// Name implements scheduler.Job.
func (j *PriceRefreshJob) Name() string { return "price_refresh" }

// Schedule implements scheduler.Job.
func (j *PriceRefreshJob) Schedule() string { return j.schedule }

// Run refreshes every entry, isolating per-entry failures.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	ok, err := j.lock.TryAcquireOrRenew(ctx, LeasePriceRefresh, j.holderID, j.leaseTTL)
	if err != nil {
		return fmt.Errorf("lease: %w", err)
	}
	if !ok {
		j.logger.Debug("Lease held elsewhere, skipping refresh")
		return nil
	}

	entries, err := j.catalog.Entries(ctx)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	refreshed, failed := 0, 0
	for _, entry := range entries {
		if entry.SKU == "" {
			continue
		}

		// Renew before each batch of outbound calls; a large catalog must
		// not outlive the lease.
		if ok, err := j.lock.TryAcquireOrRenew(ctx, LeasePriceRefresh, j.holderID, j.leaseTTL); err != nil || !ok {
			j.logger.Warn("Lost the refresh lease mid-run, aborting")
			return err
		}

		snapshot, err := j.client.FetchMetrics(ctx, entry.SKU)
		if err != nil {
			failed++
			j.logger.WithError(err).WithField("sku", entry.SKU).Warn("Metrics fetch failed")
			continue
		}

		if err := j.catalog.UpsertSnapshot(ctx, entry.ID, snapshot); err != nil {
			failed++
			j.logger.WithError(err).WithField("sku", entry.SKU).Error("Snapshot write failed")
			continue
		}
		refreshed++
	}

	j.logger.WithFields(map[string]interface{}{
		"entries":   len(entries),
		"refreshed": refreshed,
		"failed":    failed,
	}).Info("Price refresh done")

	return nil
}
