// Package prune deletes aged low-signal candidates in bounded batches.
package prune

import (
	"context"
	"time"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// candidateDeleter is the slice of the candidate store the pruner needs.
type candidateDeleter interface {
	PruneTerminal(ctx context.Context, cutoff time.Time, statuses []contracts.CandidateStatus, cap int) (int64, error)
}

// prunable are the only statuses the pruner may delete. READY and CONVERTED
// candidates survive regardless of age.
var prunable = []contracts.CandidateStatus{
	contracts.StatusLowValue,
	contracts.StatusDiscarded,
	contracts.StatusError,
}

// Pruner deletes candidates past the retention window.
type Pruner struct {
	store    candidateDeleter
	settings contracts.SettingsReader
	logger   *logger.Logger
}

// NewPruner creates a pruner.
func NewPruner(store candidateDeleter, s contracts.SettingsReader, log *logger.Logger) *Pruner {
	return &Pruner{store: store, settings: s, logger: log.Component("prune")}
}

// RunOnce deletes at most one batch and returns the deleted count. Callers
// loop while the batch comes back full.
func (p *Pruner) RunOnce(ctx context.Context) (int64, error) {
	retention := time.Duration(p.settings.Int(ctx, settings.KeyRetentionDays)) * 24 * time.Hour
	batch := int(p.settings.Int(ctx, settings.KeyPruneBatchSize))
	cutoff := time.Now().Add(-retention)

	deleted, err := p.store.PruneTerminal(ctx, cutoff, prunable, batch)
	if err != nil {
		return 0, err
	}

	if deleted > 0 {
		p.logger.WithFields(map[string]interface{}{
			"deleted": deleted,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Pruned candidates")
	}
	return deleted, nil
}

// RunAll loops RunOnce until a batch comes back short, bounding each
// transaction while still draining the backlog.
func (p *Pruner) RunAll(ctx context.Context) (int64, error) {
	batch := p.settings.Int(ctx, settings.KeyPruneBatchSize)

	var total int64
	for {
		deleted, err := p.RunOnce(ctx)
		total += deleted
		if err != nil {
			return total, err
		}
		if deleted < batch {
			return total, nil
		}
		if err := ctx.Err(); err != nil {
			return total, err
		}
	}
}
