package valuation

import (
	"context"
	"fmt"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// candidateStore is the slice of the candidate store the service needs.
type candidateStore interface {
	GetByID(ctx context.Context, id int64) (*contracts.Candidate, error)
	UpdateValuation(ctx context.Context, c *contracts.Candidate) error
}

// matchReader loads a candidate's persisted matches.
type matchReader interface {
	ListByCandidate(ctx context.Context, candidateID int64) ([]contracts.Match, error)
}

// Service recalculates and persists candidate valuations. The same path
// serves the pipeline after matching and the synchronous recalculation a
// match edit triggers.
type Service struct {
	candidates candidateStore
	matches    matchReader
	settings   contracts.SettingsReader
	logger     *logger.Logger
}

// NewService creates a valuation service.
func NewService(candidates candidateStore, matches matchReader, s contracts.SettingsReader, log *logger.Logger) *Service {
	return &Service{
		candidates: candidates,
		matches:    matches,
		settings:   s,
		logger:     log.Component("valuation"),
	}
}

// Recalc re-runs valuation for one candidate from its stored matches and
// persists the outcome. Terminal candidates are rejected with the transition
// error. The auction ceiling is refreshed for auction candidates only.
func (s *Service) Recalc(ctx context.Context, candidateID int64, confirmedOnly bool) (*contracts.Candidate, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	// NEW and ERROR candidates pass through ANALYZING on their way to a
	// decision; READY and LOW_VALUE recompute in place.
	if c.Status == contracts.StatusNew || c.Status == contracts.StatusError {
		if err := c.Transition(contracts.StatusAnalyzing, "recalculating"); err != nil {
			return nil, err
		}
	}

	matches, err := s.matches.ListByCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}

	params := LoadParams(ctx, s.settings)
	result := Recalculate(c, matches, confirmedOnly, params)

	if err := c.Transition(result.Status, result.Reason); err != nil {
		return nil, err
	}
	c.RevenueCents = result.RevenueCents
	c.CostCents = result.CostCents
	c.ProfitCents = result.ProfitCents
	c.ROIBp = result.ROIBp

	if c.IsAuction {
		c.MaxBidCents = MaxBidCeiling(result.RevenueCents, result.Sellable, params)
	}

	if err := s.candidates.UpdateValuation(ctx, c); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"candidate_id": c.ID,
		"status":       string(c.Status),
		"profit_cents": c.ProfitCents,
		"roi_bp":       c.ROIBp,
	}).Debug("Valuation updated")

	return c, nil
}
