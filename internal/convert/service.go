package convert

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/internal/valuation"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

var (
	// ErrAlreadyConverted guards idempotency: a candidate converts at most
	// once.
	ErrAlreadyConverted = errors.New("candidate already converted")
	// ErrNotConvertible rejects conversion from a state the machine forbids.
	ErrNotConvertible = errors.New("candidate not in a convertible state")
	// ErrNoMatches means no usable matches remain after the subset choice.
	ErrNoMatches = errors.New("no matches to allocate against")
)

// candidateReader loads candidates outside the conversion transaction.
type candidateReader interface {
	GetByID(ctx context.Context, id int64) (*contracts.Candidate, error)
}

// matchReader loads a candidate's matches.
type matchReader interface {
	ListByCandidate(ctx context.Context, candidateID int64) ([]contracts.Match, error)
}

// purchaseWriter inserts purchase rows on the conversion transaction, so the
// purchase and the candidate link commit atomically.
type purchaseWriter interface {
	CreatePurchaseTx(ctx context.Context, tx pgx.Tx, req *contracts.PurchaseRequest) (int64, error)
}

// Service converts candidates into purchase records. Preview and Convert
// share the same request-building path so what the user approves is what gets
// committed.
type Service struct {
	pool       *pgxpool.Pool
	candidates candidateReader
	matches    matchReader
	creator    purchaseWriter
	settings   contracts.SettingsReader
	logger     *logger.Logger
}

// NewService creates a conversion service.
func NewService(pool *pgxpool.Pool, candidates candidateReader, matches matchReader,
	creator purchaseWriter, s contracts.SettingsReader, log *logger.Logger) *Service {
	return &Service{
		pool:       pool,
		candidates: candidates,
		matches:    matches,
		creator:    creator,
		settings:   s,
		logger:     log.Component("convert"),
	}
}

// Preview computes the purchase request without side effects.
func (s *Service) Preview(ctx context.Context, candidateID int64, matchIDs []int64) (*contracts.PurchaseRequest, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	return s.buildRequest(ctx, c, matchIDs)
}

// Convert creates the purchase and marks the candidate CONVERTED in one
// transaction. The row lock serializes concurrent conversions of the same
// candidate; the loser sees the purchase link and fails with
// ErrAlreadyConverted, leaving state untouched.
func (s *Service) Convert(ctx context.Context, candidateID int64, matchIDs []int64) (int64, error) {
	c, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return 0, err
	}

	req, err := s.buildRequest(ctx, c, matchIDs)
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin conversion: %w", err)
	}
	defer tx.Rollback(ctx)

	var status contracts.CandidateStatus
	var purchaseID *int64
	err = tx.QueryRow(ctx, `
		SELECT status, purchase_id FROM radar.candidates WHERE id = $1 FOR UPDATE
	`, candidateID).Scan(&status, &purchaseID)
	if err != nil {
		return 0, fmt.Errorf("lock candidate %d: %w", candidateID, err)
	}

	if purchaseID != nil {
		return 0, ErrAlreadyConverted
	}
	if !status.CanTransitionTo(contracts.StatusConverted) {
		return 0, fmt.Errorf("%w: %s", ErrNotConvertible, status)
	}

	newPurchaseID, err := s.creator.CreatePurchaseTx(ctx, tx, req)
	if err != nil {
		return 0, fmt.Errorf("create purchase: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE radar.candidates
		SET status = $2, status_reason = $3, purchase_id = $4, updated_at = NOW()
		WHERE id = $1
	`, candidateID, contracts.StatusConverted,
		fmt.Sprintf("converted to purchase %d", newPurchaseID), newPurchaseID); err != nil {
		return 0, fmt.Errorf("link purchase: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit conversion: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"candidate_id": candidateID,
		"purchase_id":  newPurchaseID,
		"lines":        len(req.Lines),
	}).Info("Candidate converted")

	return newPurchaseID, nil
}

// buildRequest chooses the match subset, allocates the acquisition price by
// payout weight and assembles the purchase lines.
func (s *Service) buildRequest(ctx context.Context, c *contracts.Candidate, matchIDs []int64) (*contracts.PurchaseRequest, error) {
	all, err := s.matches.ListByCandidate(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("load matches: %w", err)
	}

	chosen := chooseMatches(all, matchIDs)
	if len(chosen) == 0 {
		return nil, ErrNoMatches
	}

	params := valuation.LoadParams(ctx, s.settings)
	defaultCondition := s.settings.Text(ctx, settings.KeyDefaultCondition)

	weights := make([]int64, len(chosen))
	for i := range chosen {
		weights[i] = valuation.PayoutCents(&chosen[i], params)
	}

	total := c.AcquisitionPriceCents()
	shares := Allocate(total, weights)

	lines := make([]contracts.PurchaseLine, len(chosen))
	for i, m := range chosen {
		condition := m.AdjustedCondition
		if condition == "" {
			condition = defaultCondition
		}
		lines[i] = contracts.PurchaseLine{
			CatalogEntryID: m.CatalogEntryID,
			MatchID:        m.ID,
			Condition:      condition,
			PriceCents:     shares[i],
		}
	}

	return &contracts.PurchaseRequest{
		CandidateID:     c.ID,
		Platform:        c.Platform,
		ExternalID:      c.ExternalID,
		Title:           c.Title,
		TotalPriceCents: total,
		Lines:           lines,
	}, nil
}

// chooseMatches picks the conversion subset: an explicit id list when given,
// otherwise every confirmed match, otherwise every non-rejected one. Rejected
// matches never convert, even by explicit id.
func chooseMatches(all []contracts.Match, matchIDs []int64) []contracts.Match {
	if len(matchIDs) > 0 {
		wanted := make(map[int64]bool, len(matchIDs))
		for _, id := range matchIDs {
			wanted[id] = true
		}
		var out []contracts.Match
		for _, m := range all {
			if wanted[m.ID] && !m.Rejected {
				out = append(out, m)
			}
		}
		return out
	}

	var confirmed, usable []contracts.Match
	for _, m := range all {
		if m.Rejected {
			continue
		}
		usable = append(usable, m)
		if m.Confirmed {
			confirmed = append(confirmed, m)
		}
	}
	if len(confirmed) > 0 {
		return confirmed
	}
	return usable
}
