// Package store holds the pgx-backed persistence for candidates, matches and
// purchases. All SQL for these tables lives here.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// CandidateStore persists candidates in radar.candidates.
type CandidateStore struct {
	db *pgxpool.Pool
}

// NewCandidateStore creates a candidate store.
func NewCandidateStore(db *pgxpool.Pool) *CandidateStore {
	return &CandidateStore{db: db}
}

// Pool exposes the underlying pool for transactional callers.
func (s *CandidateStore) Pool() *pgxpool.Pool {
	return s.db
}

const candidateColumns = `
	id, platform, external_id, title, description, price_cents, location,
	seller_kind, listing_url, image_urls, raw_payload, posted_at, discovered_at,
	is_auction, current_bid_cents, bid_count, ends_at, max_bid_cents,
	status, status_reason, revenue_cents, cost_cents, profit_cents, roi_bp,
	purchase_id, updated_at
`

// Insert writes a new candidate. Returns false when the (platform,
// external_id) pair already exists; the unique index makes re-ingestion a
// no-op rather than an error.
func (s *CandidateStore) Insert(ctx context.Context, c *contracts.Candidate) (bool, error) {
	query := `
		INSERT INTO radar.candidates (
			platform, external_id, title, description, price_cents, location,
			seller_kind, listing_url, image_urls, raw_payload, posted_at, discovered_at,
			is_auction, current_bid_cents, bid_count, ends_at,
			status, status_reason, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, NOW(),
			$12, $13, $14, $15,
			$16, $17, NOW()
		)
		ON CONFLICT (platform, external_id) DO NOTHING
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		c.Platform, c.ExternalID, c.Title, c.Description, c.PriceCents, c.Location,
		c.SellerKind, c.ListingURL, c.ImageURLs, c.RawPayload, c.PostedAt,
		c.IsAuction, c.CurrentBidCents, c.BidCount, c.EndsAt,
		c.Status, c.StatusReason,
	).Scan(&c.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Conflict: already ingested.
			return false, nil
		}
		return false, fmt.Errorf("insert candidate %s/%s: %w", c.Platform, c.ExternalID, err)
	}

	return true, nil
}

// GetByID loads one candidate.
func (s *CandidateStore) GetByID(ctx context.Context, id int64) (*contracts.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM radar.candidates WHERE id = $1`

	c, err := scanCandidate(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate %d: %w", id, err)
	}
	return c, nil
}

// UpdateStatus persists a status change. The transition must already be
// validated through contracts.Candidate.Transition.
func (s *CandidateStore) UpdateStatus(ctx context.Context, id int64, status contracts.CandidateStatus, reason string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE radar.candidates
		SET status = $2, status_reason = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, reason)
	if err != nil {
		return fmt.Errorf("update candidate %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateValuation persists the valuation outcome in one write.
func (s *CandidateStore) UpdateValuation(ctx context.Context, c *contracts.Candidate) error {
	_, err := s.db.Exec(ctx, `
		UPDATE radar.candidates
		SET status = $2, status_reason = $3,
			revenue_cents = $4, cost_cents = $5, profit_cents = $6, roi_bp = $7,
			max_bid_cents = $8, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Status, c.StatusReason,
		c.RevenueCents, c.CostCents, c.ProfitCents, c.ROIBp, c.MaxBidCents)
	if err != nil {
		return fmt.Errorf("update candidate %d valuation: %w", c.ID, err)
	}
	return nil
}

// UpdateEnrichment merges listing-detail fields into the candidate. Filters
// are never re-evaluated on enriched data.
func (s *CandidateStore) UpdateEnrichment(ctx context.Context, id int64, d *contracts.ListingDetail) error {
	_, err := s.db.Exec(ctx, `
		UPDATE radar.candidates
		SET description = CASE WHEN $2 <> '' THEN $2 ELSE description END,
			image_urls = CASE WHEN cardinality($3::text[]) > 0 THEN $3 ELSE image_urls END,
			posted_at = COALESCE($4, posted_at),
			enriched_at = NOW(),
			updated_at = NOW()
		WHERE id = $1
	`, id, d.Description, d.ImageURLs, d.PostedAt)
	if err != nil {
		return fmt.Errorf("update candidate %d enrichment: %w", id, err)
	}
	return nil
}

// EnrichmentQueue returns candidates worth a detail fetch this run: READY
// first, then the freshest analyzing ones, never more than limit and never
// ones already enriched.
func (s *CandidateStore) EnrichmentQueue(ctx context.Context, platform string, limit int) ([]contracts.Candidate, error) {
	query := `SELECT ` + candidateColumns + `
		FROM radar.candidates
		WHERE platform = $1
		  AND enriched_at IS NULL
		  AND listing_url <> ''
		  AND status IN ('READY', 'ANALYZING', 'NEW')
		ORDER BY (status = 'READY') DESC, discovered_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("query enrichment queue: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// ListFilter narrows and orders the candidate queue.
type ListFilter struct {
	Status         contracts.CandidateStatus
	MinProfitCents *int64
	Platform       string
	SortBy         string // profit | roi | recency
	Limit          int
	Offset         int
}

// List returns candidates for the acquisition queue.
func (s *CandidateStore) List(ctx context.Context, f ListFilter) ([]contracts.Candidate, error) {
	var conds []string
	var args []interface{}

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.MinProfitCents != nil {
		args = append(args, *f.MinProfitCents)
		conds = append(conds, fmt.Sprintf("profit_cents >= $%d", len(args)))
	}
	if f.Platform != "" {
		args = append(args, f.Platform)
		conds = append(conds, fmt.Sprintf("platform = $%d", len(args)))
	}

	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}

	order := "discovered_at DESC"
	switch f.SortBy {
	case "profit":
		order = "profit_cents DESC"
	case "roi":
		order = "roi_bp DESC"
	case "recency", "":
		order = "discovered_at DESC"
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	args = append(args, limit)
	limitIdx := len(args)
	args = append(args, f.Offset)
	offsetIdx := len(args)

	query := fmt.Sprintf(
		`SELECT %s FROM radar.candidates %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		candidateColumns, where, order, limitIdx, offsetIdx,
	)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// PruneTerminal deletes candidates older than cutoff in the given terminal
// statuses, at most cap rows. READY and CONVERTED are structurally excluded
// by the status list the pruner passes in.
func (s *CandidateStore) PruneTerminal(ctx context.Context, cutoff time.Time, statuses []contracts.CandidateStatus, cap int) (int64, error) {
	query := `
		DELETE FROM radar.candidates
		WHERE id IN (
			SELECT id FROM radar.candidates
			WHERE discovered_at < $1
			  AND status = ANY($2)
			ORDER BY discovered_at
			LIMIT $3
		)
	`

	strs := make([]string, len(statuses))
	for i, st := range statuses {
		strs[i] = string(st)
	}

	tag, err := s.db.Exec(ctx, query, cutoff, strs, cap)
	if err != nil {
		return 0, fmt.Errorf("prune candidates: %w", err)
	}
	return tag.RowsAffected(), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*contracts.Candidate, error) {
	var c contracts.Candidate
	err := row.Scan(
		&c.ID, &c.Platform, &c.ExternalID, &c.Title, &c.Description, &c.PriceCents,
		&c.Location, &c.SellerKind, &c.ListingURL, &c.ImageURLs, &c.RawPayload,
		&c.PostedAt, &c.DiscoveredAt,
		&c.IsAuction, &c.CurrentBidCents, &c.BidCount, &c.EndsAt, &c.MaxBidCents,
		&c.Status, &c.StatusReason,
		&c.RevenueCents, &c.CostCents, &c.ProfitCents, &c.ROIBp,
		&c.PurchaseID, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCandidates(rows pgx.Rows) ([]contracts.Candidate, error) {
	var out []contracts.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
