package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// PurchaseStore writes purchase records produced by conversion. It implements
// contracts.PurchaseCreator.
type PurchaseStore struct {
	db *pgxpool.Pool
}

var _ contracts.PurchaseCreator = (*PurchaseStore)(nil)

// NewPurchaseStore creates a purchase store.
func NewPurchaseStore(db *pgxpool.Pool) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// CreatePurchase inserts the purchase header plus one row per allocated line
// in its own transaction and returns the new purchase id.
func (s *PurchaseStore) CreatePurchase(ctx context.Context, req *contracts.PurchaseRequest) (int64, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin purchase: %w", err)
	}
	defer tx.Rollback(ctx)

	purchaseID, err := s.CreatePurchaseTx(ctx, tx, req)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit purchase: %w", err)
	}
	return purchaseID, nil
}

// CreatePurchaseTx inserts the purchase on the caller's transaction. The
// conversion path uses this so the purchase rows and the candidate link
// commit or roll back together.
func (s *PurchaseStore) CreatePurchaseTx(ctx context.Context, tx pgx.Tx, req *contracts.PurchaseRequest) (int64, error) {
	var purchaseID int64
	err := tx.QueryRow(ctx, `
		INSERT INTO radar.purchases (candidate_id, platform, external_id, title, total_price_cents, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id
	`, req.CandidateID, req.Platform, req.ExternalID, req.Title, req.TotalPriceCents).Scan(&purchaseID)
	if err != nil {
		return 0, fmt.Errorf("insert purchase: %w", err)
	}

	for _, line := range req.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO radar.purchase_lines (purchase_id, catalog_entry_id, match_id, condition, price_cents)
			VALUES ($1, $2, NULLIF($3, 0), $4, $5)
		`, purchaseID, line.CatalogEntryID, line.MatchID, line.Condition, line.PriceCents); err != nil {
			return 0, fmt.Errorf("insert purchase line entry=%d: %w", line.CatalogEntryID, err)
		}
	}

	return purchaseID, nil
}
