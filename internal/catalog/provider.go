// Package catalog reads the product catalog together with each entry's
// freshest market snapshot. The pipeline never writes here except through the
// price refresh job's snapshot upserts.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/pkg/logger"
	"github.com/rwerner/sourcing-radar/pkg/redis"
)

const cacheKey = "catalog:entries"

// Provider implements contracts.CatalogProvider on Postgres with an optional
// short-lived redis cache in front, since every tick re-reads the full
// snapshot set.
type Provider struct {
	db     *pgxpool.Pool
	cache  *redis.Cache
	logger *logger.Logger
}

// NewProvider creates a catalog provider. cache may be backed by a disabled
// redis client, in which case every read goes to Postgres.
func NewProvider(db *pgxpool.Pool, cache *redis.Cache, log *logger.Logger) *Provider {
	return &Provider{db: db, cache: cache, logger: log.Component("catalog")}
}

// Entries returns all catalog entries with their latest market snapshot.
// Entries without any snapshot have Latest == nil; the freshness gate in the
// matcher decides what is usable.
func (p *Provider) Entries(ctx context.Context) ([]contracts.CatalogEntry, error) {
	var cached []contracts.CatalogEntry
	if found, err := p.cache.Get(ctx, cacheKey, &cached); err == nil && found {
		return cached, nil
	}

	query := `
		SELECT
			e.id,
			e.sku,
			e.title,
			ms.sales_rank,
			ms.new_price_cents,
			ms.used_price_cents,
			ms.payout_cents,
			ms.snapshot_at
		FROM catalog.entries e
		LEFT JOIN LATERAL (
			SELECT sales_rank, new_price_cents, used_price_cents, payout_cents, snapshot_at
			FROM catalog.market_snapshots
			WHERE entry_id = e.id
			ORDER BY snapshot_at DESC
			LIMIT 1
		) ms ON TRUE
		ORDER BY e.id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query catalog entries: %w", err)
	}
	defer rows.Close()

	var entries []contracts.CatalogEntry
	for rows.Next() {
		var (
			entry      contracts.CatalogEntry
			rank       *int
			newPrice   *int64
			usedPrice  *int64
			payout     *int64
			snapshotAt *time.Time
		)
		if err := rows.Scan(&entry.ID, &entry.SKU, &entry.Title, &rank, &newPrice, &usedPrice, &payout, &snapshotAt); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}

		if snapshotAt != nil {
			entry.Latest = &contracts.MarketSnapshot{
				SalesRank:      deref(rank),
				NewPriceCents:  deref64(newPrice),
				UsedPriceCents: deref64(usedPrice),
				PayoutCents:    deref64(payout),
				SnapshotAt:     *snapshotAt,
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := p.cache.Set(ctx, cacheKey, entries, redis.TTLMedium); err != nil {
		p.logger.WithError(err).Warn("Catalog cache write failed")
	}

	return entries, nil
}

// UpsertSnapshot stores a fresh market snapshot for one entry and drops the
// cached entry list. Used by the price refresh job only; match snapshots stay
// frozen regardless.
func (p *Provider) UpsertSnapshot(ctx context.Context, entryID int64, s *contracts.MarketSnapshot) error {
	query := `
		INSERT INTO catalog.market_snapshots (
			entry_id, sales_rank, new_price_cents, used_price_cents, payout_cents, snapshot_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (entry_id, snapshot_at) DO NOTHING
	`

	_, err := p.db.Exec(ctx, query,
		entryID, s.SalesRank, s.NewPriceCents, s.UsedPriceCents, s.PayoutCents, s.SnapshotAt,
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot for entry %d: %w", entryID, err)
	}

	if err := p.cache.Delete(ctx, cacheKey); err != nil {
		p.logger.WithError(err).Warn("Catalog cache invalidation failed")
	}
	return nil
}

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func deref64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
