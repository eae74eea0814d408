package contracts

import "time"

// MatchMethod records how a match was produced.
type MatchMethod string

const (
	MatchMethodTokenSort MatchMethod = "token_sort_ratio"
	MatchMethodManual    MatchMethod = "manual"
)

// MarketSnapshot is a point-in-time copy of a catalog entry's market metrics.
// Once written to a match it is never refreshed; re-valuation reads the stored
// snapshot so results stay reproducible.
type MarketSnapshot struct {
	SalesRank      int        `json:"sales_rank"`
	NewPriceCents  int64      `json:"new_price_cents"`
	UsedPriceCents int64      `json:"used_price_cents"`
	PayoutCents    int64      `json:"payout_cents"`
	SnapshotAt     time.Time  `json:"snapshot_at"`
}

// Match is a scored link between a candidate and one catalog entry, unique per
// (candidate, catalog entry).
type Match struct {
	ID             int64       `json:"id"`
	CandidateID    int64       `json:"candidate_id"`
	CatalogEntryID int64       `json:"catalog_entry_id"`
	EntryTitle     string      `json:"entry_title"`
	Score          int         `json:"score"` // 0-100
	Method         MatchMethod `json:"method"`

	Snapshot MarketSnapshot `json:"snapshot"`

	// User overrides
	Confirmed         bool   `json:"confirmed"`
	Rejected          bool   `json:"rejected"`
	AdjustedCondition string `json:"adjusted_condition,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// CatalogEntry is one product in the internal catalog, paired with the
// freshest known market metrics (nil when none exist yet). SKU is the
// entry's identifier on the resale marketplace, used by the price refresh
// job to pull metrics.
type CatalogEntry struct {
	ID     int64           `json:"id"`
	SKU    string          `json:"sku"`
	Title  string          `json:"title"`
	Latest *MarketSnapshot `json:"latest,omitempty"`
}
