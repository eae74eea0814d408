// Package settings provides the typed key/value configuration store the
// pipeline reads every tick. Missing or invalid values fall back to the
// hard-coded defaults below; a broken setting never fails a run.
package settings

// Setting keys. Monetary values are integer cents, ratios basis points.
const (
	KeyMinPriceCents      = "filter.min_price_cents"
	KeyMaxPriceCents      = "filter.max_price_cents"
	KeyDiscardTerms       = "filter.discard_terms"
	KeyBlacklistTerms     = "filter.blacklist_terms"
	KeySearchTerms        = "scan.search_terms"
	KeyMaxEnrichPerRun    = "scan.max_enrich_per_run"
	KeyMinRunIntervalMin  = "scan.min_interval_minutes"
	KeyCooldownMinutes    = "scan.cooldown_minutes"
	KeyDegradedAfterEmpty = "scan.degraded_after_empty_runs"
	KeyMinConfidence      = "match.min_confidence"
	KeyFreshnessHours     = "match.freshness_window_hours"
	KeyMaxSalesRank       = "valuation.max_sales_rank"
	KeyUsedDiscountBp     = "valuation.used_discount_bp"
	KeyFeeBp              = "valuation.marketplace_fee_bp"
	KeyFulfillmentCents   = "valuation.fulfillment_fee_cents"
	KeyInboundCents       = "valuation.inbound_shipping_cents"
	KeyTakeRateBp         = "valuation.take_rate_bp"
	KeyShippingCents      = "valuation.shipping_cost_cents"
	KeyHandlingCents      = "valuation.handling_cost_cents"
	KeyProfitFloorCents   = "valuation.profit_floor_cents"
	KeyROIFloorBp         = "valuation.roi_floor_bp"
	KeyBidBufferCents     = "valuation.bid_buffer_cents"
	KeyDefaultCondition   = "convert.default_condition"
	KeyRetentionDays      = "prune.retention_days"
	KeyPruneBatchSize     = "prune.batch_size"
)

// defaultInts holds integer fallbacks.
var defaultInts = map[string]int64{
	KeyMinPriceCents:      500,
	KeyMaxPriceCents:      50_000,
	KeyMaxEnrichPerRun:    5,
	KeyMinRunIntervalMin:  30,
	KeyCooldownMinutes:    15,
	KeyDegradedAfterEmpty: 5,
	KeyMinConfidence:      80,
	KeyFreshnessHours:     24,
	KeyMaxSalesRank:       150_000,
	KeyUsedDiscountBp:     2_000, // new price discounted by 20%
	KeyFeeBp:              1_500, // 15% proportional marketplace fee
	KeyFulfillmentCents:   300,
	KeyInboundCents:       50,
	KeyTakeRateBp:         9_000, // assume 90% of matched payouts realize
	KeyShippingCents:      690,
	KeyHandlingCents:      150,
	KeyProfitFloorCents:   1_000,
	KeyROIFloorBp:         5_000, // 50% ROI
	KeyBidBufferCents:     200,
	KeyRetentionDays:      14,
	KeyPruneBatchSize:     200,
}

// defaultTexts holds text fallbacks. List values are comma separated.
var defaultTexts = map[string]string{
	KeyDiscardTerms:     "defekt,defect,bastler,ersatzteil,suche,gesucht,repro,reproduction",
	KeyBlacklistTerms:   "",
	KeySearchTerms:      "",
	KeyDefaultCondition: "used_good",
}

// DefaultInt returns the hard-coded fallback for an integer key.
func DefaultInt(key string) int64 {
	return defaultInts[key]
}

// DefaultText returns the hard-coded fallback for a text key.
func DefaultText(key string) string {
	return defaultTexts[key]
}
