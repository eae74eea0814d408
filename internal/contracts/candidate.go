package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// CandidateStatus is the closed set of candidate lifecycle states.
type CandidateStatus string

const (
	// StatusNew is the state of a freshly ingested listing before matching.
	StatusNew CandidateStatus = "NEW"
	// StatusAnalyzing marks a candidate currently in matching/valuation.
	StatusAnalyzing CandidateStatus = "ANALYZING"
	// StatusReady marks a candidate that cleared the profit and ROI floors.
	StatusReady CandidateStatus = "READY"
	// StatusLowValue marks a candidate below the floors or without matches.
	StatusLowValue CandidateStatus = "LOW_VALUE"
	// StatusConverted is terminal: the candidate became a purchase record.
	StatusConverted CandidateStatus = "CONVERTED"
	// StatusDiscarded is terminal: a user dismissed the candidate.
	StatusDiscarded CandidateStatus = "DISCARDED"
	// StatusError marks an unexpected matcher/valuation failure.
	StatusError CandidateStatus = "ERROR"
)

// transitions is the explicit transition table. READY and LOW_VALUE flip back
// and forth under recalculation; CONVERTED and DISCARDED are final.
var transitions = map[CandidateStatus][]CandidateStatus{
	StatusNew:       {StatusAnalyzing, StatusDiscarded, StatusError},
	StatusAnalyzing: {StatusReady, StatusLowValue, StatusDiscarded, StatusError},
	StatusReady:     {StatusReady, StatusLowValue, StatusConverted, StatusDiscarded, StatusError},
	StatusLowValue:  {StatusReady, StatusLowValue, StatusConverted, StatusDiscarded},
	StatusConverted: {},
	StatusDiscarded: {},
	StatusError:     {StatusAnalyzing, StatusDiscarded},
}

// Valid reports whether s is a known status.
func (s CandidateStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is allowed from s.
func (s CandidateStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether the state machine allows s -> next.
func (s CandidateStatus) CanTransitionTo(next CandidateStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ErrIllegalTransition is returned when a status change violates the table.
type ErrIllegalTransition struct {
	From CandidateStatus
	To   CandidateStatus
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal candidate transition %s -> %s", e.From, e.To)
}

// SellerKind distinguishes private sellers from flagged commercial ones.
type SellerKind string

const (
	SellerPrivate    SellerKind = "private"
	SellerCommercial SellerKind = "commercial"
	SellerUnknown    SellerKind = "unknown"
)

// Candidate is one deduplicated scraped listing under evaluation. Identity is
// (Platform, ExternalID) and is immutable; the unique index on that pair is
// what makes re-ingestion idempotent.
type Candidate struct {
	ID         int64  `json:"id"`
	Platform   string `json:"platform"`
	ExternalID string `json:"external_id"`

	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	PriceCents  int64           `json:"price_cents"`
	Location    string          `json:"location,omitempty"`
	SellerKind  SellerKind      `json:"seller_kind"`
	ListingURL  string          `json:"listing_url,omitempty"`
	ImageURLs   []string        `json:"image_urls,omitempty"`
	RawPayload  json.RawMessage `json:"raw_payload,omitempty"`

	PostedAt     *time.Time `json:"posted_at,omitempty"`
	DiscoveredAt time.Time  `json:"discovered_at"`

	// Auction fields
	IsAuction       bool       `json:"is_auction"`
	CurrentBidCents int64      `json:"current_bid_cents,omitempty"`
	BidCount        int        `json:"bid_count,omitempty"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	MaxBidCents     int64      `json:"max_bid_cents,omitempty"`

	Status       CandidateStatus `json:"status"`
	StatusReason string          `json:"status_reason,omitempty"`

	// Valuation results, all integer cents except ROI (basis points)
	RevenueCents int64 `json:"revenue_cents"`
	CostCents    int64 `json:"cost_cents"`
	ProfitCents  int64 `json:"profit_cents"`
	ROIBp        int64 `json:"roi_bp"`

	// Set on conversion; a non-nil value blocks re-conversion.
	PurchaseID *int64 `json:"purchase_id,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Transition validates and applies a status change with a reason.
func (c *Candidate) Transition(next CandidateStatus, reason string) error {
	if !c.Status.CanTransitionTo(next) {
		return &ErrIllegalTransition{From: c.Status, To: next}
	}
	c.Status = next
	c.StatusReason = reason
	return nil
}

// AcquisitionPriceCents is the price the valuation and conversion paths use:
// the current bid for auctions, the asking price otherwise.
func (c *Candidate) AcquisitionPriceCents() int64 {
	if c.IsAuction && c.CurrentBidCents > 0 {
		return c.CurrentBidCents
	}
	return c.PriceCents
}
