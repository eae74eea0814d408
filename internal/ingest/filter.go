package ingest

import (
	"fmt"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

// FilterRules holds the thresholds one ingestion batch filters against. They
// are loaded from settings once per batch so a batch sees a consistent set.
type FilterRules struct {
	MinPriceCents  int64
	MaxPriceCents  int64
	DiscardTerms   []string
	BlacklistTerms []string
}

// PreFilter gates a listing before it ever becomes a candidate. A rejected
// listing is counted but leaves no row behind.
func (r FilterRules) PreFilter(l *contracts.Listing) (string, bool) {
	if l.SellerKind == contracts.SellerCommercial {
		return "commercial seller", false
	}

	folded := Fold(l.Title)
	if term, hit := ContainsTerm(folded, r.DiscardTerms); hit {
		return fmt.Sprintf("discard term %q", term), false
	}

	return "", true
}

// PostFilter gates a listing on price band and blacklist. Split from
// PreFilter because price 0 ("Zu verschenken") listings still fail the band
// here rather than erroring upstream.
func (r FilterRules) PostFilter(l *contracts.Listing) (string, bool) {
	price := l.PriceCents
	if l.IsAuction && l.CurrentBidCents > 0 {
		price = l.CurrentBidCents
	}

	if price < r.MinPriceCents {
		return fmt.Sprintf("price %d below minimum %d", price, r.MinPriceCents), false
	}
	if r.MaxPriceCents > 0 && price > r.MaxPriceCents {
		return fmt.Sprintf("price %d above maximum %d", price, r.MaxPriceCents), false
	}

	folded := Fold(l.Title + " " + l.Description)
	if term, hit := ContainsTerm(folded, r.BlacklistTerms); hit {
		return fmt.Sprintf("blacklist term %q", term), false
	}

	return "", true
}
