// Package valuation turns a candidate's matches into cent-exact revenue,
// profit and ROI figures and the READY/LOW_VALUE decision. Everything here is
// integer arithmetic; no floats touch money.
package valuation

import (
	"context"
	"fmt"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
)

// Params are the valuation thresholds, loaded from settings once per
// recalculation so one candidate sees a consistent set.
type Params struct {
	MaxSalesRank     int
	UsedDiscountBp   int64
	FeeBp            int64
	FulfillmentCents int64
	InboundCents     int64
	TakeRateBp       int64
	ShippingCents    int64
	HandlingCents    int64
	ProfitFloorCents int64
	ROIFloorBp       int64
	BidBufferCents   int64
}

// LoadParams reads the current thresholds.
func LoadParams(ctx context.Context, s contracts.SettingsReader) Params {
	return Params{
		MaxSalesRank:     int(s.Int(ctx, settings.KeyMaxSalesRank)),
		UsedDiscountBp:   s.Int(ctx, settings.KeyUsedDiscountBp),
		FeeBp:            s.Int(ctx, settings.KeyFeeBp),
		FulfillmentCents: s.Int(ctx, settings.KeyFulfillmentCents),
		InboundCents:     s.Int(ctx, settings.KeyInboundCents),
		TakeRateBp:       s.Int(ctx, settings.KeyTakeRateBp),
		ShippingCents:    s.Int(ctx, settings.KeyShippingCents),
		HandlingCents:    s.Int(ctx, settings.KeyHandlingCents),
		ProfitFloorCents: s.Int(ctx, settings.KeyProfitFloorCents),
		ROIFloorBp:       s.Int(ctx, settings.KeyROIFloorBp),
		BidBufferCents:   s.Int(ctx, settings.KeyBidBufferCents),
	}
}

// Result is the outcome of one recalculation.
type Result struct {
	Status       contracts.CandidateStatus
	Reason       string
	RevenueCents int64
	CostCents    int64
	ProfitCents  int64
	ROIBp        int64
	Sellable     int
}

// SelectMatches returns the matches valuation may use: non-rejected, and only
// confirmed ones when confirmedOnly is set. Order is preserved.
func SelectMatches(matches []contracts.Match, confirmedOnly bool) []contracts.Match {
	out := make([]contracts.Match, 0, len(matches))
	for _, m := range matches {
		if m.Rejected {
			continue
		}
		if confirmedOnly && !m.Confirmed {
			continue
		}
		out = append(out, m)
	}
	return out
}

// UnitPriceCents derives the per-unit resale price from a frozen snapshot:
// the used price when present, otherwise the new price discounted by
// usedDiscountBp. Zero when the snapshot has no usable price point.
func UnitPriceCents(s *contracts.MarketSnapshot, usedDiscountBp int64) int64 {
	if s.UsedPriceCents > 0 {
		return s.UsedPriceCents
	}
	if s.NewPriceCents > 0 {
		return s.NewPriceCents * (10_000 - usedDiscountBp) / 10_000
	}
	return 0
}

// PayoutCents estimates what one sold unit nets. The snapshot's own payout
// estimate wins when present; otherwise price minus the proportional
// marketplace fee (half-up rounding) and the fixed fulfillment and inbound
// fees. Zero or negative means the unit is not worth selling.
func PayoutCents(m *contracts.Match, p Params) int64 {
	if m.Snapshot.PayoutCents > 0 {
		return m.Snapshot.PayoutCents
	}

	price := UnitPriceCents(&m.Snapshot, p.UsedDiscountBp)
	if price <= 0 {
		return 0
	}

	fee := (price*p.FeeBp + 5_000) / 10_000
	return price - fee - p.FulfillmentCents - p.InboundCents
}

// Recalculate computes the valuation of one candidate from its matches.
// Matches whose snapshotted rank exceeds the max-rank threshold, or whose
// payout estimate is not positive, are not sellable. Zero sellable matches
// short-circuits to LOW_VALUE with every financial field zeroed.
func Recalculate(c *contracts.Candidate, matches []contracts.Match, confirmedOnly bool, p Params) Result {
	usable := SelectMatches(matches, confirmedOnly)
	if len(usable) == 0 {
		return Result{Status: contracts.StatusLowValue, Reason: "no confident matches"}
	}

	var gross int64
	sellable := 0
	for i := range usable {
		m := &usable[i]
		if p.MaxSalesRank > 0 && m.Snapshot.SalesRank > p.MaxSalesRank {
			continue
		}
		payout := PayoutCents(m, p)
		if payout <= 0 {
			continue
		}
		gross += payout
		sellable++
	}

	if sellable == 0 {
		return Result{Status: contracts.StatusLowValue, Reason: "no sellable matches"}
	}

	revenue := gross * p.TakeRateBp / 10_000
	cost := c.AcquisitionPriceCents() + p.ShippingCents + p.HandlingCents*int64(sellable)
	profit := revenue - cost

	var roiBp int64
	if cost > 0 {
		roiBp = profit * 10_000 / cost
	}

	r := Result{
		RevenueCents: revenue,
		CostCents:    cost,
		ProfitCents:  profit,
		ROIBp:        roiBp,
		Sellable:     sellable,
	}

	if profit >= p.ProfitFloorCents && roiBp >= p.ROIFloorBp {
		r.Status = contracts.StatusReady
		r.Reason = fmt.Sprintf("profit %dc, roi %dbp across %d sellable matches", profit, roiBp, sellable)
	} else {
		r.Status = contracts.StatusLowValue
		r.Reason = fmt.Sprintf("profit %dc, roi %dbp below floors (%dc / %dbp)",
			profit, roiBp, p.ProfitFloorCents, p.ROIFloorBp)
	}
	return r
}

// MaxBidCeiling is the highest acquisition price that still clears both
// floors given the estimated revenue: binding at either the profit floor or
// the ROI floor, whichever cuts lower. Fixed costs include the bid buffer.
// Never negative.
func MaxBidCeiling(revenueCents int64, sellable int, p Params) int64 {
	fixed := p.ShippingCents + p.HandlingCents*int64(sellable) + p.BidBufferCents

	byProfit := revenueCents - fixed - p.ProfitFloorCents
	byROI := revenueCents*10_000/(10_000+p.ROIFloorBp) - fixed

	ceiling := byProfit
	if byROI < ceiling {
		ceiling = byROI
	}
	if ceiling < 0 {
		return 0
	}
	return ceiling
}
