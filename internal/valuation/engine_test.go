package valuation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// defaultParams mirrors the hard-coded setting defaults.
func defaultParams() Params {
	return Params{
		MaxSalesRank:     150_000,
		UsedDiscountBp:   2_000,
		FeeBp:            1_500,
		FulfillmentCents: 300,
		InboundCents:     50,
		TakeRateBp:       9_000,
		ShippingCents:    690,
		HandlingCents:    150,
		ProfitFloorCents: 1_000,
		ROIFloorBp:       5_000,
		BidBufferCents:   200,
	}
}

func matchWith(snapshot contracts.MarketSnapshot) contracts.Match {
	return contracts.Match{Score: 90, Snapshot: snapshot}
}

func TestSelectMatches(t *testing.T) {
	matches := []contracts.Match{
		{ID: 1, Confirmed: true},
		{ID: 2, Rejected: true},
		{ID: 3},
	}

	got := SelectMatches(matches, false)
	require.Len(t, got, 2)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, int64(3), got[1].ID)

	got = SelectMatches(matches, true)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}

func TestUnitPriceCents(t *testing.T) {
	p := defaultParams()

	// Used price wins when present.
	assert.Equal(t, int64(4000), UnitPriceCents(&contracts.MarketSnapshot{
		UsedPriceCents: 4000, NewPriceCents: 9000,
	}, p.UsedDiscountBp))

	// Otherwise the new price is discounted by 20%.
	assert.Equal(t, int64(7200), UnitPriceCents(&contracts.MarketSnapshot{
		NewPriceCents: 9000,
	}, p.UsedDiscountBp))

	assert.Equal(t, int64(0), UnitPriceCents(&contracts.MarketSnapshot{}, p.UsedDiscountBp))
}

func TestPayoutCents(t *testing.T) {
	p := defaultParams()

	// Snapshot payout is reused verbatim.
	m := matchWith(contracts.MarketSnapshot{PayoutCents: 1234, UsedPriceCents: 9999})
	assert.Equal(t, int64(1234), PayoutCents(&m, p))

	// Recomputed: price 4000, fee 15% half-up = 600, minus 300 + 50.
	m = matchWith(contracts.MarketSnapshot{UsedPriceCents: 4000})
	assert.Equal(t, int64(3050), PayoutCents(&m, p))

	// Half-up rounding on the fee: price 4003 -> raw fee 600.45 -> 600.
	m = matchWith(contracts.MarketSnapshot{UsedPriceCents: 4003})
	assert.Equal(t, int64(4003-600-350), PayoutCents(&m, p))

	// price 4030 -> raw fee 604.5 -> rounds up to 605.
	m = matchWith(contracts.MarketSnapshot{UsedPriceCents: 4030})
	assert.Equal(t, int64(4030-605-350), PayoutCents(&m, p))
}

func TestRecalculate_NoMatches(t *testing.T) {
	c := &contracts.Candidate{PriceCents: 5000}

	r := Recalculate(c, nil, false, defaultParams())
	assert.Equal(t, contracts.StatusLowValue, r.Status)
	assert.Equal(t, "no confident matches", r.Reason)
	assert.Zero(t, r.RevenueCents)
	assert.Zero(t, r.CostCents)
	assert.Zero(t, r.ProfitCents)
	assert.Zero(t, r.ROIBp)
}

func TestRecalculate_NothingSellable(t *testing.T) {
	c := &contracts.Candidate{PriceCents: 5000}
	matches := []contracts.Match{
		// Too obscure.
		matchWith(contracts.MarketSnapshot{SalesRank: 900_000, UsedPriceCents: 9000}),
		// No price data at all.
		matchWith(contracts.MarketSnapshot{SalesRank: 100}),
	}

	r := Recalculate(c, matches, false, defaultParams())
	assert.Equal(t, contracts.StatusLowValue, r.Status)
	assert.Equal(t, "no sellable matches", r.Reason)
	assert.Zero(t, r.RevenueCents, "financial fields stay zeroed")
	assert.Zero(t, r.CostCents)
}

// Reproduces the canonical low-value outcome: acquisition 1100, shipping 690,
// handling 150 x 2 sellable matches, revenue 2000 => cost 2090, profit -90.
func TestRecalculate_LowValueExample(t *testing.T) {
	p := defaultParams()
	p.TakeRateBp = 10_000 // make the two payouts sum to revenue exactly

	c := &contracts.Candidate{PriceCents: 1100}
	matches := []contracts.Match{
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 1000}),
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 1000}),
	}

	r := Recalculate(c, matches, false, p)
	assert.Equal(t, int64(2000), r.RevenueCents)
	assert.Equal(t, int64(2090), r.CostCents)
	assert.Equal(t, int64(-90), r.ProfitCents)
	assert.Equal(t, contracts.StatusLowValue, r.Status)
	assert.Contains(t, r.Reason, "-90")
}

func TestRecalculate_Ready(t *testing.T) {
	c := &contracts.Candidate{PriceCents: 5000}
	matches := []contracts.Match{
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 12_000}),
	}

	r := Recalculate(c, matches, false, defaultParams())
	// revenue = 12000 * 0.9 = 10800; cost = 5000 + 690 + 150 = 5840.
	assert.Equal(t, int64(10_800), r.RevenueCents)
	assert.Equal(t, int64(5_840), r.CostCents)
	assert.Equal(t, int64(4_960), r.ProfitCents)
	assert.Equal(t, int64(8_493), r.ROIBp) // 4960*10000/5840
	assert.Equal(t, contracts.StatusReady, r.Status)
	assert.Equal(t, 1, r.Sellable)
}

func TestRecalculate_ProfitFloorFlipsDecision(t *testing.T) {
	c := &contracts.Candidate{PriceCents: 5000}
	matches := []contracts.Match{
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 12_000}),
	}

	p := defaultParams()
	r := Recalculate(c, matches, false, p)
	require.Equal(t, contracts.StatusReady, r.Status)

	// Same candidate, floor above the computed profit.
	p.ProfitFloorCents = r.ProfitCents + 1
	r2 := Recalculate(c, matches, false, p)
	assert.Equal(t, contracts.StatusLowValue, r2.Status)
	assert.Equal(t, r.ProfitCents, r2.ProfitCents, "only the decision changes")
}

func TestRecalculate_AuctionUsesCurrentBid(t *testing.T) {
	c := &contracts.Candidate{PriceCents: 99_000, IsAuction: true, CurrentBidCents: 5000}
	matches := []contracts.Match{
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 12_000}),
	}

	r := Recalculate(c, matches, false, defaultParams())
	assert.Equal(t, int64(5_840), r.CostCents, "cost is based on the current bid")
}

// Reproduces the canonical ceiling: revenue 20000, fixed 1190 (690 shipping +
// 300 handling + 200 buffer), floors 3000c / 50% => min(15810, 12143).
func TestMaxBidCeiling(t *testing.T) {
	p := defaultParams()
	p.ProfitFloorCents = 3000

	assert.Equal(t, int64(12_143), MaxBidCeiling(20_000, 2, p))

	// With a lenient ROI floor the profit floor binds instead.
	p.ROIFloorBp = 1000
	assert.Equal(t, int64(15_810), MaxBidCeiling(20_000, 2, p))

	// Tiny revenue never yields a negative ceiling.
	assert.Equal(t, int64(0), MaxBidCeiling(500, 1, p))
}

type fakeCandidates struct {
	c     *contracts.Candidate
	saved *contracts.Candidate
}

func (f *fakeCandidates) GetByID(context.Context, int64) (*contracts.Candidate, error) {
	cp := *f.c
	return &cp, nil
}

func (f *fakeCandidates) UpdateValuation(_ context.Context, c *contracts.Candidate) error {
	f.saved = c
	return nil
}

type fakeMatches struct{ matches []contracts.Match }

func (f *fakeMatches) ListByCandidate(context.Context, int64) ([]contracts.Match, error) {
	return f.matches, nil
}

type fakeSettings struct{ ints map[string]int64 }

func (f fakeSettings) Int(_ context.Context, key string) int64 {
	if v, ok := f.ints[key]; ok {
		return v
	}
	return settings.DefaultInt(key)
}
func (fakeSettings) Text(context.Context, string) string    { return "" }
func (fakeSettings) Strings(context.Context, string) []string { return nil }

func TestService_Recalc(t *testing.T) {
	candidates := &fakeCandidates{c: &contracts.Candidate{
		ID: 4, Status: contracts.StatusNew, PriceCents: 5000, IsAuction: true, CurrentBidCents: 5000,
	}}
	matches := &fakeMatches{matches: []contracts.Match{
		matchWith(contracts.MarketSnapshot{SalesRank: 100, PayoutCents: 12_000}),
	}}

	svc := NewService(candidates, matches, fakeSettings{}, logger.NewNop())
	got, err := svc.Recalc(context.Background(), 4, false)
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusReady, got.Status)
	assert.Equal(t, int64(4_960), got.ProfitCents)
	assert.Positive(t, got.MaxBidCents, "auction candidates get a bid ceiling")
	require.NotNil(t, candidates.saved)
	assert.Equal(t, got.ProfitCents, candidates.saved.ProfitCents)
}

func TestService_Recalc_TerminalRejected(t *testing.T) {
	candidates := &fakeCandidates{c: &contracts.Candidate{
		ID: 5, Status: contracts.StatusConverted,
	}}
	svc := NewService(candidates, &fakeMatches{}, fakeSettings{}, logger.NewNop())

	_, err := svc.Recalc(context.Background(), 5, false)
	var illegal *contracts.ErrIllegalTransition
	require.ErrorAs(t, err, &illegal)
	assert.Nil(t, candidates.saved, "state unchanged on rejection")
}
