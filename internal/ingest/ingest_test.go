package ingest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

func TestFold(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pokémon Édition", "pokemon edition"},
		{"  LEGO   Star  Wars ", "lego star wars"},
		{"Großes Set", "grosses set"},
		{"Müller Überraschung", "muller uberraschung"},
		{"already plain", "already plain"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Fold(tt.in), "Fold(%q)", tt.in)
	}
}

func TestContainsTerm_FoldsBothSides(t *testing.T) {
	term, hit := ContainsTerm(Fold("Konsole DEFEKT für Bastler"), []string{"defekt"})
	assert.True(t, hit)
	assert.Equal(t, "defekt", term)

	// Terms with diacritics match their folded form in the haystack.
	_, hit = ContainsTerm(Fold("schones gerat"), []string{"schönes gerät"})
	assert.True(t, hit)

	_, hit = ContainsTerm(Fold("Neuwertige Konsole"), []string{"defekt", "bastler"})
	assert.False(t, hit)
}

func defaultRules() FilterRules {
	return FilterRules{
		MinPriceCents:  500,
		MaxPriceCents:  50000,
		DiscardTerms:   []string{"defekt", "bastler", "suche"},
		BlacklistTerms: []string{"repro"},
	}
}

func TestPreFilter(t *testing.T) {
	rules := defaultRules()

	reason, ok := rules.PreFilter(&contracts.Listing{
		Title: "Konsole", SellerKind: contracts.SellerCommercial,
	})
	assert.False(t, ok)
	assert.Contains(t, reason, "commercial")

	reason, ok = rules.PreFilter(&contracts.Listing{
		Title: "Konsole DEFEKT", SellerKind: contracts.SellerPrivate,
	})
	assert.False(t, ok)
	assert.Contains(t, reason, "defekt")

	_, ok = rules.PreFilter(&contracts.Listing{
		Title: "Konsole wie neu", SellerKind: contracts.SellerPrivate,
	})
	assert.True(t, ok)
}

func TestPostFilter_PriceBand(t *testing.T) {
	rules := defaultRules()

	_, ok := rules.PostFilter(&contracts.Listing{Title: "x", PriceCents: 499})
	assert.False(t, ok, "below minimum")

	_, ok = rules.PostFilter(&contracts.Listing{Title: "x", PriceCents: 0})
	assert.False(t, ok, "Zu verschenken is parsed as 0 and fails the band")

	_, ok = rules.PostFilter(&contracts.Listing{Title: "x", PriceCents: 50001})
	assert.False(t, ok, "above maximum")

	_, ok = rules.PostFilter(&contracts.Listing{Title: "x", PriceCents: 500})
	assert.True(t, ok, "minimum is inclusive")

	// Auctions are banded on the current bid, not the buyout price.
	_, ok = rules.PostFilter(&contracts.Listing{
		Title: "x", PriceCents: 99000, IsAuction: true, CurrentBidCents: 1200,
	})
	assert.True(t, ok)
}

func TestPostFilter_Blacklist(t *testing.T) {
	rules := defaultRules()

	reason, ok := rules.PostFilter(&contracts.Listing{
		Title: "Falcon", Description: "Repro Box ohne Inhalt", PriceCents: 2000,
	})
	assert.False(t, ok, "blacklist also scans the description")
	assert.Contains(t, reason, "repro")
}

// fakeStore records inserts and simulates duplicates by external id.
type fakeStore struct {
	existing map[string]bool
	inserted []contracts.Candidate
	enriched map[int64]*contracts.ListingDetail
	queue    []contracts.Candidate
}

func (f *fakeStore) Insert(_ context.Context, c *contracts.Candidate) (bool, error) {
	if f.existing[c.ExternalID] {
		return false, nil
	}
	c.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *c)
	return true, nil
}

func (f *fakeStore) UpdateEnrichment(_ context.Context, id int64, d *contracts.ListingDetail) error {
	if f.enriched == nil {
		f.enriched = map[int64]*contracts.ListingDetail{}
	}
	f.enriched[id] = d
	return nil
}

func (f *fakeStore) EnrichmentQueue(_ context.Context, _ string, limit int) ([]contracts.Candidate, error) {
	if len(f.queue) > limit {
		return f.queue[:limit], nil
	}
	return f.queue, nil
}

// fakeSettings serves hard-coded defaults.
type fakeSettings struct{}

func (fakeSettings) Int(_ context.Context, key string) int64 { return settings.DefaultInt(key) }
func (fakeSettings) Text(_ context.Context, key string) string {
	return settings.DefaultText(key)
}
func (f fakeSettings) Strings(ctx context.Context, key string) []string {
	raw := f.Text(ctx, key)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func TestIngestBatch(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"dup-1": true}}
	ing := NewIngestor(store, fakeSettings{}, logger.NewNop())

	listings := []contracts.Listing{
		{ExternalID: "ok-1", Title: "Lego Falcon 75192", PriceCents: 42000, SellerKind: contracts.SellerPrivate},
		{ExternalID: "dup-1", Title: "Lego Falcon 75192", PriceCents: 42000, SellerKind: contracts.SellerPrivate},
		{ExternalID: "comm-1", Title: "Lego Posten", PriceCents: 9000, SellerKind: contracts.SellerCommercial},
		{ExternalID: "cheap-1", Title: "Lego Stein", PriceCents: 100, SellerKind: contracts.SellerPrivate},
		{ExternalID: "def-1", Title: "Lego Falcon defekt", PriceCents: 9000, SellerKind: contracts.SellerPrivate},
	}

	res, err := ing.IngestBatch(context.Background(), "kleinanzeigen", listings)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Scraped)
	assert.Equal(t, 3, res.Filtered)
	assert.Equal(t, 1, res.Dupes)
	require.Len(t, res.Inserted, 1)
	assert.Equal(t, "ok-1", res.Inserted[0].ExternalID)
	assert.Equal(t, contracts.StatusNew, res.Inserted[0].Status)
}

// fakeClient serves canned detail results.
type fakeClient struct {
	blockedAfter int
	calls        int
}

func (f *fakeClient) Platform() string { return "kleinanzeigen" }

func (f *fakeClient) FetchListings(context.Context, []string, contracts.PagingOptions) *contracts.FetchResult {
	return &contracts.FetchResult{}
}

func (f *fakeClient) FetchListingDetail(_ context.Context, _ string) *contracts.DetailResult {
	f.calls++
	if f.blockedAfter > 0 && f.calls > f.blockedAfter {
		return &contracts.DetailResult{Blocked: true}
	}
	return &contracts.DetailResult{Detail: &contracts.ListingDetail{Description: "full text"}}
}

func TestEnrich_CapAndBlockAbort(t *testing.T) {
	queue := make([]contracts.Candidate, 10)
	for i := range queue {
		queue[i] = contracts.Candidate{ID: int64(i + 1), ListingURL: "https://example.invalid/a"}
	}
	store := &fakeStore{queue: queue}
	ing := NewIngestor(store, fakeSettings{}, logger.NewNop())

	// Default cap is 5, but the client blocks after 2 successful fetches.
	client := &fakeClient{blockedAfter: 2}
	n := ing.Enrich(context.Background(), client)

	assert.Equal(t, 2, n)
	assert.Len(t, store.enriched, 2)
	assert.Equal(t, 3, client.calls, "stops at the first block response")
}
