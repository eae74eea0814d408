package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

type fakeCatalog struct {
	entries []contracts.CatalogEntry
}

func (f *fakeCatalog) Entries(context.Context) ([]contracts.CatalogEntry, error) {
	return f.entries, nil
}

type fakeMatchStore struct {
	replaced map[int64][]contracts.Match
}

func (f *fakeMatchStore) Replace(_ context.Context, candidateID int64, matches []contracts.Match) error {
	if f.replaced == nil {
		f.replaced = map[int64][]contracts.Match{}
	}
	f.replaced[candidateID] = matches
	return nil
}

type fakeSettings struct{}

func (fakeSettings) Int(_ context.Context, key string) int64  { return settings.DefaultInt(key) }
func (fakeSettings) Text(_ context.Context, key string) string { return settings.DefaultText(key) }
func (fakeSettings) Strings(context.Context, string) []string  { return nil }

func newTestMatcher(entries []contracts.CatalogEntry) (*Matcher, *fakeMatchStore) {
	store := &fakeMatchStore{}
	m := NewMatcher(&fakeCatalog{entries: entries}, store, fakeSettings{}, logger.NewNop())
	return m, store
}

func TestScore_TokenOrderInsensitive(t *testing.T) {
	m, _ := newTestMatcher(nil)

	assert.Equal(t, 100, m.Score("Millennium Falcon LEGO 75192", "LEGO 75192 Millennium Falcon"),
		"identical token sets must score 100 regardless of order")
	assert.Equal(t, 100, m.Score("Pokémon Rote Edition", "pokemon rote edition"))
	assert.Equal(t, 0, m.Score("", "anything"))

	near := m.Score("Lego Star Wars 75192 Millenium Falcon", "LEGO Star Wars 75192 Millennium Falcon")
	assert.GreaterOrEqual(t, near, 90, "one-letter typo stays above the default floor")

	far := m.Score("Playmobil Piratenschiff", "LEGO Star Wars 75192 Millennium Falcon")
	assert.Less(t, far, 50)
}

func snapshotAt(age time.Duration) *contracts.MarketSnapshot {
	return &contracts.MarketSnapshot{
		SalesRank:      1000,
		UsedPriceCents: 40000,
		SnapshotAt:     time.Now().Add(-age),
	}
}

func TestMatchCandidate(t *testing.T) {
	entries := []contracts.CatalogEntry{
		{ID: 1, Title: "LEGO Star Wars 75192 Millennium Falcon", Latest: snapshotAt(time.Hour)},
		{ID: 2, Title: "LEGO 75192 Millennium Falcon Star Wars", Latest: snapshotAt(2 * time.Hour)},
		{ID: 3, Title: "Playmobil Piratenschiff 5678", Latest: snapshotAt(time.Hour)},
		// Fresh title match but the snapshot is older than the 24h window.
		{ID: 4, Title: "LEGO Star Wars 75192 Millennium Falcon UCS", Latest: snapshotAt(48 * time.Hour)},
		// No market data at all.
		{ID: 5, Title: "LEGO Star Wars Millennium Falcon 75192"},
	}
	m, store := newTestMatcher(entries)

	c := &contracts.Candidate{ID: 7, Title: "Lego Star Wars 75192 Millennium Falcon"}
	matches, err := m.MatchCandidate(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	for _, match := range matches {
		assert.Contains(t, []int64{1, 2}, match.CatalogEntryID)
		assert.GreaterOrEqual(t, match.Score, 80)
		assert.Equal(t, contracts.MatchMethodTokenSort, match.Method)
		assert.Equal(t, int64(40000), match.Snapshot.UsedPriceCents, "snapshot frozen into the match")
	}
	assert.GreaterOrEqual(t, matches[0].Score, matches[1].Score, "sorted best first")

	assert.Len(t, store.replaced[7], 2, "matches persisted")
}

func TestMatchCandidate_NothingConfident(t *testing.T) {
	entries := []contracts.CatalogEntry{
		{ID: 3, Title: "Playmobil Piratenschiff 5678", Latest: snapshotAt(time.Hour)},
	}
	m, store := newTestMatcher(entries)

	matches, err := m.MatchCandidate(context.Background(), &contracts.Candidate{ID: 9, Title: "Gameboy Color lila"})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, store.replaced[9], "an empty replace clears stale matches")
}
