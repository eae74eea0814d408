// Package match scores candidates against the product catalog with fuzzy
// title matching and persists the confident links.
package match

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/ingest"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// matchWriter is the slice of the match store the matcher needs.
type matchWriter interface {
	Replace(ctx context.Context, candidateID int64, matches []contracts.Match) error
}

// Matcher links candidates to catalog entries. Thread-safe; the Levenshtein
// metric is stateless.
type Matcher struct {
	catalog  contracts.CatalogProvider
	store    matchWriter
	settings contracts.SettingsReader
	logger   *logger.Logger
	metric   *metrics.Levenshtein
}

// NewMatcher creates a matcher.
func NewMatcher(catalog contracts.CatalogProvider, store matchWriter, s contracts.SettingsReader, log *logger.Logger) *Matcher {
	return &Matcher{
		catalog:  catalog,
		store:    store,
		settings: s,
		logger:   log.Component("match"),
		metric:   metrics.NewLevenshtein(),
	}
}

// Score returns the token-sort similarity of two titles on a 0-100 scale.
// Both sides are folded and their tokens sorted, so word order and
// diacritics do not affect the score.
func (m *Matcher) Score(a, b string) int {
	na, nb := tokenSort(a), tokenSort(b)
	if na == "" || nb == "" {
		return 0
	}
	sim := strutil.Similarity(na, nb, m.metric)
	return int(math.Round(sim * 100))
}

// MatchCandidate scores the candidate against every catalog entry with a
// fresh snapshot, persists all matches at or above the confidence floor and
// returns them best first. The snapshot is frozen into each match row.
// Returns an empty slice (not an error) when nothing clears the floor.
func (m *Matcher) MatchCandidate(ctx context.Context, c *contracts.Candidate) ([]contracts.Match, error) {
	entries, err := m.catalog.Entries(ctx)
	if err != nil {
		return nil, err
	}

	minConfidence := int(m.settings.Int(ctx, settings.KeyMinConfidence))
	freshness := time.Duration(m.settings.Int(ctx, settings.KeyFreshnessHours)) * time.Hour
	cutoff := time.Now().Add(-freshness)

	var matches []contracts.Match
	for _, entry := range entries {
		// Entries without fresh market data are invisible to matching; a
		// stale snapshot must never leak into a valuation.
		if entry.Latest == nil || entry.Latest.SnapshotAt.Before(cutoff) {
			continue
		}

		score := m.Score(c.Title, entry.Title)
		if score < minConfidence {
			continue
		}

		matches = append(matches, contracts.Match{
			CandidateID:    c.ID,
			CatalogEntryID: entry.ID,
			EntryTitle:     entry.Title,
			Score:          score,
			Method:         contracts.MatchMethodTokenSort,
			Snapshot:       *entry.Latest,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if err := m.store.Replace(ctx, c.ID, matches); err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"candidate_id": c.ID,
		"matches":      len(matches),
	}).Debug("Candidate matched")

	return matches, nil
}

func tokenSort(s string) string {
	tokens := strings.Fields(ingest.Fold(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
