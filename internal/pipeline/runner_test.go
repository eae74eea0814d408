package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
	"github.com/rwerner/sourcing-radar/internal/ingest"
	"github.com/rwerner/sourcing-radar/internal/match"
	"github.com/rwerner/sourcing-radar/internal/settings"
	"github.com/rwerner/sourcing-radar/internal/valuation"
	"github.com/rwerner/sourcing-radar/pkg/logger"
)

// memCandidates is an in-memory candidate store shared by the stage fakes.
type memCandidates struct {
	byID   map[int64]*contracts.Candidate
	nextID int64
}

func newMemCandidates() *memCandidates {
	return &memCandidates{byID: map[int64]*contracts.Candidate{}}
}

func (m *memCandidates) Insert(_ context.Context, c *contracts.Candidate) (bool, error) {
	for _, existing := range m.byID {
		if existing.Platform == c.Platform && existing.ExternalID == c.ExternalID {
			return false, nil
		}
	}
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.byID[c.ID] = &cp
	return true, nil
}

func (m *memCandidates) GetByID(_ context.Context, id int64) (*contracts.Candidate, error) {
	cp := *m.byID[id]
	return &cp, nil
}

func (m *memCandidates) UpdateValuation(_ context.Context, c *contracts.Candidate) error {
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCandidates) UpdateStatus(_ context.Context, id int64, status contracts.CandidateStatus, reason string) error {
	m.byID[id].Status = status
	m.byID[id].StatusReason = reason
	return nil
}

func (m *memCandidates) UpdateEnrichment(_ context.Context, id int64, d *contracts.ListingDetail) error {
	m.byID[id].Description = d.Description
	return nil
}

func (m *memCandidates) EnrichmentQueue(context.Context, string, int) ([]contracts.Candidate, error) {
	return nil, nil
}

// memMatches stores match sets per candidate.
type memMatches struct {
	byCandidate map[int64][]contracts.Match
}

func (m *memMatches) Replace(_ context.Context, candidateID int64, matches []contracts.Match) error {
	if m.byCandidate == nil {
		m.byCandidate = map[int64][]contracts.Match{}
	}
	m.byCandidate[candidateID] = matches
	return nil
}

func (m *memMatches) ListByCandidate(_ context.Context, candidateID int64) ([]contracts.Match, error) {
	return m.byCandidate[candidateID], nil
}

// memRuns records run rows in memory.
type memRuns struct {
	started  []*contracts.Run
	finished []*contracts.Run
	last     *contracts.Run
	empty    int
}

func (m *memRuns) Start(_ context.Context, run *contracts.Run) error {
	m.started = append(m.started, run)
	return nil
}

func (m *memRuns) Finish(_ context.Context, run *contracts.Run) error {
	m.finished = append(m.finished, run)
	return nil
}

func (m *memRuns) LastFinished(context.Context, string) (*contracts.Run, error) {
	return m.last, nil
}

func (m *memRuns) ConsecutiveEmpty(context.Context, string, int) (int, error) {
	return m.empty, nil
}

type fakeCatalog struct{ entries []contracts.CatalogEntry }

func (f *fakeCatalog) Entries(context.Context) ([]contracts.CatalogEntry, error) {
	return f.entries, nil
}

type fakeSettings struct{}

func (fakeSettings) Int(_ context.Context, key string) int64  { return settings.DefaultInt(key) }
func (fakeSettings) Text(_ context.Context, key string) string { return settings.DefaultText(key) }

func (fakeSettings) Strings(_ context.Context, key string) []string {
	var out []string
	for _, p := range strings.Split(settings.DefaultText(key), ",") {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

type scriptedClient struct {
	platform string
	result   *contracts.FetchResult
}

func (s *scriptedClient) Platform() string { return s.platform }

func (s *scriptedClient) FetchListings(context.Context, []string, contracts.PagingOptions) *contracts.FetchResult {
	return s.result
}

func (s *scriptedClient) FetchListingDetail(context.Context, string) *contracts.DetailResult {
	return &contracts.DetailResult{Detail: &contracts.ListingDetail{}}
}

type env struct {
	runner     *Runner
	candidates *memCandidates
	runs       *memRuns
	events     []string
}

func newEnv(t *testing.T, result *contracts.FetchResult, entries []contracts.CatalogEntry) *env {
	t.Helper()

	log := logger.NewNop()
	candidates := newMemCandidates()
	matchStore := &memMatches{}
	runRepo := &memRuns{}
	s := fakeSettings{}

	e := &env{candidates: candidates, runs: runRepo}

	ingestor := ingest.NewIngestor(candidates, s, log)
	matcher := match.NewMatcher(&fakeCatalog{entries: entries}, matchStore, s, log)
	valuer := valuation.NewService(candidates, matchStore, s, log)

	e.runner = NewRunner(
		map[string]contracts.MarketplaceClient{
			"kleinanzeigen": &scriptedClient{platform: "kleinanzeigen", result: result},
		},
		ingestor, matcher, valuer, candidates, runRepo, s, log,
		func(event string, _ interface{}) { e.events = append(e.events, event) },
	)
	return e
}

func freshEntry(id int64, title string, payout int64) contracts.CatalogEntry {
	return contracts.CatalogEntry{
		ID: id, Title: title,
		Latest: &contracts.MarketSnapshot{
			SalesRank: 100, PayoutCents: payout, SnapshotAt: time.Now(),
		},
	}
}

func TestExecute_EndToEnd(t *testing.T) {
	result := &contracts.FetchResult{Listings: []contracts.Listing{
		{ExternalID: "a", Title: "LEGO 75192 Millennium Falcon", PriceCents: 5000, SellerKind: contracts.SellerPrivate},
		{ExternalID: "b", Title: "Defekt LEGO Posten", PriceCents: 5000, SellerKind: contracts.SellerPrivate},
	}}
	entries := []contracts.CatalogEntry{
		freshEntry(1, "LEGO Millennium Falcon 75192", 12_000),
	}
	e := newEnv(t, result, entries)

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger:  contracts.TriggerManual,
		Platform: "kleinanzeigen",
		Terms:    []string{"lego"},
	})
	require.NoError(t, err)

	assert.Equal(t, contracts.OutcomeOK, run.Outcome)
	assert.Equal(t, 2, run.ListingsScraped)
	assert.Equal(t, 1, run.CandidatesNew, "the defekt listing is filtered")
	assert.Equal(t, 1, run.CandidatesReady)

	c := e.candidates.byID[1]
	assert.Equal(t, contracts.StatusReady, c.Status)
	assert.Positive(t, c.ProfitCents)

	assert.Contains(t, e.events, "run.started")
	assert.Contains(t, e.events, "candidate.analyzed")
	assert.Contains(t, e.events, "run.finished")
	require.Len(t, e.runs.finished, 1)
}

func TestExecute_NoMatchesGoesLowValue(t *testing.T) {
	result := &contracts.FetchResult{Listings: []contracts.Listing{
		{ExternalID: "a", Title: "Gameboy Color lila", PriceCents: 3000, SellerKind: contracts.SellerPrivate},
	}}
	e := newEnv(t, result, []contracts.CatalogEntry{
		freshEntry(1, "LEGO Millennium Falcon 75192", 12_000),
	})

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger: contracts.TriggerSchedule, Platform: "kleinanzeigen",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, run.CandidatesReady)

	c := e.candidates.byID[1]
	assert.Equal(t, contracts.StatusLowValue, c.Status)
	assert.Equal(t, "no confident matches", c.StatusReason)
	assert.Zero(t, c.RevenueCents)
}

func TestExecute_BlockedRun(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{Blocked: true, ErrorMessage: "captcha"}, nil)

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger: contracts.TriggerSchedule, Platform: "kleinanzeigen",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeBlocked, run.Outcome)
	assert.Equal(t, "captcha", run.ErrorMessage)
	assert.Zero(t, run.ListingsScraped)
}

func TestExecute_BlockedRunExtendsEmptyStreak(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{Blocked: true, ErrorMessage: "captcha"}, nil)
	e.runs.empty = 4 // default threshold is 5; this blocked run is the fifth

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger: contracts.TriggerSchedule, Platform: "kleinanzeigen",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeDegraded, run.Outcome,
		"a block counts toward the empty streak like a true empty result")
	assert.Equal(t, "captcha", run.ErrorMessage)
}

func TestExecute_BlockedRunKeepsMessage(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{Blocked: true}, nil)

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger: contracts.TriggerSchedule, Platform: "kleinanzeigen",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeBlocked, run.Outcome)
	assert.NotEmpty(t, run.ErrorMessage, "ShouldRun needs the message to tell block-degraded runs apart")
}

func TestExecute_DegradedAfterEmptyStreak(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{}, nil)
	e.runs.empty = 4 // default threshold is 5; this run is the fifth

	run, err := e.runner.Execute(context.Background(), Request{
		Trigger: contracts.TriggerSchedule, Platform: "kleinanzeigen",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.OutcomeDegraded, run.Outcome)
}

func TestExecute_UnknownPlatform(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{}, nil)

	_, err := e.runner.Execute(context.Background(), Request{Platform: "nope"})
	assert.Error(t, err)
}

func finishedRun(outcome contracts.RunOutcome, age time.Duration) *contracts.Run {
	finished := time.Now().Add(-age)
	return &contracts.Run{Outcome: outcome, FinishedAt: &finished}
}

func TestShouldRun_Gates(t *testing.T) {
	e := newEnv(t, &contracts.FetchResult{}, nil)
	ctx := context.Background()

	ok, _ := e.runner.ShouldRun(ctx, "kleinanzeigen", false)
	assert.True(t, ok, "no history allows a run")

	// Inside the 30 minute minimum interval.
	e.runs.last = finishedRun(contracts.OutcomeOK, 5*time.Minute)
	ok, reason := e.runner.ShouldRun(ctx, "kleinanzeigen", false)
	assert.False(t, ok)
	assert.Contains(t, reason, "minimum interval")

	// Force bypasses the interval gate.
	ok, _ = e.runner.ShouldRun(ctx, "kleinanzeigen", true)
	assert.True(t, ok)

	// The cooldown after a blocked run holds even under force.
	e.runs.last = finishedRun(contracts.OutcomeBlocked, 5*time.Minute)
	ok, reason = e.runner.ShouldRun(ctx, "kleinanzeigen", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "cooldown")

	// Cooldown expired.
	e.runs.last = finishedRun(contracts.OutcomeBlocked, 20*time.Minute)
	ok, _ = e.runner.ShouldRun(ctx, "kleinanzeigen", true)
	assert.True(t, ok)

	// A degraded run that was really a block (error message present) still
	// arms the cooldown.
	e.runs.last = finishedRun(contracts.OutcomeDegraded, 5*time.Minute)
	e.runs.last.ErrorMessage = "captcha"
	ok, reason = e.runner.ShouldRun(ctx, "kleinanzeigen", true)
	assert.False(t, ok)
	assert.Contains(t, reason, "cooldown")

	// A degraded run from genuinely empty results does not.
	e.runs.last = finishedRun(contracts.OutcomeDegraded, 5*time.Minute)
	ok, _ = e.runner.ShouldRun(ctx, "kleinanzeigen", true)
	assert.True(t, ok)
}
