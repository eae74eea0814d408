package prune

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

type fakeDeleter struct {
	remaining int64
	calls     int
	statuses  []contracts.CandidateStatus
}

func (f *fakeDeleter) PruneTerminal(_ context.Context, _ time.Time, statuses []contracts.CandidateStatus, cap int) (int64, error) {
	f.calls++
	f.statuses = statuses
	n := int64(cap)
	if f.remaining < n {
		n = f.remaining
	}
	f.remaining -= n
	return n, nil
}

type fakeSettings struct{}

func (fakeSettings) Int(_ context.Context, key string) int64  { return settings.DefaultInt(key) }
func (fakeSettings) Text(_ context.Context, key string) string { return settings.DefaultText(key) }
func (fakeSettings) Strings(context.Context, string) []string  { return nil }

func TestPruner_RunAllDrainsInBatches(t *testing.T) {
	// 450 prunable rows against the default batch size of 200.
	store := &fakeDeleter{remaining: 450}
	p := NewPruner(store, fakeSettings{}, logger.NewNop())

	total, err := p.RunAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(450), total)
	assert.Equal(t, 3, store.calls, "two full batches plus one short one")
}

func TestPruner_OnlyTerminalLowSignalStatuses(t *testing.T) {
	store := &fakeDeleter{}
	p := NewPruner(store, fakeSettings{}, logger.NewNop())

	_, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []contracts.CandidateStatus{
		contracts.StatusLowValue, contracts.StatusDiscarded, contracts.StatusError,
	}, store.statuses)
	assert.NotContains(t, store.statuses, contracts.StatusReady)
	assert.NotContains(t, store.statuses, contracts.StatusConverted)
}
