package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateStatus_Transitions(t *testing.T) {
	tests := []struct {
		name string
		from CandidateStatus
		to   CandidateStatus
		ok   bool
	}{
		{"new to analyzing", StatusNew, StatusAnalyzing, true},
		{"analyzing to ready", StatusAnalyzing, StatusReady, true},
		{"analyzing to low value", StatusAnalyzing, StatusLowValue, true},
		{"ready recomputed to low value", StatusReady, StatusLowValue, true},
		{"low value recomputed to ready", StatusLowValue, StatusReady, true},
		{"ready to converted", StatusReady, StatusConverted, true},
		{"low value to converted", StatusLowValue, StatusConverted, true},
		{"ready to discarded", StatusReady, StatusDiscarded, true},
		{"error back to analyzing", StatusError, StatusAnalyzing, true},
		{"converted is final", StatusConverted, StatusReady, false},
		{"discarded is final", StatusDiscarded, StatusAnalyzing, false},
		{"new cannot skip to ready", StatusNew, StatusReady, false},
		{"converted cannot discard", StatusConverted, StatusDiscarded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestCandidate_Transition(t *testing.T) {
	c := &Candidate{Status: StatusNew}

	require.NoError(t, c.Transition(StatusAnalyzing, ""))
	require.NoError(t, c.Transition(StatusLowValue, "no confident matches"))
	assert.Equal(t, "no confident matches", c.StatusReason)

	err := c.Transition(StatusNew, "")
	require.Error(t, err)

	var illegal *ErrIllegalTransition
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, StatusLowValue, illegal.From)

	// Failed transition leaves the candidate untouched.
	assert.Equal(t, StatusLowValue, c.Status)
	assert.Equal(t, "no confident matches", c.StatusReason)
}

func TestCandidateStatus_Terminal(t *testing.T) {
	assert.True(t, StatusConverted.Terminal())
	assert.True(t, StatusDiscarded.Terminal())
	assert.False(t, StatusReady.Terminal())
	assert.False(t, StatusError.Terminal())
}

func TestCandidate_AcquisitionPriceCents(t *testing.T) {
	fixed := &Candidate{PriceCents: 2500}
	assert.EqualValues(t, 2500, fixed.AcquisitionPriceCents())

	auction := &Candidate{PriceCents: 2500, IsAuction: true, CurrentBidCents: 1700}
	assert.EqualValues(t, 1700, auction.AcquisitionPriceCents())

	// Auction with no bids yet falls back to the asking price.
	noBids := &Candidate{PriceCents: 2500, IsAuction: true}
	assert.EqualValues(t, 2500, noBids.AcquisitionPriceCents())
}

func TestAgentQuery_Due(t *testing.T) {
	now := time.Now()

	q := &AgentQuery{Enabled: true, NextRunAt: now.Add(-time.Minute)}
	assert.True(t, q.Due(now))

	q.NextRunAt = now.Add(time.Minute)
	assert.False(t, q.Due(now))

	q.NextRunAt = now.Add(-time.Minute)
	q.Enabled = false
	assert.False(t, q.Due(now))
}
