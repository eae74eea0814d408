package convert

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rwerner/sourcing-radar/internal/contracts"
)

func sum(shares []int64) int64 {
	var s int64
	for _, v := range shares {
		s += v
	}
	return s
}

func TestAllocate_Exact(t *testing.T) {
	tests := []struct {
		name    string
		total   int64
		weights []int64
		want    []int64
	}{
		{"even split", 1000, []int64{1, 1}, []int64{500, 500}},
		{"proportional", 1000, []int64{3, 1}, []int64{750, 250}},
		{"remainder to largest fraction", 100, []int64{1, 1, 1}, []int64{34, 33, 33}},
		{"zero weights fall back to equal", 101, []int64{0, 0}, []int64{51, 50}},
		{"single match takes all", 4242, []int64{7}, []int64{4242}},
		{"negative weights ignored", 100, []int64{-5, 1}, []int64{0, 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(tt.total, tt.weights)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.total, sum(got))
		})
	}
}

func TestAllocate_TiesBreakByPosition(t *testing.T) {
	// Equal weights, 1 leftover cent: the earliest position gets it.
	got := Allocate(7, []int64{1, 1, 1})
	assert.Equal(t, []int64{3, 2, 2}, got)
}

// Property check: for any price and weight set the allocation is exact and
// non-negative.
func TestAllocate_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		total := rng.Int63n(1_000_000)
		weights := make([]int64, 1+rng.Intn(9))
		for j := range weights {
			weights[j] = rng.Int63n(50_000)
		}

		shares := Allocate(total, weights)
		require.Len(t, shares, len(weights))
		assert.Equal(t, total, sum(shares), "total=%d weights=%v", total, weights)
		for _, s := range shares {
			assert.GreaterOrEqual(t, s, int64(0))
		}
	}
}

func TestChooseMatches(t *testing.T) {
	all := []contracts.Match{
		{ID: 1},
		{ID: 2, Confirmed: true},
		{ID: 3, Rejected: true},
		{ID: 4},
	}

	// Default with a confirmed match present: confirmed only.
	got := chooseMatches(all, nil)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)

	// No confirmations: all non-rejected.
	none := []contracts.Match{{ID: 1}, {ID: 3, Rejected: true}, {ID: 4}}
	got = chooseMatches(none, nil)
	require.Len(t, got, 2)

	// Explicit ids win, but rejected matches stay out.
	got = chooseMatches(all, []int64{1, 3})
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
}
