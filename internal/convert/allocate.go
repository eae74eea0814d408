// Package convert turns READY candidates into purchase records, splitting the
// acquisition price across the chosen matches cent-exactly.
package convert

import "sort"

// Allocate splits total across weights proportionally using the largest
// remainder method: every share is >= 0, the shares sum to exactly total, and
// ties in remainder break by original position. A zero weight sum falls back
// to equal weights so the total is still fully assigned.
func Allocate(total int64, weights []int64) []int64 {
	n := len(weights)
	if n == 0 {
		return nil
	}

	var sum int64
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}

	normalized := make([]int64, n)
	if sum == 0 {
		for i := range normalized {
			normalized[i] = 1
		}
		sum = int64(n)
	} else {
		for i, w := range weights {
			if w > 0 {
				normalized[i] = w
			}
		}
	}

	shares := make([]int64, n)
	remainders := make([]int, 0, n)
	var assigned int64
	for i, w := range normalized {
		shares[i] = total * w / sum
		assigned += shares[i]
		remainders = append(remainders, i)
	}

	// Distribute the leftover cents by largest remainder, earliest index on
	// ties.
	sort.SliceStable(remainders, func(a, b int) bool {
		ra := total*normalized[remainders[a]] % sum
		rb := total*normalized[remainders[b]] % sum
		return ra > rb
	})

	leftover := total - assigned
	for i := int64(0); i < leftover; i++ {
		shares[remainders[i%int64(n)]]++
	}

	return shares
}
