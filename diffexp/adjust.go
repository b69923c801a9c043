package diffexp

import "sort"

// AdjustBH applies the Benjamini-Hochberg step-up procedure to a slice of raw
// p-values, returning adjusted values in the original order. Output values
// are clamped to [0,1] and are monotone in the p-value ranking.
func AdjustBH(p []float64) []float64 {
	n := len(p)
	if n == 0 {
		return nil
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] < p[idx[b]] })

	out := make([]float64, n)
	running := 1.0
	for rank := n; rank >= 1; rank-- {
		i := idx[rank-1]
		adj := p[i] * float64(n) / float64(rank)
		if adj < running {
			running = adj
		}
		out[i] = running
	}

	return out
}
