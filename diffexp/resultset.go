package diffexp

import (
	"io"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

// WriteCSV emits the per-marker statistics as a comma-delimited table with a
// header row, in matrix marker order.
func (rs *ResultSet) WriteCSV(w io.Writer) error {
	results := make([]*Result, 0, len(rs.Results))
	for i := range rs.Results {
		results = append(results, &rs.Results[i])
	}

	if err := gocsv.Marshal(&results, w); err != nil {
		return pfx.Err(err)
	}

	return nil
}

// Significant returns the results whose adjusted p-value is at or below
// alpha, in matrix marker order.
func (rs *ResultSet) Significant(alpha float64) []Result {
	var out []Result
	for _, r := range rs.Results {
		if r.AdjPValue <= alpha {
			out = append(out, r)
		}
	}

	return out
}

// TopByAdjP returns up to n results ordered by ascending adjusted p-value,
// ties broken by marker id for determinism.
func (rs *ResultSet) TopByAdjP(n int) []Result {
	out := make([]Result, len(rs.Results))
	copy(out, rs.Results)

	sort.Slice(out, func(a, b int) bool {
		if out[a].AdjPValue != out[b].AdjPValue {
			return out[a].AdjPValue < out[b].AdjPValue
		}
		return out[a].MarkerID < out[b].MarkerID
	})

	if n < len(out) {
		out = out[:n]
	}

	return out
}

// Lookup returns the result for one marker id, if present.
func (rs *ResultSet) Lookup(markerID string) (Result, bool) {
	for _, r := range rs.Results {
		if r.MarkerID == markerID {
			return r, true
		}
	}

	return Result{}, false
}
