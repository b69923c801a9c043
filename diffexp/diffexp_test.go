package diffexp

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smallrna/mirdiff/countsmatrix"
	"github.com/smallrna/mirdiff/dataset"
)

func floatsClose(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSizeFactorsMedianOfRatios(t *testing.T) {
	// Both markers double from S1 to S2, so the factors must reflect a
	// two-fold sequencing depth difference around a geometric center.
	m := countsmatrix.Build([]dataset.Observation{
		{SampleID: "S1", MarkerID: "M1", ReadCount: 1},
		{SampleID: "S2", MarkerID: "M1", ReadCount: 4},
		{SampleID: "S1", MarkerID: "M2", ReadCount: 1},
		{SampleID: "S2", MarkerID: "M2", ReadCount: 4},
	})

	sf, err := SizeFactors(m)
	require.NoError(t, err)
	require.Len(t, sf, 2)

	require.True(t, floatsClose(sf[0], 0.5, 1e-12), "sf[S1] = %f", sf[0])
	require.True(t, floatsClose(sf[1], 2.0, 1e-12), "sf[S2] = %f", sf[1])
}

func TestSizeFactorsNoUsableMarker(t *testing.T) {
	// Every marker has a zero somewhere, so no reference can be formed.
	m := countsmatrix.Build([]dataset.Observation{
		{SampleID: "S1", MarkerID: "M1", ReadCount: 5},
		{SampleID: "S2", MarkerID: "M2", ReadCount: 8},
	})

	_, err := SizeFactors(m)
	require.Error(t, err)
}

func TestAdjustBH(t *testing.T) {
	for _, v := range []struct {
		p        []float64
		expected []float64
	}{
		{[]float64{0.01, 0.02, 0.03, 0.04}, []float64{0.04, 0.04, 0.04, 0.04}},
		{[]float64{0.005, 0.1, 0.9}, []float64{0.015, 0.15, 0.9}},
		{[]float64{1, 1, 1}, []float64{1, 1, 1}},
		{nil, nil},
	} {
		got := AdjustBH(v.p)
		require.Len(t, got, len(v.expected))
		for i := range got {
			require.True(t, floatsClose(got[i], v.expected[i], 1e-12),
				"AdjustBH(%v)[%d] = %f, expected %f", v.p, i, got[i], v.expected[i])
		}
	}
}

// fixture builds a 5-marker, 6-sample experiment: M1 strongly up in PAXgene,
// M2 strongly down, M3-M5 flat.
func fixture(t *testing.T) (*countsmatrix.Matrix, *countsmatrix.SampleTable) {
	t.Helper()

	counts := map[string]map[string]float64{
		"M1": {"S1": 10, "S2": 12, "S3": 11, "P1": 200, "P2": 210, "P3": 190},
		"M2": {"S1": 200, "S2": 210, "S3": 190, "P1": 10, "P2": 12, "P3": 11},
		"M3": {"S1": 100, "S2": 102, "S3": 98, "P1": 100, "P2": 101, "P3": 99},
		"M4": {"S1": 50, "S2": 52, "S3": 49, "P1": 51, "P2": 50, "P3": 50},
		"M5": {"S1": 80, "S2": 81, "S3": 79, "P1": 80, "P2": 82, "P3": 78},
	}

	var obs []dataset.Observation
	for marker, row := range counts {
		for sample, count := range row {
			obs = append(obs, dataset.Observation{SampleID: sample, MarkerID: marker, ReadCount: count})
		}
	}

	var samples []dataset.Sample
	for _, id := range []string{"S1", "S2", "S3"} {
		samples = append(samples, dataset.Sample{SampleID: id, MatrixType: "Serum", DonorID: "D" + id, ReplicateID: id, Study: "PILOT"})
	}
	for _, id := range []string{"P1", "P2", "P3"} {
		samples = append(samples, dataset.Sample{SampleID: id, MatrixType: "PAXgene", DonorID: "D" + id, ReplicateID: id, Study: "PILOT"})
	}

	st, err := countsmatrix.AlignSamples(samples)
	require.NoError(t, err)

	return countsmatrix.Build(obs), st
}

func TestFit(t *testing.T) {
	m, st := fixture(t)

	rs, err := Fit(m, st, countsmatrix.Serum)
	require.NoError(t, err)
	require.Equal(t, countsmatrix.Serum, rs.Reference)
	require.Equal(t, countsmatrix.PAXgene, rs.Contrast)
	require.Len(t, rs.Results, 5)

	byID := make(map[string]Result, len(rs.Results))
	for _, r := range rs.Results {
		byID[r.MarkerID] = r

		require.False(t, math.IsNaN(r.Log2FoldChange), "%s LFC is NaN", r.MarkerID)
		require.False(t, math.IsNaN(r.PValue), "%s p is NaN", r.MarkerID)
		require.True(t, r.PValue >= 0 && r.PValue <= 1, "%s p out of range: %f", r.MarkerID, r.PValue)
		require.True(t, r.AdjPValue >= 0 && r.AdjPValue <= 1, "%s padj out of range: %f", r.MarkerID, r.AdjPValue)
		require.True(t, r.AdjPValue >= r.PValue-1e-12, "%s padj below p", r.MarkerID)
		require.True(t, r.LfcSE > 0, "%s se not positive", r.MarkerID)
		require.True(t, math.Abs(r.ShrunkenLFC) <= math.Abs(r.Log2FoldChange)+1e-12,
			"%s shrinkage increased the effect", r.MarkerID)
	}

	// M1 up in PAXgene, M2 down, both clearly significant
	require.True(t, byID["M1"].Log2FoldChange > 2, "M1 LFC = %f", byID["M1"].Log2FoldChange)
	require.True(t, byID["M2"].Log2FoldChange < -2, "M2 LFC = %f", byID["M2"].Log2FoldChange)
	require.Less(t, byID["M1"].AdjPValue, 0.01)
	require.Less(t, byID["M2"].AdjPValue, 0.01)

	// flat markers must not be called
	require.Greater(t, byID["M3"].PValue, 0.05)
	require.True(t, math.Abs(byID["M3"].Log2FoldChange) < 0.2, "M3 LFC = %f", byID["M3"].Log2FoldChange)

	// shrinkage keeps the sign of the strong effects
	require.True(t, byID["M1"].ShrunkenLFC > 0)
	require.True(t, byID["M2"].ShrunkenLFC < 0)
}

func TestFitDeterministic(t *testing.T) {
	m, st := fixture(t)

	a, err := Fit(m, st, countsmatrix.Serum)
	require.NoError(t, err)
	b, err := Fit(m, st, countsmatrix.Serum)
	require.NoError(t, err)

	require.Equal(t, a.Results, b.Results)
}

func TestFitRejectsMisalignedInputs(t *testing.T) {
	m, _ := fixture(t)

	bad := &countsmatrix.SampleTable{Rows: []countsmatrix.AlignedSample{
		{SampleID: "S1", MatrixType: countsmatrix.Serum},
		{SampleID: "NOPE", MatrixType: countsmatrix.PAXgene},
	}}

	_, err := Fit(m, bad, countsmatrix.Serum)
	require.Error(t, err)

	var alignErr *countsmatrix.AlignmentError
	require.True(t, errors.As(err, &alignErr), "expected *AlignmentError, got %T", err)
}

func TestFitRejectsDuplicatedSampleRow(t *testing.T) {
	// Same label set, different lengths: the fit must refuse cleanly with an
	// alignment error rather than index past the matrix columns.
	m, st := fixture(t)

	rows := make([]countsmatrix.AlignedSample, len(st.Rows), len(st.Rows)+1)
	copy(rows, st.Rows)
	duplicated := &countsmatrix.SampleTable{Rows: append(rows, st.Rows[len(st.Rows)-1])}

	_, err := Fit(m, duplicated, countsmatrix.Serum)
	require.Error(t, err)

	var alignErr *countsmatrix.AlignmentError
	require.True(t, errors.As(err, &alignErr), "expected *AlignmentError, got %T", err)
	require.Equal(t, len(m.Samples), alignErr.Position)
}

func TestFitRejectsMissingReference(t *testing.T) {
	counts := []dataset.Observation{}
	for _, id := range []string{"A1", "A2", "B1", "B2"} {
		counts = append(counts, dataset.Observation{SampleID: id, MarkerID: "M1", ReadCount: 10})
	}

	var samples []dataset.Sample
	for _, id := range []string{"A1", "A2", "B1", "B2"} {
		samples = append(samples, dataset.Sample{SampleID: id, MatrixType: "Serum", ReplicateID: id})
	}

	st, err := countsmatrix.AlignSamples(samples)
	require.NoError(t, err)

	// single-level design: no contrast to estimate
	_, err = Fit(countsmatrix.Build(counts), st, countsmatrix.PAXgene)
	require.Error(t, err)
}

func TestResultSetHelpers(t *testing.T) {
	m, st := fixture(t)

	rs, err := Fit(m, st, countsmatrix.Serum)
	require.NoError(t, err)

	sig := rs.Significant(0.05)
	require.NotEmpty(t, sig)
	for _, r := range sig {
		require.LessOrEqual(t, r.AdjPValue, 0.05)
	}

	top := rs.TopByAdjP(2)
	require.Len(t, top, 2)
	require.LessOrEqual(t, top[0].AdjPValue, top[1].AdjPValue)

	ids := map[string]bool{top[0].MarkerID: true, top[1].MarkerID: true}
	require.True(t, ids["M1"] && ids["M2"], "top 2 should be the strong markers: %v", ids)

	r, ok := rs.Lookup("M1")
	require.True(t, ok)
	require.Equal(t, "M1", r.MarkerID)
	_, ok = rs.Lookup("NOPE")
	require.False(t, ok)
}

func TestWriteCSV(t *testing.T) {
	m, st := fixture(t)

	rs, err := Fit(m, st, countsmatrix.Serum)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rs.WriteCSV(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6) // header + 5 markers
	require.Equal(t, "marker_id,base_mean,log2_fold_change,lfc_se,stat,pvalue,padj,shrunken_lfc", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "M1,"), "first data row: %s", lines[1])
}
