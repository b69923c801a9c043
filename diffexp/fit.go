package diffexp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/smallrna/mirdiff/countsmatrix"
)

const (
	// pseudocount added to group means before taking the fold-change log, so
	// that all-zero groups stay finite.
	pseudocount = 0.5

	// defaultDispersion stands in for the trend when too few markers carry a
	// usable moments estimate (e.g. tiny simulated inputs).
	defaultDispersion = 0.01

	minDispersion = 1e-8
)

// Result holds the fitted statistics of one marker.
type Result struct {
	MarkerID       string  `csv:"marker_id"`
	BaseMean       float64 `csv:"base_mean"`
	Log2FoldChange float64 `csv:"log2_fold_change"`
	LfcSE          float64 `csv:"lfc_se"`
	Stat           float64 `csv:"stat"`
	PValue         float64 `csv:"pvalue"`
	AdjPValue      float64 `csv:"padj"`
	ShrunkenLFC    float64 `csv:"shrunken_lfc"`
}

// ResultSet is the full fit. Results follow the marker order of the input
// matrix. The fold change is Contrast over Reference: positive values mean
// higher expression in the contrast level.
type ResultSet struct {
	Reference countsmatrix.MatrixType
	Contrast  countsmatrix.MatrixType
	Results   []Result
}

// Fit runs the two-group negative binomial Wald test on every marker of the
// matrix, contrasting the non-reference matrix type against ref. The matrix
// columns and sample table rows must already be aligned; Fit re-verifies this
// and refuses to proceed on mismatch, since a misaligned design silently
// produces wrong answers.
//
// Dispersion is estimated per marker by the method of moments on normalized
// counts, then shrunk halfway toward a 1/mean trend fitted across markers.
// P-values come from the Wald statistic against a standard normal, adjusted
// by Benjamini-Hochberg. Shrunken fold changes apply a normal prior whose
// variance is the excess of observed fold-change spread over sampling noise.
func Fit(m *countsmatrix.Matrix, st *countsmatrix.SampleTable, ref countsmatrix.MatrixType) (*ResultSet, error) {
	if err := countsmatrix.CheckAligned(m, st); err != nil {
		return nil, err
	}

	contrast, err := contrastLevel(st, ref)
	if err != nil {
		return nil, err
	}

	var refCols, conCols []int
	for j, row := range st.Rows {
		if row.MatrixType == ref {
			refCols = append(refCols, j)
		} else {
			conCols = append(conCols, j)
		}
	}
	if len(refCols) < 2 || len(conCols) < 2 {
		return nil, fmt.Errorf("fit: need at least 2 samples per matrix type, got %d %s and %d %s", len(refCols), ref, len(conCols), contrast)
	}

	sf, err := SizeFactors(m)
	if err != nil {
		return nil, err
	}

	perMarker := make([]markerMoments, len(m.Markers))

	for i, marker := range m.Markers {
		row := m.Row(marker)

		norm := make([]float64, len(row))
		for j, v := range row {
			norm[j] = v / sf[j]
		}

		refVals := subset(norm, refCols)
		conVals := subset(norm, conCols)

		mom := markerMoments{
			baseMean: stat.Mean(norm, nil),
			muRef:    stat.Mean(refVals, nil),
			muCon:    stat.Mean(conVals, nil),
		}

		if d, ok := momentsDispersion(refVals, conVals); ok {
			mom.dispMoM = d
			mom.hasMoM = true
		}

		perMarker[i] = mom
	}

	trendA0, trendA1 := fitDispersionTrend(perMarker)

	normal := distuv.Normal{Mu: 0, Sigma: 1}
	rs := &ResultSet{Reference: ref, Contrast: contrast, Results: make([]Result, len(m.Markers))}
	pvalues := make([]float64, len(m.Markers))

	for i, marker := range m.Markers {
		mom := perMarker[i]

		trend := trendA0
		if mom.baseMean > 0 {
			trend += trendA1 / mom.baseMean
		}

		alpha := trend
		if mom.hasMoM {
			alpha = 0.5*mom.dispMoM + 0.5*trend
		}
		if alpha < minDispersion {
			alpha = minDispersion
		}

		muRef := mom.muRef + pseudocount
		muCon := mom.muCon + pseudocount

		lfc := math.Log2(muCon / muRef)

		// delta-method variance of the log group means under NB
		vRef := (1/muRef + alpha) / float64(len(refCols))
		vCon := (1/muCon + alpha) / float64(len(conCols))
		se := math.Sqrt(vRef+vCon) / math.Ln2

		z := lfc / se
		p := 2 * normal.Survival(math.Abs(z))
		if p > 1 {
			p = 1
		}

		rs.Results[i] = Result{
			MarkerID:       marker,
			BaseMean:       mom.baseMean,
			Log2FoldChange: lfc,
			LfcSE:          se,
			Stat:           z,
			PValue:         p,
		}
		pvalues[i] = p
	}

	for i, padj := range AdjustBH(pvalues) {
		rs.Results[i].AdjPValue = padj
	}

	shrinkLFC(rs.Results)

	return rs, nil
}

func contrastLevel(st *countsmatrix.SampleTable, ref countsmatrix.MatrixType) (countsmatrix.MatrixType, error) {
	levels := st.Levels()
	if len(levels) != 2 {
		return "", fmt.Errorf("fit: expected exactly 2 matrix type levels, got %v", levels)
	}

	var haveRef bool
	var contrast countsmatrix.MatrixType
	for _, l := range levels {
		if l == ref {
			haveRef = true
		} else {
			contrast = l
		}
	}
	if !haveRef {
		return "", fmt.Errorf("fit: reference level %s is not present among %v", ref, levels)
	}

	return contrast, nil
}

// momentsDispersion pools the per-group method-of-moments estimates
// (var - mu) / mu^2 of the NB dispersion. Returns false when no group yields
// a positive estimate, which happens for markers at or below Poisson noise.
func momentsDispersion(groups ...[]float64) (float64, bool) {
	sum, n := 0.0, 0

	for _, g := range groups {
		if len(g) < 2 {
			continue
		}

		mu := stat.Mean(g, nil)
		if mu <= 0 {
			continue
		}

		v := stat.Variance(g, nil)
		if d := (v - mu) / (mu * mu); d > 0 {
			sum += d
			n++
		}
	}

	if n == 0 {
		return 0, false
	}

	return sum / float64(n), true
}

// markerMoments carries the per-marker intermediates of the fit.
type markerMoments struct {
	baseMean     float64
	muRef, muCon float64
	dispMoM      float64
	hasMoM       bool
}

// fitDispersionTrend least-squares fits dispersion = a0 + a1/mean over the
// markers carrying a moments estimate, clamping both coefficients to be
// non-negative. With fewer than three usable markers it falls back to a flat
// default.
func fitDispersionTrend(perMarker []markerMoments) (a0, a1 float64) {
	var xs, ys []float64

	for _, mom := range perMarker {
		if !mom.hasMoM || mom.baseMean <= 0 {
			continue
		}
		xs = append(xs, 1/mom.baseMean)
		ys = append(ys, mom.dispMoM)
	}

	if len(xs) < 3 {
		return defaultDispersion, 0
	}

	a0, a1 = stat.LinearRegression(xs, ys, nil, false)
	if a0 < 0 {
		a0 = 0
	}
	if a1 < 0 {
		a1 = 0
	}
	if a0 == 0 && a1 == 0 {
		a0 = defaultDispersion
	}

	return a0, a1
}

// shrinkLFC pulls each fold change toward zero with a normal prior whose
// variance is estimated from the data: the average squared fold change minus
// the average squared standard error. When the observed spread is entirely
// explained by noise the prior collapses and everything shrinks to zero.
func shrinkLFC(results []Result) {
	if len(results) == 0 {
		return
	}

	var sumLFC2, sumSE2 float64
	for _, r := range results {
		sumLFC2 += r.Log2FoldChange * r.Log2FoldChange
		sumSE2 += r.LfcSE * r.LfcSE
	}

	n := float64(len(results))
	tau2 := sumLFC2/n - sumSE2/n
	if tau2 < 0 {
		tau2 = 0
	}

	for i := range results {
		se2 := results[i].LfcSE * results[i].LfcSE
		results[i].ShrunkenLFC = results[i].Log2FoldChange * tau2 / (tau2 + se2)
	}
}

func subset(vals []float64, idx []int) []float64 {
	out := make([]float64, 0, len(idx))
	for _, j := range idx {
		out = append(out, vals[j])
	}

	return out
}
