package deplot

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/smallrna/mirdiff/countsmatrix"
	"github.com/smallrna/mirdiff/diffexp"
)

// PCA projects the samples onto their first two principal components (of
// log2 size-factor-normalized counts, markers as variables) and renders one
// scatter series per matrix type.
func PCA(m *countsmatrix.Matrix, st *countsmatrix.SampleTable, w io.Writer) error {
	if err := countsmatrix.CheckAligned(m, st); err != nil {
		return err
	}

	scores, err := pcaScores(m)
	if err != nil {
		return err
	}

	graph := chart.Chart{
		Title:  "PCA of samples (log2 normalized counts)",
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "PC1"},
		YAxis:  chart.YAxis{Name: "PC2"},
	}

	for _, level := range st.Levels() {
		var xs, ys []float64
		for j, row := range st.Rows {
			if row.MatrixType != level {
				continue
			}
			xs = append(xs, scores[j][0])
			ys = append(ys, scores[j][1])
		}

		c := colorSerum
		if level == countsmatrix.PAXgene {
			c = colorPAXgene
		}
		appendScatter(&graph, string(level), xs, ys, c)
	}

	if len(graph.Series) == 0 {
		return fmt.Errorf("PCA plot: no plottable series")
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// pcaScores returns the per-sample coordinates on the first two principal
// components via thin SVD of the centered samples x markers table.
func pcaScores(m *countsmatrix.Matrix) ([][2]float64, error) {
	nSamples := len(m.Samples)
	nMarkers := len(m.Markers)
	if nSamples < 3 || nMarkers < 2 {
		return nil, fmt.Errorf("PCA: need at least 3 samples and 2 markers, got %d and %d", nSamples, nMarkers)
	}

	sf, err := diffexp.SizeFactors(m)
	if err != nil {
		return nil, err
	}

	// samples x markers, log2 of normalized counts
	x := mat.NewDense(nSamples, nMarkers, nil)
	for i, marker := range m.Markers {
		row := m.Row(marker)
		for j := range m.Samples {
			x.Set(j, i, math.Log2(row[j]/sf[j]+1))
		}
	}

	// center each marker column
	col := make([]float64, nSamples)
	for i := 0; i < nMarkers; i++ {
		mat.Col(col, i, x)

		mean := 0.0
		for _, v := range col {
			mean += v
		}
		mean /= float64(nSamples)

		for j := range col {
			x.Set(j, i, col[j]-mean)
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("PCA: SVD factorization failed")
	}

	var u mat.Dense
	svd.UTo(&u)
	values := svd.Values(nil)

	if len(values) < 2 {
		return nil, fmt.Errorf("PCA: fewer than 2 singular values")
	}

	scores := make([][2]float64, nSamples)
	for j := 0; j < nSamples; j++ {
		scores[j][0] = u.At(j, 0) * values[0]
		scores[j][1] = u.At(j, 1) * values[1]
	}

	return scores, nil
}
