// Package deplot renders the diagnostic figures of the differential
// expression run: MA plot, volcano plot, PCA of the samples, and a heatmap of
// the top markers. All figures are PNG and written to the caller's writer.
package deplot

import (
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/smallrna/mirdiff/diffexp"
)

const (
	chartWidth  = 1024
	chartHeight = 768
)

var (
	colorSignificant = drawing.Color{R: 192, G: 40, B: 40, A: 255}
	colorBackground  = drawing.Color{R: 120, G: 120, B: 120, A: 160}
	colorSerum       = drawing.Color{R: 40, G: 90, B: 180, A: 255}
	colorPAXgene     = drawing.Color{R: 220, G: 140, B: 30, A: 255}
)

func dotStyle(c drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4,
		DotColor:    c,
	}
}

// MA renders mean expression (log2 of base mean) against log2 fold change,
// with markers at or below alpha adjusted p-value highlighted.
func MA(rs *diffexp.ResultSet, alpha float64, w io.Writer) error {
	if len(rs.Results) == 0 {
		return fmt.Errorf("MA plot: no results to plot")
	}

	var sigX, sigY, nsX, nsY []float64
	for _, r := range rs.Results {
		x := math.Log2(r.BaseMean + 1)
		if r.AdjPValue <= alpha {
			sigX = append(sigX, x)
			sigY = append(sigY, r.Log2FoldChange)
		} else {
			nsX = append(nsX, x)
			nsY = append(nsY, r.Log2FoldChange)
		}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("MA: %s vs %s (reference)", rs.Contrast, rs.Reference),
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "log2(base mean + 1)"},
		YAxis:  chart.YAxis{Name: "log2 fold change"},
	}
	appendScatter(&graph, "not significant", nsX, nsY, colorBackground)
	appendScatter(&graph, fmt.Sprintf("padj <= %g", alpha), sigX, sigY, colorSignificant)

	if len(graph.Series) == 0 {
		return fmt.Errorf("MA plot: no plottable series")
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// Volcano renders log2 fold change against -log10 raw p-value, highlighting
// markers at or below alpha adjusted p-value.
func Volcano(rs *diffexp.ResultSet, alpha float64, w io.Writer) error {
	if len(rs.Results) == 0 {
		return fmt.Errorf("volcano plot: no results to plot")
	}

	var sigX, sigY, nsX, nsY []float64
	for _, r := range rs.Results {
		y := -math.Log10(math.Max(r.PValue, 1e-300))
		if r.AdjPValue <= alpha {
			sigX = append(sigX, r.Log2FoldChange)
			sigY = append(sigY, y)
		} else {
			nsX = append(nsX, r.Log2FoldChange)
			nsY = append(nsY, y)
		}
	}

	graph := chart.Chart{
		Title:  fmt.Sprintf("Volcano: %s vs %s (reference)", rs.Contrast, rs.Reference),
		Width:  chartWidth,
		Height: chartHeight,
		XAxis:  chart.XAxis{Name: "log2 fold change"},
		YAxis:  chart.YAxis{Name: "-log10 p-value"},
	}
	appendScatter(&graph, "not significant", nsX, nsY, colorBackground)
	appendScatter(&graph, fmt.Sprintf("padj <= %g", alpha), sigX, sigY, colorSignificant)

	if len(graph.Series) == 0 {
		return fmt.Errorf("volcano plot: no plottable series")
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// appendScatter adds a dot-only series, skipping empty ones (go-chart cannot
// compute a range over zero points).
func appendScatter(graph *chart.Chart, name string, xs, ys []float64, c drawing.Color) {
	if len(xs) == 0 {
		return
	}

	graph.Series = append(graph.Series, chart.ContinuousSeries{
		Name:    name,
		XValues: xs,
		YValues: ys,
		Style:   dotStyle(c),
	})
}
