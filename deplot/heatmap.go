package deplot

import (
	"fmt"
	"io"
	"math"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/stat"

	"github.com/smallrna/mirdiff/countsmatrix"
	"github.com/smallrna/mirdiff/diffexp"
)

const (
	heatCellW      = 36
	heatCellH      = 18
	heatMarginLeft = 150
	heatMarginTop  = 40
	heatMarginBot  = 90
	heatZClamp     = 3.0
)

// Heatmap renders the topN markers by adjusted p-value as a row-z-scored
// heatmap of log2 normalized counts, blue (low) through white to red (high),
// with marker labels on the left and sample labels along the bottom.
func Heatmap(m *countsmatrix.Matrix, st *countsmatrix.SampleTable, rs *diffexp.ResultSet, topN int, w io.Writer) error {
	if err := countsmatrix.CheckAligned(m, st); err != nil {
		return err
	}
	if topN < 1 {
		return fmt.Errorf("heatmap: topN must be positive, got %d", topN)
	}

	top := rs.TopByAdjP(topN)
	if len(top) == 0 {
		return fmt.Errorf("heatmap: no results to plot")
	}

	sf, err := diffexp.SizeFactors(m)
	if err != nil {
		return err
	}

	nCols := len(m.Samples)
	width := heatMarginLeft + nCols*heatCellW + 20
	height := heatMarginTop + len(top)*heatCellH + heatMarginBot

	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, r := range top {
		row := m.Row(r.MarkerID)
		if row == nil {
			return fmt.Errorf("heatmap: marker %s is absent from the matrix", r.MarkerID)
		}

		logNorm := make([]float64, nCols)
		for j, v := range row {
			logNorm[j] = math.Log2(v/sf[j] + 1)
		}

		mean, std := stat.MeanStdDev(logNorm, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}

		y := float64(heatMarginTop + i*heatCellH)
		for j, v := range logNorm {
			z := (v - mean) / std
			red, green, blue := zColor(z)

			dc.SetRGB(red, green, blue)
			dc.DrawRectangle(float64(heatMarginLeft+j*heatCellW), y, heatCellW, heatCellH)
			dc.Fill()
		}

		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(r.MarkerID, heatMarginLeft-6, y+heatCellH/2, 1, 0.4)
	}

	// sample labels, rotated to fit
	for j, sample := range m.Samples {
		x := float64(heatMarginLeft + j*heatCellW + heatCellW/2)
		y := float64(heatMarginTop + len(top)*heatCellH + 8)

		dc.Push()
		dc.RotateAbout(-math.Pi/2, x, y)
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(sample, x, y, 1, 0.4)
		dc.Pop()
	}

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("row z-score of log2 normalized counts", float64(width)/2, heatMarginTop/2, 0.5, 0.4)

	return dc.EncodePNG(w)
}

// zColor maps a clamped z-score to blue-white-red.
func zColor(z float64) (r, g, b float64) {
	if z > heatZClamp {
		z = heatZClamp
	}
	if z < -heatZClamp {
		z = -heatZClamp
	}

	t := math.Abs(z) / heatZClamp
	if z < 0 {
		return 1 - t, 1 - t, 1
	}

	return 1, 1 - t, 1 - t
}
