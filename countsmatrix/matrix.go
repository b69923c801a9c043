// Package countsmatrix pivots joined small RNA observations into the
// marker x sample numeric matrix consumed by the differential expression
// model, and enforces the label alignment between that matrix and the sample
// metadata before any model sees either.
package countsmatrix

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/smallrna/mirdiff/dataset"
)

// Matrix holds mean read counts with markers as rows and samples as columns.
// Every (marker, sample) cell is present; pairs never observed are zero.
type Matrix struct {
	Markers []string
	Samples []string

	markerIndex map[string]int
	sampleIndex map[string]int
	values      [][]float64
}

// Build groups the filtered observations by (marker, sample), averages
// duplicate read counts for the same pair, and pivots to a dense matrix with
// absent cells filled with zero. Averaging (rather than summing) repeated
// measurements of the same pair is deliberate: a pair measured twice should
// not look twice as expressed. Row and column labels are sorted ascending, so
// the result is identical across runs for identical input.
func Build(obs []dataset.Observation) *Matrix {
	type acc struct {
		sum float64
		n   int
	}

	cells := make(map[string]map[string]*acc)
	sampleSet := make(map[string]struct{})

	for _, o := range obs {
		row, ok := cells[o.MarkerID]
		if !ok {
			row = make(map[string]*acc)
			cells[o.MarkerID] = row
		}

		cell, ok := row[o.SampleID]
		if !ok {
			cell = &acc{}
			row[o.SampleID] = cell
		}

		cell.sum += o.ReadCount
		cell.n++
		sampleSet[o.SampleID] = struct{}{}
	}

	m := &Matrix{
		Markers:     make([]string, 0, len(cells)),
		Samples:     make([]string, 0, len(sampleSet)),
		markerIndex: make(map[string]int, len(cells)),
		sampleIndex: make(map[string]int, len(sampleSet)),
	}

	for marker := range cells {
		m.Markers = append(m.Markers, marker)
	}
	sort.Strings(m.Markers)

	for sample := range sampleSet {
		m.Samples = append(m.Samples, sample)
	}
	sort.Strings(m.Samples)

	for i, marker := range m.Markers {
		m.markerIndex[marker] = i
	}
	for j, sample := range m.Samples {
		m.sampleIndex[sample] = j
	}

	m.values = make([][]float64, len(m.Markers))
	for i, marker := range m.Markers {
		row := make([]float64, len(m.Samples))
		for sample, cell := range cells[marker] {
			row[m.sampleIndex[sample]] = cell.sum / float64(cell.n)
		}
		m.values[i] = row
	}

	return m
}

// At returns the mean count for a marker/sample pair. The second return is
// false when either label is unknown to the matrix.
func (m *Matrix) At(marker, sample string) (float64, bool) {
	i, ok := m.markerIndex[marker]
	if !ok {
		return 0, false
	}

	j, ok := m.sampleIndex[sample]
	if !ok {
		return 0, false
	}

	return m.values[i][j], true
}

// Row returns the counts of one marker in column (sample) order, or nil for
// an unknown marker. The returned slice is a copy.
func (m *Matrix) Row(marker string) []float64 {
	i, ok := m.markerIndex[marker]
	if !ok {
		return nil
	}

	out := make([]float64, len(m.values[i]))
	copy(out, m.values[i])

	return out
}

// Column returns the counts of one sample in row (marker) order, or nil for
// an unknown sample. The returned slice is a copy.
func (m *Matrix) Column(sample string) []float64 {
	j, ok := m.sampleIndex[sample]
	if !ok {
		return nil
	}

	out := make([]float64, len(m.Markers))
	for i := range m.values {
		out[i] = m.values[i][j]
	}

	return out
}

// Dense exports the values as a gonum matrix (rows=markers, cols=samples)
// for numeric consumers. The data is copied.
func (m *Matrix) Dense() *mat.Dense {
	if len(m.Markers) == 0 || len(m.Samples) == 0 {
		return nil
	}

	d := mat.NewDense(len(m.Markers), len(m.Samples), nil)
	for i, row := range m.values {
		d.SetRow(i, row)
	}

	return d
}

// LibrarySizes sums each sample's counts across all markers, in column order.
func (m *Matrix) LibrarySizes() []float64 {
	out := make([]float64, len(m.Samples))
	for _, row := range m.values {
		for j, v := range row {
			out[j] += v
		}
	}

	return out
}
