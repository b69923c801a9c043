// Package diffexp fits a two-group negative binomial model to a mean-count
// matrix and reports per-marker differential expression statistics: effect
// size, Wald p-value, multiple-testing adjusted p-value, and an
// empirical-Bayes shrunken effect size.
package diffexp

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/smallrna/mirdiff/countsmatrix"
)

// SizeFactors estimates per-sample normalization factors by the
// median-of-ratios method: each sample's counts are compared against the
// per-marker geometric mean across samples, and the median ratio becomes the
// sample's factor. Markers with a zero anywhere are excluded from the
// reference, so at least one marker must be nonzero in every sample.
func SizeFactors(m *countsmatrix.Matrix) ([]float64, error) {
	nSamples := len(m.Samples)
	if nSamples == 0 {
		return nil, fmt.Errorf("size factors: matrix has no samples")
	}

	// log-ratios per sample across usable reference markers
	logRatios := make([][]float64, nSamples)

	for _, marker := range m.Markers {
		row := m.Row(marker)

		usable := true
		logSum := 0.0
		for _, v := range row {
			if v <= 0 {
				usable = false
				break
			}
			logSum += math.Log(v)
		}
		if !usable {
			continue
		}

		logGeoMean := logSum / float64(nSamples)
		for j, v := range row {
			logRatios[j] = append(logRatios[j], math.Log(v)-logGeoMean)
		}
	}

	out := make([]float64, nSamples)
	for j, ratios := range logRatios {
		if len(ratios) == 0 {
			return nil, fmt.Errorf("size factors: no marker is nonzero across every sample; cannot normalize sample %s", m.Samples[j])
		}

		med, err := stats.Median(ratios)
		if err != nil {
			return nil, fmt.Errorf("size factors: %s", err)
		}

		out[j] = math.Exp(med)
	}

	return out, nil
}
