package dataset

import "fmt"

// RRNAWarningThreshold is the percentage of ribosomal rows above which the
// joined table is flagged for contamination.
const RRNAWarningThreshold = 10.0

// DefaultRRNALabel is the mapped_gene_type value that marks ribosomal RNA.
const DefaultRRNALabel = "rRNA"

// CheckUnique returns the values that appear more than once in keys, each
// reported a single time, in first-seen order. An empty result means all keys
// are distinct. Duplicates are reported, never dropped, matching the
// report-only contract of the pipeline.
func CheckUnique(keys []string) []string {
	seen := make(map[string]int, len(keys))
	var dupes []string

	for _, k := range keys {
		seen[k]++
		if seen[k] == 2 {
			dupes = append(dupes, k)
		}
	}

	return dupes
}

// SampleIDs extracts the join keys of a sample table.
func SampleIDs(samples []Sample) []string {
	out := make([]string, 0, len(samples))
	for _, s := range samples {
		out = append(out, s.SampleID)
	}

	return out
}

// MarkerIDs extracts the join keys of a marker table.
func MarkerIDs(markers []Marker) []string {
	out := make([]string, 0, len(markers))
	for _, m := range markers {
		out = append(out, m.MarkerID)
	}

	return out
}

// RRNAFraction reports the percentage (0-100) of joined rows whose mapped
// gene type equals the ribosomal label. An empty table yields 0.
func RRNAFraction(obs []Observation, rRNALabel string) float64 {
	if len(obs) == 0 {
		return 0
	}

	n := 0
	for _, o := range obs {
		if o.MappedGeneType == rRNALabel {
			n++
		}
	}

	return 100 * float64(n) / float64(len(obs))
}

// QCWarning is an advisory condition detected during validation. Warnings are
// returned to the caller rather than printed or dialogged, so a batch run can
// log them and continue.
type QCWarning struct {
	Check   string
	Message string
}

func (w QCWarning) String() string {
	return fmt.Sprintf("[%s] %s", w.Check, w.Message)
}

// QC runs the advisory checks of the pipeline: duplicate sample and marker
// keys, and the ribosomal contamination fraction of the joined table. None of
// these abort the run.
func QC(samples []Sample, markers []Marker, joined []Observation, rRNALabel string) []QCWarning {
	var warnings []QCWarning

	if dupes := CheckUnique(SampleIDs(samples)); len(dupes) > 0 {
		warnings = append(warnings, QCWarning{
			Check:   "duplicate-sample-ids",
			Message: fmt.Sprintf("sample_id values appear more than once: %v", dupes),
		})
	}

	if dupes := CheckUnique(MarkerIDs(markers)); len(dupes) > 0 {
		warnings = append(warnings, QCWarning{
			Check:   "duplicate-marker-ids",
			Message: fmt.Sprintf("marker_id values appear more than once: %v", dupes),
		})
	}

	if frac := RRNAFraction(joined, rRNALabel); frac > RRNAWarningThreshold {
		warnings = append(warnings, QCWarning{
			Check:   "rrna-contamination",
			Message: fmt.Sprintf("%.1f%% of joined rows are %s (threshold %.1f%%)", frac, rRNALabel, RRNAWarningThreshold),
		})
	}

	return warnings
}
