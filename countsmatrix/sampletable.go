package countsmatrix

import (
	"fmt"
	"sort"

	"github.com/smallrna/mirdiff/dataset"
)

// MatrixType is the blood collection matrix of a sample. It is a two-level
// factor: the statistical contrast is defined between exactly these levels.
type MatrixType string

const (
	Serum   MatrixType = "Serum"
	PAXgene MatrixType = "PAXgene"
)

// MatrixTypeFromString validates a raw matrix_type value against the two
// recognized levels.
func MatrixTypeFromString(s string) (MatrixType, error) {
	switch MatrixType(s) {
	case Serum:
		return Serum, nil
	case PAXgene:
		return PAXgene, nil
	}

	return "", fmt.Errorf("matrix_type %q is not one of %q, %q", s, Serum, PAXgene)
}

// AlignedSample is one row of the ordered sample table.
type AlignedSample struct {
	SampleID    string
	MatrixType  MatrixType
	DonorID     string
	ReplicateID string
	Study       string
}

// SampleTable is the sample metadata keyed and ordered by sample_id, ready to
// stand beside a counts matrix whose columns follow the same order.
type SampleTable struct {
	Rows []AlignedSample
}

// AlignSamples prepares the metadata for the model: one row per sample_id
// (first occurrence wins on duplicates, which QC reports separately), rows
// sorted by sample_id ascending, replicate_id values made unique by a numeric
// suffix on repeats, and matrix_type validated against the two-level factor.
func AlignSamples(samples []dataset.Sample) (*SampleTable, error) {
	byID := make(map[string]dataset.Sample, len(samples))
	ids := make([]string, 0, len(samples))

	for _, s := range samples {
		if _, exists := byID[s.SampleID]; exists {
			continue
		}
		byID[s.SampleID] = s
		ids = append(ids, s.SampleID)
	}
	sort.Strings(ids)

	st := &SampleTable{Rows: make([]AlignedSample, 0, len(ids))}
	replicateSeen := make(map[string]int, len(ids))

	for _, id := range ids {
		s := byID[id]

		mt, err := MatrixTypeFromString(s.MatrixType)
		if err != nil {
			return nil, fmt.Errorf("sample %s: %s", s.SampleID, err)
		}

		// make.unique semantics: the first occurrence keeps its name,
		// repeats gain .1, .2, ...
		replicate := s.ReplicateID
		if n := replicateSeen[replicate]; n > 0 {
			replicate = fmt.Sprintf("%s.%d", replicate, n)
		}
		replicateSeen[s.ReplicateID]++

		st.Rows = append(st.Rows, AlignedSample{
			SampleID:    s.SampleID,
			MatrixType:  mt,
			DonorID:     s.DonorID,
			ReplicateID: replicate,
			Study:       s.Study,
		})
	}

	return st, nil
}

// SampleIDs returns the row keys in table order.
func (st *SampleTable) SampleIDs() []string {
	out := make([]string, 0, len(st.Rows))
	for _, r := range st.Rows {
		out = append(out, r.SampleID)
	}

	return out
}

// Levels returns the distinct matrix types present, in row order of first
// appearance.
func (st *SampleTable) Levels() []MatrixType {
	var out []MatrixType
	seen := make(map[MatrixType]bool, 2)

	for _, r := range st.Rows {
		if !seen[r.MatrixType] {
			seen[r.MatrixType] = true
			out = append(out, r.MatrixType)
		}
	}

	return out
}
