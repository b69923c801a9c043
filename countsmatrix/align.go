package countsmatrix

import "fmt"

// AlignmentError reports the first disagreement found between the matrix
// columns and the metadata rows. A misaligned pair silently corrupts the
// statistical design downstream, so callers should treat this as fatal.
type AlignmentError struct {
	// Position is the first mismatched index for an ordering failure, or -1
	// for a set-level failure.
	Position      int
	MatrixLabel   string
	MetadataLabel string

	// MissingFromMatrix and MissingFromMetadata carry the set differences for
	// a set-level failure.
	MissingFromMatrix   []string
	MissingFromMetadata []string
}

func (e *AlignmentError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("matrix/metadata labels diverge at position %d: matrix has %q, metadata has %q", e.Position, e.MatrixLabel, e.MetadataLabel)
	}

	return fmt.Sprintf("matrix/metadata label sets differ: missing from matrix %v, missing from metadata %v", e.MissingFromMatrix, e.MissingFromMetadata)
}

// CheckLabelsMatch reports whether the two label sequences contain the same
// labels, ignoring order and multiplicity beyond presence.
func CheckLabelsMatch(a, b []string) bool {
	inA := make(map[string]bool, len(a))
	for _, l := range a {
		inA[l] = true
	}

	inB := make(map[string]bool, len(b))
	for _, l := range b {
		if !inA[l] {
			return false
		}
		inB[l] = true
	}

	for _, l := range a {
		if !inB[l] {
			return false
		}
	}

	return true
}

// CheckLabelsOrdered reports whether the two label sequences are identical
// element by element.
func CheckLabelsOrdered(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

// CheckAligned verifies that the matrix columns and the sample table rows
// agree as a set and in order, returning a descriptive *AlignmentError
// otherwise. Both checks must pass before the pair is handed to the model.
func CheckAligned(m *Matrix, st *SampleTable) error {
	cols := m.Samples
	rows := st.SampleIDs()

	if !CheckLabelsMatch(cols, rows) {
		err := &AlignmentError{Position: -1}

		inCols := make(map[string]bool, len(cols))
		for _, l := range cols {
			inCols[l] = true
		}
		inRows := make(map[string]bool, len(rows))
		for _, l := range rows {
			inRows[l] = true
		}

		for _, l := range rows {
			if !inCols[l] {
				err.MissingFromMatrix = append(err.MissingFromMatrix, l)
			}
		}
		for _, l := range cols {
			if !inRows[l] {
				err.MissingFromMetadata = append(err.MissingFromMetadata, l)
			}
		}

		return err
	}

	if !CheckLabelsOrdered(cols, rows) {
		n := len(cols)
		if len(rows) < n {
			n = len(rows)
		}

		for i := 0; i < n; i++ {
			if cols[i] != rows[i] {
				return &AlignmentError{Position: i, MatrixLabel: cols[i], MetadataLabel: rows[i]}
			}
		}

		// The shared prefix agrees, so the sequences differ in length: one
		// side has rows the other lacks (e.g. a duplicated sample_id row).
		e := &AlignmentError{Position: n}
		if n < len(cols) {
			e.MatrixLabel = cols[n]
		}
		if n < len(rows) {
			e.MetadataLabel = rows[n]
		}
		return e
	}

	return nil
}
