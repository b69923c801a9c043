// Package dataset loads and joins the three input tables of the small RNA
// sequencing experiment: raw read counts, sample collection metadata, and
// marker annotations.
package dataset

import "fmt"

// ReadCount is one raw observation: how many reads of one marker were seen in
// one sample. The same (sample, marker) pair may appear more than once.
type ReadCount struct {
	SampleID  string  `csv:"sample_id"`
	MarkerID  string  `csv:"marker_id"`
	ReadCount float64 `csv:"read_count"`
}

// Sample describes one sequenced sample. SampleID is the join key and is
// expected (but not forced) to be unique.
type Sample struct {
	SampleID    string `csv:"sample_id"`
	MatrixType  string `csv:"matrix_type"`
	DonorID     string `csv:"donor_id"`
	ReplicateID string `csv:"replicate_id"`
	Study       string `csv:"study"`
}

// Marker annotates one measured gene/transcript target. MarkerID is the join
// key and is expected (but not forced) to be unique.
type Marker struct {
	MarkerID       string `csv:"marker_id"`
	MappedGeneType string `csv:"mapped_gene_type"`
	MappedGeneName string `csv:"mapped_gene_name"`
}

// Observation is a fully joined row: one read count together with the
// metadata of its sample and its marker.
type Observation struct {
	SampleID       string
	MarkerID       string
	ReadCount      float64
	MatrixType     string
	DonorID        string
	ReplicateID    string
	Study          string
	MappedGeneType string
	MappedGeneName string
}

// SchemaError reports that a required column is missing from an input table.
type SchemaError struct {
	Table  string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s table: required column %q is absent from the header", e.Table, e.Column)
}
