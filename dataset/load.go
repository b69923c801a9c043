package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/smallrna/mirdiff"
)

// LoadReadCounts parses the counts table. Counts must be present and
// non-negative; the delimiter is sniffed from the data.
func LoadReadCounts(data []byte) ([]ReadCount, error) {
	if err := checkHeader(data, "counts", "sample_id", "marker_id", "read_count"); err != nil {
		return nil, err
	}

	records := []*ReadCount{}
	if err := unmarshalSniffed(data, &records); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]ReadCount, 0, len(records))
	for i, record := range records {
		if math.IsNaN(record.ReadCount) {
			return nil, fmt.Errorf("counts table row %d (%s, %s): read_count is NaN", i+1, record.SampleID, record.MarkerID)
		}
		if record.ReadCount < 0 {
			return nil, fmt.Errorf("counts table row %d (%s, %s): read_count %f is negative", i+1, record.SampleID, record.MarkerID, record.ReadCount)
		}
		out = append(out, *record)
	}

	return out, nil
}

// LoadSamples parses the sample metadata table.
func LoadSamples(data []byte) ([]Sample, error) {
	if err := checkHeader(data, "samples", "sample_id", "matrix_type", "donor_id", "replicate_id", "study"); err != nil {
		return nil, err
	}

	records := []*Sample{}
	if err := unmarshalSniffed(data, &records); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Sample, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}

	return out, nil
}

// LoadMarkers parses the marker annotation table.
func LoadMarkers(data []byte) ([]Marker, error) {
	if err := checkHeader(data, "markers", "marker_id", "mapped_gene_type", "mapped_gene_name"); err != nil {
		return nil, err
	}

	records := []*Marker{}
	if err := unmarshalSniffed(data, &records); err != nil {
		return nil, pfx.Err(err)
	}

	out := make([]Marker, 0, len(records))
	for _, record := range records {
		out = append(out, *record)
	}

	return out, nil
}

// unmarshalSniffed tells gocsv to use the delimiter detected from the raw
// bytes rather than assuming comma.
func unmarshalSniffed(data []byte, out interface{}) error {
	delim := mirdiff.DetermineDelimiterBytes(data)

	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		return r
	})

	return gocsv.UnmarshalBytes(data, out)
}

// checkHeader verifies the required columns appear in the first row, so that
// a misnamed column surfaces as a SchemaError instead of a table of zero
// values.
func checkHeader(data []byte, table string, required ...string) error {
	if len(data) == 0 {
		return fmt.Errorf("%s table: empty input", table)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = mirdiff.DetermineDelimiterBytes(data)
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return pfx.Err(fmt.Errorf("%s table: %s", table, err))
	}

	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}

	for _, col := range required {
		if !present[col] {
			return &SchemaError{Table: table, Column: col}
		}
	}

	return nil
}
