package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/smallrna/mirdiff/dataset"
)

var lookupObs = []dataset.Observation{
	{SampleID: "S1", MarkerID: "M1", ReadCount: 5, MatrixType: "Serum", MappedGeneName: "MIR21"},
	{SampleID: "S2", MarkerID: "M1", ReadCount: 3, MatrixType: "PAXgene", MappedGeneName: "MIR21"},
	{SampleID: "S1", MarkerID: "M2", ReadCount: 2, MatrixType: "Serum", MappedGeneName: "RNA18S"},
}

func TestPrintLookups(t *testing.T) {
	var buf bytes.Buffer
	if err := printLookups(&buf, lookupObs, []string{"MIR21", " M2 "}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if x := len(lines); x != 4 { // header + 2 MIR21 rows + 1 M2 row
		t.Fatalf("got %d lines, expected 4:\n%s", x, buf.String())
	}
	if !strings.HasPrefix(lines[0], "query\tsample_id") {
		t.Errorf("unexpected header: %s", lines[0])
	}
	if !strings.HasPrefix(lines[3], "M2\tS1\tM2\t2") {
		t.Errorf("unexpected M2 row: %s", lines[3])
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestPrintLookupsSurfacesWriteError(t *testing.T) {
	if err := printLookups(failingWriter{}, lookupObs, []string{"MIR21"}); err == nil {
		t.Error("expected the writer error to surface")
	}
}
