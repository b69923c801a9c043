package mirdiff

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestOpenLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	content := []byte("sample_id,marker_id,read_count\nS1,M1,5\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAllInput(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("got %q, expected %q", got, content)
	}
}

func TestOpenGzippedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv.gz")
	content := []byte("sample_id,marker_id,read_count\nS1,M1,5\n")

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	got, err := ReadAllInput(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Errorf("got %q, expected %q", got, content)
	}
}

func TestOpenMissingFile(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "absent.csv"), nil); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestOpenGSWithoutClient(t *testing.T) {
	if _, err := Open("gs://bucket/object.csv", nil); err == nil {
		t.Error("expected an error for gs:// without a client")
	}
}

func TestExpandHomePassthrough(t *testing.T) {
	got, err := ExpandHome("/tmp/counts.csv")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/tmp/counts.csv" {
		t.Errorf("got %q", got)
	}
}

func TestExpandHomeTilde(t *testing.T) {
	got, err := ExpandHome("~/counts.csv")
	if err != nil {
		t.Fatal(err)
	}
	if strings.HasPrefix(got, "~") || !strings.HasSuffix(got, "/counts.csv") {
		t.Errorf("got %q", got)
	}
}
