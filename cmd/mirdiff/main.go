// mirdiff runs the Serum vs. PAXgene small RNA differential expression
// pipeline end to end: load the three input tables, QC them, join, drop
// ribosomal markers, pivot to a counts matrix, align it against the sample
// metadata, fit the negative binomial model, and write the per-marker
// statistics plus the diagnostic figures.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"

	"github.com/smallrna/mirdiff"
	"github.com/smallrna/mirdiff/countsmatrix"
	"github.com/smallrna/mirdiff/dataset"
	"github.com/smallrna/mirdiff/deplot"
	"github.com/smallrna/mirdiff/diffexp"
)

func main() {
	var (
		countsPath  string
		samplesPath string
		markersPath string
		outDir      string
		reference   string
		rRNALabel   string
		alpha       float64
		topN        int
	)

	flag.StringVar(&countsPath, "counts", "", "Path to the read counts table (sample_id, marker_id, read_count). May be a local path, an http(s) URL, or a gs:// path. .gz accepted.")
	flag.StringVar(&samplesPath, "samples", "", "Path to the sample metadata table (sample_id, matrix_type, donor_id, replicate_id, study). Same path schemes as -counts.")
	flag.StringVar(&markersPath, "markers", "", "Path to the marker annotation table (marker_id, mapped_gene_type, mapped_gene_name). Same path schemes as -counts.")
	flag.StringVar(&outDir, "out", "mirdiff-out", "Directory where results.csv and the diagnostic PNGs are written. Created if absent.")
	flag.StringVar(&reference, "reference", string(countsmatrix.Serum), "Reference matrix_type level of the contrast. Fold changes are expressed relative to this level.")
	flag.StringVar(&rRNALabel, "rrna-label", dataset.DefaultRRNALabel, "mapped_gene_type value identifying ribosomal RNA rows, which are dropped before modeling.")
	flag.Float64Var(&alpha, "alpha", 0.05, "Adjusted p-value cutoff used to highlight markers in the plots and the significant-markers log line.")
	flag.IntVar(&topN, "top", 30, "Number of top markers (by adjusted p-value) shown in the heatmap.")
	flag.Parse()

	if countsPath == "" || samplesPath == "" || markersPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	ref, err := countsmatrix.MatrixTypeFromString(reference)
	if err != nil {
		log.Fatalln(err)
	}

	client := maybeStorageClient(countsPath, samplesPath, markersPath)

	counts, samples, markers := loadInputs(countsPath, samplesPath, markersPath, client)
	log.Printf("Loaded %d count rows, %d samples, %d markers", len(counts), len(samples), len(markers))

	joined := dataset.Merge(counts, samples, markers)
	log.Printf("Inner join kept %d of %d count rows", len(joined), len(counts))

	for _, warning := range dataset.QC(samples, markers, joined, rRNALabel) {
		log.Println("WARNING:", warning)
	}
	log.Printf("rRNA fraction: %.2f%%", dataset.RRNAFraction(joined, rRNALabel))

	filtered := dataset.FilterRRNA(joined, rRNALabel)
	log.Printf("Dropped %d ribosomal rows", len(joined)-len(filtered))

	matrix := countsmatrix.Build(filtered)
	log.Printf("Counts matrix: %d markers x %d samples", len(matrix.Markers), len(matrix.Samples))

	printLibrarySizes(matrix)

	table, err := countsmatrix.AlignSamples(samples)
	if err != nil {
		log.Fatalln(err)
	}

	// A label mismatch here silently corrupts the design matrix, so it is
	// fatal rather than a warning.
	if err := countsmatrix.CheckAligned(matrix, table); err != nil {
		log.Fatalln(err)
	}

	results, err := diffexp.Fit(matrix, table, ref)
	if err != nil {
		log.Fatalln(err)
	}
	log.Printf("Fit complete: %s vs %s (reference); %d markers at padj <= %g",
		results.Contrast, results.Reference, len(results.Significant(alpha)), alpha)

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatalln(err)
	}

	writeOutputs(outDir, matrix, table, results, alpha, topN)
}

func loadInputs(countsPath, samplesPath, markersPath string, client *storage.Client) ([]dataset.ReadCount, []dataset.Sample, []dataset.Marker) {
	countsBytes, err := mirdiff.ReadAllInput(mustExpand(countsPath), client)
	if err != nil {
		log.Fatalln(err)
	}
	counts, err := dataset.LoadReadCounts(countsBytes)
	if err != nil {
		log.Fatalln(err)
	}

	samplesBytes, err := mirdiff.ReadAllInput(mustExpand(samplesPath), client)
	if err != nil {
		log.Fatalln(err)
	}
	samples, err := dataset.LoadSamples(samplesBytes)
	if err != nil {
		log.Fatalln(err)
	}

	markersBytes, err := mirdiff.ReadAllInput(mustExpand(markersPath), client)
	if err != nil {
		log.Fatalln(err)
	}
	markers, err := dataset.LoadMarkers(markersBytes)
	if err != nil {
		log.Fatalln(err)
	}

	return counts, samples, markers
}

func mustExpand(path string) string {
	expanded, err := mirdiff.ExpandHome(path)
	if err != nil {
		log.Fatalln(err)
	}

	return expanded
}

// maybeStorageClient creates a Google Storage client only when one of the
// inputs actually lives in a bucket.
func maybeStorageClient(paths ...string) *storage.Client {
	needed := false
	for _, p := range paths {
		if strings.HasPrefix(p, "gs://") {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	client, err := storage.NewClient(context.Background())
	if err != nil {
		log.Fatalln(err)
	}

	return client
}

func printLibrarySizes(matrix *countsmatrix.Matrix) {
	sizes := matrix.LibrarySizes()
	if len(sizes) < 2 {
		return
	}

	fmt.Println("Per-sample library sizes (sum of mean counts):")
	hist := histogram.Hist(9, sizes)
	if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
		log.Println("histogram:", err)
	}
}

func writeOutputs(outDir string, matrix *countsmatrix.Matrix, table *countsmatrix.SampleTable, results *diffexp.ResultSet, alpha float64, topN int) {
	resultsFile, err := os.Create(filepath.Join(outDir, "results.csv"))
	if err != nil {
		log.Fatalln(err)
	}
	if err := results.WriteCSV(resultsFile); err != nil {
		log.Fatalln(err)
	}
	if err := resultsFile.Close(); err != nil {
		log.Fatalln(err)
	}
	log.Println("Wrote", filepath.Join(outDir, "results.csv"))

	plots := []struct {
		name   string
		render func(w *os.File) error
	}{
		{"ma.png", func(w *os.File) error { return deplot.MA(results, alpha, w) }},
		{"volcano.png", func(w *os.File) error { return deplot.Volcano(results, alpha, w) }},
		{"pca.png", func(w *os.File) error { return deplot.PCA(matrix, table, w) }},
		{"heatmap.png", func(w *os.File) error { return deplot.Heatmap(matrix, table, results, topN, w) }},
	}

	for _, p := range plots {
		f, err := os.Create(filepath.Join(outDir, p.name))
		if err != nil {
			log.Fatalln(err)
		}

		if err := p.render(f); err != nil {
			// A figure that cannot be drawn (e.g. too few samples for PCA)
			// should not discard the fitted statistics already on disk.
			log.Println("WARNING: skipping", p.name, ":", err)
			f.Close()
			os.Remove(filepath.Join(outDir, p.name))
			continue
		}

		if err := f.Close(); err != nil {
			log.Fatalln(err)
		}
		log.Println("Wrote", filepath.Join(outDir, p.name))
	}
}
