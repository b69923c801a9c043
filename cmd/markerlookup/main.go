// markerlookup prints the joined observations for one or more markers or
// mapped gene names as tab-delimited rows. It replaces the interactive
// lookup dialogs of the original analysis with an explicit, scriptable query.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/smallrna/mirdiff"
	"github.com/smallrna/mirdiff/dataset"
)

var STDOUT = bufio.NewWriterSize(os.Stdout, 4096)

func main() {
	defer STDOUT.Flush()

	var (
		countsPath  string
		samplesPath string
		markersPath string
		query       string
	)

	flag.StringVar(&countsPath, "counts", "", "Path to the read counts table. May be a local path, an http(s) URL, or a gs:// path.")
	flag.StringVar(&samplesPath, "samples", "", "Path to the sample metadata table.")
	flag.StringVar(&markersPath, "markers", "", "Path to the marker annotation table.")
	flag.StringVar(&query, "query", "", "Comma-delimited marker_id or mapped_gene_name values to look up.")
	flag.Parse()

	if countsPath == "" || samplesPath == "" || markersPath == "" || query == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	var client *storage.Client
	for _, p := range []string{countsPath, samplesPath, markersPath} {
		if strings.HasPrefix(p, "gs://") {
			c, err := storage.NewClient(context.Background())
			if err != nil {
				log.Fatalln(err)
			}
			client = c
			break
		}
	}

	joined, err := loadJoined(countsPath, samplesPath, markersPath, client)
	if err != nil {
		log.Fatalln(err)
	}

	if err := printLookups(STDOUT, joined, strings.Split(query, ",")); err != nil {
		log.Fatalln(err)
	}
}

// printLookups emits one TSV row per matching observation, prefixed by the
// query that matched it. The csv writer's deferred error is surfaced, so a
// broken pipe does not exit clean.
func printLookups(out io.Writer, joined []dataset.Observation, queries []string) error {
	w := csv.NewWriter(out)
	w.Comma = '\t'

	w.Write([]string{"query", "sample_id", "marker_id", "read_count", "matrix_type", "donor_id", "replicate_id", "study", "mapped_gene_type", "mapped_gene_name"})

	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}

		hits := dataset.LookupMarker(joined, q)
		if len(hits) == 0 {
			log.Printf("No observations matched %q", q)
			continue
		}

		for _, o := range hits {
			w.Write([]string{
				q,
				o.SampleID,
				o.MarkerID,
				fmt.Sprintf("%g", o.ReadCount),
				o.MatrixType,
				o.DonorID,
				o.ReplicateID,
				o.Study,
				o.MappedGeneType,
				o.MappedGeneName,
			})
		}
	}

	w.Flush()

	return w.Error()
}

func loadJoined(countsPath, samplesPath, markersPath string, client *storage.Client) ([]dataset.Observation, error) {
	countsBytes, err := readInput(countsPath, client)
	if err != nil {
		return nil, err
	}
	counts, err := dataset.LoadReadCounts(countsBytes)
	if err != nil {
		return nil, err
	}

	samplesBytes, err := readInput(samplesPath, client)
	if err != nil {
		return nil, err
	}
	samples, err := dataset.LoadSamples(samplesBytes)
	if err != nil {
		return nil, err
	}

	markersBytes, err := readInput(markersPath, client)
	if err != nil {
		return nil, err
	}
	markers, err := dataset.LoadMarkers(markersBytes)
	if err != nil {
		return nil, err
	}

	return dataset.Merge(counts, samples, markers), nil
}

func readInput(path string, client *storage.Client) ([]byte, error) {
	expanded, err := mirdiff.ExpandHome(path)
	if err != nil {
		return nil, err
	}

	return mirdiff.ReadAllInput(expanded, client)
}
