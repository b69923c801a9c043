package mirdiff

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

// Open yields a reader over an input table that may live on the local
// filesystem, behind an http(s) URL, or in a Google Storage bucket (gs://).
// Inputs ending in .gz are transparently decompressed. The storage client may
// be nil unless a gs:// path is requested.
func Open(path string, client *storage.Client) (io.ReadCloser, error) {
	var rc io.ReadCloser

	switch {
	case strings.HasPrefix(path, "gs://"):
		// Detect the bucket and the path to the actual object
		pathParts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
		if len(pathParts) != 2 {
			return nil, fmt.Errorf("tried to split google storage path %s into 2 parts, but got %d", path, len(pathParts))
		}

		if client == nil {
			return nil, fmt.Errorf("%s: no google storage client configured", path)
		}

		handle := client.Bucket(pathParts[0]).Object(pathParts[1])
		rdr, err := handle.NewReader(context.Background())
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		rc = rdr

	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		resp, err := http.Get(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("%s: HTTP status %s", path, resp.Status)
		}
		rc = resp.Body

	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, pfx.Err(err)
		}
		rc = f
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, pfx.Err(fmt.Errorf("%s: %s", path, err))
		}
		return &gzReadCloser{Reader: gz, under: rc}, nil
	}

	return rc, nil
}

// ReadAllInput slurps an input via Open. All three pipeline tables fit in
// memory, so downstream consumers work on byte slices.
func ReadAllInput(path string, client *storage.Client) ([]byte, error) {
	rc, err := Open(path, client)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// gzReadCloser closes both the gzip layer and the underlying source.
type gzReadCloser struct {
	*gzip.Reader
	under io.ReadCloser
}

func (g *gzReadCloser) Close() error {
	if err := g.Reader.Close(); err != nil {
		g.under.Close()
		return err
	}

	return g.under.Close()
}
