package mirdiff

import (
	"bytes"
	"io"

	"github.com/csimplestring/go-csv/detector"
)

// DetermineDelimiter returns the single most likely rune that would delimit
// the values in the reader, assuming a CSV-like file. Falls back to comma.
func DetermineDelimiter(r io.Reader) rune {
	d := detector.New()
	delimiters := d.DetectDelimiter(r, '"')

	if len(delimiters) > 0 {
		return rune(delimiters[0][0])
	}

	return ','
}

// DetermineDelimiterBytes is DetermineDelimiter over an in-memory table. Only
// the first few KB are consulted, which is plenty for a header plus a handful
// of rows.
func DetermineDelimiterBytes(data []byte) rune {
	const sniffLimit = 8192

	if len(data) > sniffLimit {
		data = data[:sniffLimit]
	}

	return DetermineDelimiter(bytes.NewReader(data))
}
