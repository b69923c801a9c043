package dataset

// Merge inner-joins the counts against both metadata tables. A count row
// whose sample_id or marker_id is absent from the corresponding table is
// silently dropped; this data loss is intentional, since counts without
// metadata can serve neither the design matrix nor the annotation lookups.
// If a metadata table carries duplicate keys, the first occurrence wins (the
// duplicates themselves are surfaced by QC).
func Merge(counts []ReadCount, samples []Sample, markers []Marker) []Observation {
	sampleByID := make(map[string]Sample, len(samples))
	for _, s := range samples {
		if _, exists := sampleByID[s.SampleID]; !exists {
			sampleByID[s.SampleID] = s
		}
	}

	markerByID := make(map[string]Marker, len(markers))
	for _, m := range markers {
		if _, exists := markerByID[m.MarkerID]; !exists {
			markerByID[m.MarkerID] = m
		}
	}

	out := make([]Observation, 0, len(counts))
	for _, c := range counts {
		s, ok := sampleByID[c.SampleID]
		if !ok {
			continue
		}

		m, ok := markerByID[c.MarkerID]
		if !ok {
			continue
		}

		out = append(out, Observation{
			SampleID:       c.SampleID,
			MarkerID:       c.MarkerID,
			ReadCount:      c.ReadCount,
			MatrixType:     s.MatrixType,
			DonorID:        s.DonorID,
			ReplicateID:    s.ReplicateID,
			Study:          s.Study,
			MappedGeneType: m.MappedGeneType,
			MappedGeneName: m.MappedGeneName,
		})
	}

	return out
}

// FilterRRNA retains the observations whose mapped gene type differs from the
// ribosomal label. The input is not modified.
func FilterRRNA(obs []Observation, rRNALabel string) []Observation {
	out := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.MappedGeneType == rRNALabel {
			continue
		}
		out = append(out, o)
	}

	return out
}

// LookupMarker returns the observations whose marker_id or mapped gene name
// equals query. This replaces the ad hoc interactive lookups of the original
// analysis with a plain function the caller drives.
func LookupMarker(obs []Observation, query string) []Observation {
	var out []Observation
	for _, o := range obs {
		if o.MarkerID == query || o.MappedGeneName == query {
			out = append(out, o)
		}
	}

	return out
}
