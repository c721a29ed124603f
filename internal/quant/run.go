package quant

// RunResult holds the quantification outcome of one run: its
// identifications and the chromatographic peaks traced for them. Once
// built it is shared read-only between MBR transfers.
type RunResult struct {
	File            *SpectraFile
	Identifications []*Identification
	Peaks           []*ChromatographicPeak

	peakBySeq map[string]*ChromatographicPeak
	idBySeq   map[string]*Identification
}

// NewRunResult indexes a run's direct-identification peaks by modified
// sequence. When a sequence maps to several peaks, the most intense one
// represents it.
func NewRunResult(file *SpectraFile, ids []*Identification, peaks []*ChromatographicPeak) *RunResult {
	r := &RunResult{
		File:            file,
		Identifications: ids,
		Peaks:           peaks,
		peakBySeq:       make(map[string]*ChromatographicPeak),
		idBySeq:         make(map[string]*Identification),
	}
	for _, id := range ids {
		if _, ok := r.idBySeq[id.ModifiedSequence]; !ok {
			r.idBySeq[id.ModifiedSequence] = id
		}
	}
	for _, p := range peaks {
		for _, id := range p.Identifications {
			cur, ok := r.peakBySeq[id.ModifiedSequence]
			if !ok || p.Intensity > cur.Intensity {
				r.peakBySeq[id.ModifiedSequence] = p
			}
		}
	}
	return r
}

// PeakFor returns the representative peak for a modified sequence
func (r *RunResult) PeakFor(modSeq string) (*ChromatographicPeak, bool) {
	p, ok := r.peakBySeq[modSeq]
	return p, ok
}

// HasSequence reports whether the run identified a modified sequence
// directly
func (r *RunResult) HasSequence(modSeq string) bool {
	_, ok := r.idBySeq[modSeq]
	return ok
}

// PeakBySequence exposes the sequence-to-peak map for scorer
// construction
func (r *RunResult) PeakBySequence() map[string]*ChromatographicPeak {
	return r.peakBySeq
}
