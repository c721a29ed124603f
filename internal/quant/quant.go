// Package quant turns indexed MS1 peaks into quantified chromatographic
// peaks, and transfers identifications between runs (match-between-runs)
// with a target/decoy-calibrated confidence score.
package quant

import "errors"

// SpectraFile identifies one LC-MS run. Files are compared by pointer,
// one instance per run.
type SpectraFile struct {
	Path     string // mzML file path
	MzidPath string // accompanying mzIdentML file path
	Name     string // base name, used in reports
}

// ProteinGroup is one protein-group membership of an identification
type ProteinGroup struct {
	Accession string
	Organism  string
}

// Identification is a confident peptide-spectrum match produced by an
// upstream search engine. Identifications are immutable and shared;
// peaks reference them by pointer and never own them.
type Identification struct {
	BaseSequence     string
	ModifiedSequence string
	PeakfindingMass  float64 // calculated monoisotopic neutral mass
	MS2RetentionTime float64 // seconds
	Charge           int
	ProteinGroups    []ProteinGroup
	File             *SpectraFile
}

var (
	// ErrNoIdentification means a peak was constructed without an identification
	ErrNoIdentification = errors.New("quant: peak requires an identification")
	// ErrNotMbrPeak means an MBR-only operation was invoked on a direct peak
	ErrNotMbrPeak = errors.New("quant: not an MBR peak")
	// ErrAcceptorFileMismatch means a peak was scored against a scorer built
	// for a different acceptor file
	ErrAcceptorFileMismatch = errors.New("quant: peak file does not match scorer acceptor file")
	// ErrTooFewAnchors means two runs share too few identifications for
	// retention time alignment
	ErrTooFewAnchors = errors.New("quant: too few shared identifications for RT alignment")
)
