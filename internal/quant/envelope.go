package quant

import (
	"errors"

	"github.com/524D/mzquant/internal/index"
	"github.com/524D/mzquant/internal/mass"
)

// IsotopicEnvelope is the evidence for one species/charge in a single
// scan: the monoisotopic indexed peak plus the summed intensity of the
// matched isotope cluster. An envelope belongs to exactly one
// chromatographic peak once claimed.
type IsotopicEnvelope struct {
	Peak      *index.Peak // monoisotopic peak within the scan
	Charge    int
	Intensity float64
}

var ErrBadEnvelope = errors.New("quant: envelope requires a backing peak and positive intensity")

// NewIsotopicEnvelope wraps a matched isotope cluster
func NewIsotopicEnvelope(p *index.Peak, charge int, intensity float64) (*IsotopicEnvelope, error) {
	if p == nil || intensity <= 0 {
		return nil, ErrBadEnvelope
	}
	return &IsotopicEnvelope{Peak: p, Charge: charge, Intensity: intensity}, nil
}

// RetentionTime of the scan the envelope was observed in
func (e *IsotopicEnvelope) RetentionTime() float64 { return e.Peak.RetentionTime }

// ScanNumber of the scan the envelope was observed in
func (e *IsotopicEnvelope) ScanNumber() int { return e.Peak.ScanNumber }

// EnvelopeDetector matches the isotope series of a hypothesized
// mass/charge against the peak index, one scan at a time.
type EnvelopeDetector struct {
	Index        *index.Index
	PPMTolerance float64
	MinIsotopes  int // isotopes required for an envelope (>= 1)
	MaxIsotopes  int // isotopes tried per envelope
}

// Detect returns the isotopic envelope for monoMass at the given charge
// in the given scan, or nil when the isotope series is not present.
// The monoisotopic peak is mandatory; heavier isotopes are accumulated
// until the first missing one. Once the series has started to decrease,
// an isotope more intense than its predecessor ends the series, that
// signal belongs to another species.
func (d *EnvelopeDetector) Detect(monoMass float64, charge int, scanNumber int) *IsotopicEnvelope {
	mono := d.Index.PeakAt(mass.MZ(monoMass, charge), d.PPMTolerance, scanNumber)
	if mono == nil {
		return nil
	}
	found := 1
	intensity := mono.Intensity
	prev := mono.Intensity
	decreasing := false
	for i := 1; i < d.MaxIsotopes; i++ {
		mzIso := mass.MZ(monoMass+float64(i)*mass.IsotopeSpacing, charge)
		p := d.Index.PeakAt(mzIso, d.PPMTolerance, scanNumber)
		if p == nil {
			break
		}
		if decreasing && p.Intensity > prev {
			break
		}
		if p.Intensity < prev {
			decreasing = true
		}
		found++
		intensity += p.Intensity
		prev = p.Intensity
	}
	if found < d.MinIsotopes {
		return nil
	}
	return &IsotopicEnvelope{Peak: mono, Charge: charge, Intensity: intensity}
}
