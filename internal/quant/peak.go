package quant

import (
	"math"
	"sort"

	"github.com/524D/mzquant/internal/index"
	"github.com/524D/mzquant/internal/mass"
)

// ChromatographicPeak aggregates the isotopic envelopes of one species
// eluting in one run into a single quantifiable feature.
//
// Intensity, MassError, Apex and NumChargeStates are undefined until
// CalculateIntensity has been invoked, and become stale after every
// envelope addition or merge. Recomputation is explicit, never lazy, so
// that mutation timing stays visible.
type ChromatographicPeak struct {
	File            *SpectraFile
	Envelopes       []*IsotopicEnvelope // insertion order = scan order
	Identifications []*Identification   // non-empty; set-like under merge
	IsMbrPeak       bool
	RandomRT        bool    // decoy transfer, traced at a randomized RT
	PredictedRT     float64 // MBR peaks only

	Intensity       float64
	MassError       float64 // ppm, NaN until calculated or when unknown
	Apex            *IsotopicEnvelope
	NumChargeStates int

	NumIdentsByBaseSeq int
	NumIdentsByFullSeq int

	// SplitRT records where the elution trace was truncated because two
	// co-eluting features were detected; 0 when the peak was not split.
	SplitRT float64

	IntensityScore float64
	RTScore        float64
	PpmScore       float64
	ScanCountScore float64
	MbrScore       float64
}

// NewPeak creates a peak for a direct identification in its own run
func NewPeak(id *Identification, file *SpectraFile) (*ChromatographicPeak, error) {
	if id == nil {
		return nil, ErrNoIdentification
	}
	p := &ChromatographicPeak{
		File:            file,
		Identifications: []*Identification{id},
		MassError:       math.NaN(),
	}
	p.ResolveIdentifications()
	return p, nil
}

// NewMbrPeak creates a candidate peak for an identification transferred
// from another run, at the aligned (predicted) retention time. Decoy
// candidates are built through this same constructor with a randomized
// predicted RT and randomRT set.
func NewMbrPeak(donor *Identification, acceptor *SpectraFile, predictedRT float64, randomRT bool) (*ChromatographicPeak, error) {
	if donor == nil {
		return nil, ErrNoIdentification
	}
	p := &ChromatographicPeak{
		File:            acceptor,
		Identifications: []*Identification{donor},
		IsMbrPeak:       true,
		RandomRT:        randomRT,
		PredictedRT:     predictedRT,
		MassError:       math.NaN(),
	}
	p.ResolveIdentifications()
	return p, nil
}

// AddEnvelope claims an envelope for this peak. The caller must ensure
// the envelope is not claimed by another peak of the same file.
func (p *ChromatographicPeak) AddEnvelope(e *IsotopicEnvelope) {
	p.Envelopes = append(p.Envelopes, e)
}

// CalculateIntensity derives intensity, apex, mass error and charge
// state count from the current envelopes. With integrate, intensity is
// the sum over all envelopes; otherwise it is the apex intensity alone.
func (p *ChromatographicPeak) CalculateIntensity(integrate bool) {
	if len(p.Envelopes) == 0 {
		p.Intensity = 0
		p.MassError = math.NaN()
		p.NumChargeStates = 0
		p.Apex = nil
		return
	}

	apex := p.Envelopes[0]
	sum := float64(0)
	charges := make(map[int]bool)
	for _, e := range p.Envelopes {
		sum += e.Intensity
		charges[e.Charge] = true
		if e.Intensity > apex.Intensity {
			apex = e
		}
	}
	p.Apex = apex
	p.NumChargeStates = len(charges)
	if integrate {
		p.Intensity = sum
	} else {
		p.Intensity = apex.Intensity
	}

	// When the peak is shared between identifications, report the mass
	// error of the best-matching one
	observed := mass.Neutral(apex.Peak.Mz, apex.Charge)
	p.MassError = math.NaN()
	for _, id := range p.Identifications {
		ppm := mass.PPMError(observed, id.PeakfindingMass)
		if math.IsNaN(p.MassError) || math.Abs(ppm) < math.Abs(p.MassError) {
			p.MassError = ppm
		}
	}
}

// MergeWith reconciles another peak that represents the same physical
// feature into this one, without double-counting raw signal. Merging a
// peak with itself is a no-op.
func (p *ChromatographicPeak) MergeWith(other *ChromatographicPeak, integrate bool) {
	if other == p {
		return
	}

	claimed := make(map[*index.Peak]bool, len(p.Envelopes))
	for _, e := range p.Envelopes {
		claimed[e.Peak] = true
	}

	haveID := make(map[*Identification]bool, len(p.Identifications))
	for _, id := range p.Identifications {
		haveID[id] = true
	}
	for _, id := range other.Identifications {
		if !haveID[id] {
			haveID[id] = true
			p.Identifications = append(p.Identifications, id)
		}
	}
	p.ResolveIdentifications()

	added := false
	for _, e := range other.Envelopes {
		if !claimed[e.Peak] {
			p.Envelopes = append(p.Envelopes, e)
			added = true
		}
	}
	// The absorbed envelopes may precede the existing ones; restore
	// scan order so the RT bounds stay valid
	if added {
		sort.Slice(p.Envelopes, func(i, j int) bool {
			if p.Envelopes[i].ScanNumber() != p.Envelopes[j].ScanNumber() {
				return p.Envelopes[i].ScanNumber() < p.Envelopes[j].ScanNumber()
			}
			return p.Envelopes[i].Charge < p.Envelopes[j].Charge
		})
	}
	p.CalculateIntensity(integrate)
}

// ResolveIdentifications recomputes the ambiguity counters from the
// current identification list
func (p *ChromatographicPeak) ResolveIdentifications() {
	base := make(map[string]bool)
	full := make(map[string]bool)
	for _, id := range p.Identifications {
		base[id.BaseSequence] = true
		full[id.ModifiedSequence] = true
	}
	p.NumIdentsByBaseSeq = len(base)
	p.NumIdentsByFullSeq = len(full)
}

// CalculateMbrScore computes the four sub-scores of this MBR candidate
// against its donor peak and combines them into a 0-100 confidence
// score. The geometric mean lets any single near-zero sub-score veto an
// otherwise plausible match.
func (p *ChromatographicPeak) CalculateMbrScore(scorer *MbrScorer, donorPeak *ChromatographicPeak) error {
	if !p.IsMbrPeak {
		return ErrNotMbrPeak
	}
	if p.File != scorer.AcceptorFile {
		return ErrAcceptorFileMismatch
	}
	p.IntensityScore = scorer.IntensityScore(p, donorPeak)
	p.RTScore = scorer.RetentionTimeScore(p)
	p.PpmScore = scorer.PpmErrorScore(p)
	p.ScanCountScore = scorer.ScanCountScore(p)
	p.MbrScore = 100 * math.Pow(p.IntensityScore*p.RTScore*p.PpmScore*p.ScanCountScore, 0.25)
	return nil
}

// ApexRT returns the retention time of the apex envelope, or NaN when
// the peak has no envelopes or intensity was not calculated
func (p *ChromatographicPeak) ApexRT() float64 {
	if p.Apex == nil {
		return math.NaN()
	}
	return p.Apex.RetentionTime()
}

// StartRT returns the retention time of the first envelope
func (p *ChromatographicPeak) StartRT() float64 {
	if len(p.Envelopes) == 0 {
		return math.NaN()
	}
	return p.Envelopes[0].RetentionTime()
}

// EndRT returns the retention time of the last envelope
func (p *ChromatographicPeak) EndRT() float64 {
	if len(p.Envelopes) == 0 {
		return math.NaN()
	}
	return p.Envelopes[len(p.Envelopes)-1].RetentionTime()
}
