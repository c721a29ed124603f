package quant

import (
	"sort"

	"github.com/524D/mzquant/internal/index"
)

// peakSplitDiscrimination is the factor by which the trace must rise
// again after a local minimum before the trace is considered to contain
// two co-eluting features and is cut at the valley.
const peakSplitDiscrimination = 1.6

// TraceParams control envelope tracing
type TraceParams struct {
	PPMTolerance   float64
	MinCharge      int
	MaxCharge      int
	RTWindow       float64 // half-width of the search window, seconds
	MaxMissedScans int     // consecutive envelope-free scans before a trace ends
	MinIsotopes    int
	MaxIsotopes    int
	Integrate      bool
}

// Tracer builds chromatographic peaks by walking MS1 scans outward from
// a seed retention time and claiming the isotopic envelopes it finds.
type Tracer struct {
	Index    *index.Index
	Detector *EnvelopeDetector
	Par      TraceParams
}

// NewTracer creates a tracer over one run's peak index
func NewTracer(idx *index.Index, par TraceParams) *Tracer {
	return &Tracer{
		Index: idx,
		Detector: &EnvelopeDetector{
			Index:        idx,
			PPMTolerance: par.PPMTolerance,
			MinIsotopes:  par.MinIsotopes,
			MaxIsotopes:  par.MaxIsotopes,
		},
		Par: par,
	}
}

// TraceDirect builds the peak for an identification in its own run,
// seeded at the MS2 retention time
func (t *Tracer) TraceDirect(id *Identification, file *SpectraFile) (*ChromatographicPeak, error) {
	p, err := NewPeak(id, file)
	if err != nil {
		return nil, err
	}
	t.trace(p, id.PeakfindingMass, t.Par.MinCharge, t.Par.MaxCharge, id.MS2RetentionTime)
	return p, nil
}

// TraceMBR builds candidate acceptor peaks for a donor identification
// at the predicted retention time, one candidate per charge state that
// shows signal. Decoy candidates pass through this exact same path with
// a randomized predicted RT.
func (t *Tracer) TraceMBR(donor *Identification, acceptor *SpectraFile, predictedRT float64, randomRT bool) ([]*ChromatographicPeak, error) {
	var candidates []*ChromatographicPeak
	for charge := t.Par.MinCharge; charge <= t.Par.MaxCharge; charge++ {
		p, err := NewMbrPeak(donor, acceptor, predictedRT, randomRT)
		if err != nil {
			return nil, err
		}
		t.trace(p, donor.PeakfindingMass, charge, charge, predictedRT)
		if len(p.Envelopes) > 0 {
			candidates = append(candidates, p)
		}
	}
	return candidates, nil
}

// trace claims envelopes around seedRT, cuts the trace at valleys and
// computes the derived fields
func (t *Tracer) trace(p *ChromatographicPeak, monoMass float64, minCharge, maxCharge int, seedRT float64) {
	scans := t.Index.Scans()
	if len(scans) == 0 {
		p.CalculateIntensity(t.Par.Integrate)
		return
	}
	seedPos := t.Index.ScanPosNear(seedRT)

	detect := func(pos int) []*IsotopicEnvelope {
		var found []*IsotopicEnvelope
		for charge := minCharge; charge <= maxCharge; charge++ {
			if e := t.Detector.Detect(monoMass, charge, scans[pos].ScanNumber); e != nil {
				found = append(found, e)
			}
		}
		return found
	}

	var envelopes []*IsotopicEnvelope

	// Walk right from the seed scan
	missed := 0
	for pos := seedPos; pos < len(scans) && scans[pos].RetentionTime <= seedRT+t.Par.RTWindow; pos++ {
		found := detect(pos)
		if len(found) == 0 {
			missed++
			if missed > t.Par.MaxMissedScans {
				break
			}
			continue
		}
		missed = 0
		envelopes = append(envelopes, found...)
	}

	// Walk left from the scan before the seed
	missed = 0
	for pos := seedPos - 1; pos >= 0 && scans[pos].RetentionTime >= seedRT-t.Par.RTWindow; pos-- {
		found := detect(pos)
		if len(found) == 0 {
			missed++
			if missed > t.Par.MaxMissedScans {
				break
			}
			continue
		}
		missed = 0
		envelopes = append(envelopes, found...)
	}

	sort.Slice(envelopes, func(i, j int) bool {
		if envelopes[i].ScanNumber() != envelopes[j].ScanNumber() {
			return envelopes[i].ScanNumber() < envelopes[j].ScanNumber()
		}
		return envelopes[i].Charge < envelopes[j].Charge
	})
	for _, e := range envelopes {
		p.AddEnvelope(e)
	}

	p.CalculateIntensity(t.Par.Integrate)
	t.cutPeak(p)
}

// cutPeak truncates the trace when the summed per-scan intensity rises
// again after a valley, which indicates two co-eluting features. The
// valley retention time is recorded in SplitRT and the envelopes beyond
// it are discarded.
func (t *Tracer) cutPeak(p *ChromatographicPeak) {
	if p.Apex == nil {
		return
	}

	// Per-scan summed intensity, in scan order
	type scanPoint struct {
		scanNumber int
		rt         float64
		intensity  float64
	}
	var timeline []scanPoint
	for _, e := range p.Envelopes {
		if n := len(timeline); n > 0 && timeline[n-1].scanNumber == e.ScanNumber() {
			timeline[n-1].intensity += e.Intensity
			continue
		}
		timeline = append(timeline, scanPoint{e.ScanNumber(), e.RetentionTime(), e.Intensity})
	}

	apexPos := 0
	for i, pt := range timeline {
		if pt.intensity > timeline[apexPos].intensity {
			apexPos = i
		}
	}

	// Walk outward from the apex in one direction; if the trace climbs
	// back above the running minimum times the discrimination factor,
	// cut at that minimum.
	cutAt := func(positions []int) (int, bool) {
		valleyPos := -1
		valley := timeline[apexPos].intensity
		for _, i := range positions {
			pt := timeline[i]
			if pt.intensity < valley {
				valley = pt.intensity
				valleyPos = i
				continue
			}
			if valleyPos >= 0 && pt.intensity > valley*peakSplitDiscrimination {
				return valleyPos, true
			}
		}
		return 0, false
	}

	var right, left []int
	for i := apexPos + 1; i < len(timeline); i++ {
		right = append(right, i)
	}
	for i := apexPos - 1; i >= 0; i-- {
		left = append(left, i)
	}

	lo, hi := 0, len(timeline)-1
	split := false
	if pos, ok := cutAt(right); ok {
		hi = pos
		p.SplitRT = timeline[pos].rt
		split = true
	}
	if pos, ok := cutAt(left); ok {
		lo = pos
		p.SplitRT = timeline[pos].rt
		split = true
	}
	if !split {
		return
	}

	minScan := timeline[lo].scanNumber
	maxScan := timeline[hi].scanNumber
	kept := p.Envelopes[:0]
	for _, e := range p.Envelopes {
		if e.ScanNumber() >= minScan && e.ScanNumber() <= maxScan {
			kept = append(kept, e)
		}
	}
	p.Envelopes = kept
	p.CalculateIntensity(t.Par.Integrate)
}
