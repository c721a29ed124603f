package quant

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

const (
	// Fallback spread of the log2 intensity ratio distribution when the
	// two runs share too few quantified sequences
	fallbackLogRatioStd = 1.0
	// Fallback ppm error spread when an acceptor file has too few
	// direct-identification peaks with a known mass error
	fallbackPpmStd = 5.0
	// Floor on the RT alignment sigma, seconds
	minRTSigma = 3.0
	// Observations needed before an empirical spread is trusted
	minRefObservations = 10
)

// MbrScorer scores candidate MBR transfers into one acceptor file. It
// is built once per acceptor run, from the acceptor's own
// direct-identification peaks and the donor run's quantified peaks, and
// is read-only afterwards: all sub-scores are deterministic.
//
// Each sub-score is bounded to [0,1] and monotonic in its goodness
// direction:
//   - intensity: exp(-z²/2) on the log2 acceptor/donor intensity ratio,
//     standardized by the observed cross-run ratio distribution
//   - retention time: exp(-z²/2) on apex RT minus predicted RT,
//     standardized by the RT alignment residual sigma
//   - ppm: exp(-z²/2) on the peak mass error, standardized by the
//     acceptor file's direct-identification ppm spread
//   - scan count: n/(n+m) with m the median direct-peak envelope count
type MbrScorer struct {
	AcceptorFile *SpectraFile

	logRatioMean float64
	logRatioStd  float64
	ppmStd       float64
	medianScans  float64
	rtSigma      float64
}

// NewMbrScorer derives the reference distributions for one acceptor
// file. acceptorPeaks are the acceptor's direct-identification peaks
// (intensity already calculated); donorPeakBySeq maps modified sequence
// to the donor run's peak.
func NewMbrScorer(acceptor *SpectraFile, acceptorPeaks []*ChromatographicPeak,
	donorPeakBySeq map[string]*ChromatographicPeak, alignment RTAlignment) *MbrScorer {

	s := &MbrScorer{
		AcceptorFile: acceptor,
		logRatioStd:  fallbackLogRatioStd,
		ppmStd:       fallbackPpmStd,
		medianScans:  1,
		rtSigma:      math.Max(alignment.Sigma, minRTSigma),
	}

	var logRatios []float64
	var ppmErrors []float64
	var scanCounts []float64
	for _, p := range acceptorPeaks {
		if p.Intensity > 0 {
			for _, id := range p.Identifications {
				donor, ok := donorPeakBySeq[id.ModifiedSequence]
				if ok && donor.Intensity > 0 {
					logRatios = append(logRatios, math.Log2(p.Intensity/donor.Intensity))
					break
				}
			}
		}
		if !math.IsNaN(p.MassError) {
			ppmErrors = append(ppmErrors, p.MassError)
		}
		if len(p.Envelopes) > 0 {
			scanCounts = append(scanCounts, float64(len(p.Envelopes)))
		}
	}

	if len(logRatios) >= minRefObservations {
		s.logRatioMean = stat.Mean(logRatios, nil)
		if sd := stat.StdDev(logRatios, nil); sd > 0 {
			s.logRatioStd = sd
		}
	}
	if len(ppmErrors) >= minRefObservations {
		if sd := stat.StdDev(ppmErrors, nil); sd > 0 {
			s.ppmStd = sd
		}
	}
	if len(scanCounts) > 0 {
		sort.Float64s(scanCounts)
		if m := stat.Quantile(0.5, stat.Empirical, scanCounts, nil); m >= 1 {
			s.medianScans = m
		}
	}
	return s
}

// RTSigma returns the alignment error estimate used for RT scoring,
// also the natural half-width unit for the MBR candidate search window
func (s *MbrScorer) RTSigma() float64 { return s.rtSigma }

// gaussianScore folds a standardized deviation into (0,1], 1 at z=0
func gaussianScore(z float64) float64 {
	return math.Exp(-0.5 * z * z)
}

// IntensityScore is high when the acceptor peak's intensity is
// plausible relative to the donor's
func (s *MbrScorer) IntensityScore(acceptorPeak, donorPeak *ChromatographicPeak) float64 {
	if acceptorPeak.Intensity <= 0 || donorPeak == nil || donorPeak.Intensity <= 0 {
		return 0
	}
	logRatio := math.Log2(acceptorPeak.Intensity / donorPeak.Intensity)
	return gaussianScore((logRatio - s.logRatioMean) / s.logRatioStd)
}

// RetentionTimeScore is high when the acceptor peak eluted close to the
// retention time predicted by the donor alignment
func (s *MbrScorer) RetentionTimeScore(acceptorPeak *ChromatographicPeak) float64 {
	apexRT := acceptorPeak.ApexRT()
	if math.IsNaN(apexRT) {
		return 0
	}
	return gaussianScore((apexRT - acceptorPeak.PredictedRT) / s.rtSigma)
}

// PpmErrorScore is high when the acceptor peak's mass error is small
// relative to the run's mass accuracy
func (s *MbrScorer) PpmErrorScore(acceptorPeak *ChromatographicPeak) float64 {
	if math.IsNaN(acceptorPeak.MassError) {
		return 0
	}
	return gaussianScore(acceptorPeak.MassError / s.ppmStd)
}

// ScanCountScore is high when the acceptor peak was observed over many
// consecutive scans
func (s *MbrScorer) ScanCountScore(acceptorPeak *ChromatographicPeak) float64 {
	n := float64(len(acceptorPeak.Envelopes))
	return n / (n + s.medianScans)
}
