package quant

import (
	"math"
	"testing"

	"github.com/524D/mzquant/internal/mass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mbrCandidate builds a scored-ready MBR peak in the acceptor file with
// one envelope at the given RT and intensity
func mbrCandidate(t *testing.T, acceptor *SpectraFile, predictedRT, apexRT, intensity float64) *ChromatographicPeak {
	t.Helper()
	donorID := testIdent("PEPTIDEK", "PEPTIDEK", 1000.0, &SpectraFile{Name: "donor"})
	p, err := NewMbrPeak(donorID, acceptor, predictedRT, false)
	require.NoError(t, err)
	p.AddEnvelope(testEnvelope(mass.MZ(1000.0, 2), 2, intensity, 1, apexRT))
	p.CalculateIntensity(false)
	return p
}

func donorReference(t *testing.T, intensity float64) *ChromatographicPeak {
	t.Helper()
	donor := &SpectraFile{Name: "donor"}
	p, err := NewPeak(testIdent("PEPTIDEK", "PEPTIDEK", 1000.0, donor), donor)
	require.NoError(t, err)
	p.AddEnvelope(testEnvelope(mass.MZ(1000.0, 2), 2, intensity, 1, 100.0))
	p.CalculateIntensity(false)
	return p
}

func fallbackScorer(acceptor *SpectraFile) *MbrScorer {
	return NewMbrScorer(acceptor, nil, nil, RTAlignment{Sigma: 10.0})
}

func TestSubScoresArePerfectAtZeroDeviation(t *testing.T) {
	acceptor := &SpectraFile{Name: "acceptor"}
	s := fallbackScorer(acceptor)

	// Apex exactly at the predicted RT, identical intensity, exact mass
	p := mbrCandidate(t, acceptor, 50.0, 50.0, 1000.0)
	donorPeak := donorReference(t, 1000.0)

	assert.InDelta(t, 1.0, s.IntensityScore(p, donorPeak), 1e-9)
	assert.InDelta(t, 1.0, s.RetentionTimeScore(p), 1e-9)
	assert.InDelta(t, 1.0, s.PpmErrorScore(p), 1e-6)

	// Scan count score approaches but never reaches 1
	sc := s.ScanCountScore(p)
	assert.Greater(t, sc, 0.0)
	assert.Less(t, sc, 1.0)

	require.NoError(t, p.CalculateMbrScore(s, donorPeak))
	assert.InDelta(t, 100*math.Pow(sc, 0.25), p.MbrScore, 1e-6)
}

func TestAnyZeroSubScoreVetoes(t *testing.T) {
	acceptor := &SpectraFile{Name: "acceptor"}
	s := fallbackScorer(acceptor)

	p := mbrCandidate(t, acceptor, 50.0, 50.0, 1000.0)

	// No donor reference means zero intensity score, and the combined
	// score collapses to zero regardless of the other components
	require.NoError(t, p.CalculateMbrScore(s, nil))
	assert.Equal(t, 0.0, p.IntensityScore)
	assert.Equal(t, 0.0, p.MbrScore)
	assert.Greater(t, p.RTScore, 0.0)
}

func TestSubScoresAreMonotonic(t *testing.T) {
	acceptor := &SpectraFile{Name: "acceptor"}
	s := fallbackScorer(acceptor)
	donorPeak := donorReference(t, 1000.0)

	// RT score decreases with distance from the predicted RT
	near := mbrCandidate(t, acceptor, 50.0, 55.0, 1000.0)
	far := mbrCandidate(t, acceptor, 50.0, 80.0, 1000.0)
	assert.Greater(t, s.RetentionTimeScore(near), s.RetentionTimeScore(far))

	// Intensity score decreases with the intensity ratio deviation
	similar := mbrCandidate(t, acceptor, 50.0, 50.0, 1200.0)
	dissimilar := mbrCandidate(t, acceptor, 50.0, 50.0, 64000.0)
	assert.Greater(t, s.IntensityScore(similar, donorPeak), s.IntensityScore(dissimilar, donorPeak))

	// All sub-scores stay in [0,1]
	for _, p := range []*ChromatographicPeak{near, far, similar, dissimilar} {
		for _, v := range []float64{
			s.IntensityScore(p, donorPeak),
			s.RetentionTimeScore(p),
			s.PpmErrorScore(p),
			s.ScanCountScore(p),
		} {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
}

func TestScoresOfSignalFreeCandidates(t *testing.T) {
	acceptor := &SpectraFile{Name: "acceptor"}
	s := fallbackScorer(acceptor)

	donorID := testIdent("PEPTIDEK", "PEPTIDEK", 1000.0, &SpectraFile{Name: "donor"})
	p, err := NewMbrPeak(donorID, acceptor, 50.0, false)
	require.NoError(t, err)
	p.CalculateIntensity(false)

	assert.Equal(t, 0.0, s.RetentionTimeScore(p))
	assert.Equal(t, 0.0, s.PpmErrorScore(p))
	assert.Equal(t, 0.0, s.ScanCountScore(p))
	assert.Equal(t, 0.0, s.IntensityScore(p, donorReference(t, 1000.0)))
}

func TestNewMbrScorerReferenceDistributions(t *testing.T) {
	acceptor := &SpectraFile{Name: "acceptor"}

	// Build acceptor peaks with a systematic 2x intensity over the donor
	donorPeaks := make(map[string]*ChromatographicPeak)
	var acceptorPeaks []*ChromatographicPeak
	seqs := []string{"AK", "CK", "DK", "EK", "FK", "GK", "HK", "IK", "KK", "LK", "MK", "NK"}
	for i, seq := range seqs {
		donor := &SpectraFile{Name: "donor"}
		dp, err := NewPeak(testIdent(seq, seq, 500.0, donor), donor)
		require.NoError(t, err)
		dp.AddEnvelope(testEnvelope(mass.MZ(500.0, 1), 1, 1000.0+float64(i), 1, 10.0))
		dp.CalculateIntensity(false)
		donorPeaks[seq] = dp

		ap, err := NewPeak(testIdent(seq, seq, 500.0, acceptor), acceptor)
		require.NoError(t, err)
		ap.AddEnvelope(testEnvelope(mass.MZ(500.0, 1), 1, 2*(1000.0+float64(i)), 1, 12.0))
		ap.CalculateIntensity(false)
		acceptorPeaks = append(acceptorPeaks, ap)
	}

	s := NewMbrScorer(acceptor, acceptorPeaks, donorPeaks, RTAlignment{Sigma: 8.0})
	assert.InDelta(t, 1.0, s.logRatioMean, 1e-6, "log2 of a 2x ratio")
	assert.Equal(t, 8.0, s.RTSigma())

	// The sigma floor applies when the alignment fits suspiciously well
	s = NewMbrScorer(acceptor, nil, nil, RTAlignment{Sigma: 0.01})
	assert.Equal(t, minRTSigma, s.RTSigma())
}
