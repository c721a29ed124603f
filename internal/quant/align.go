package quant

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// minAlignmentAnchors is the smallest number of shared identifications
// two runs must have for a usable RT alignment
const minAlignmentAnchors = 5

// RTAlignment maps donor retention times onto the acceptor run's time
// scale. Sigma is the standard deviation of the fit residuals and
// doubles as the run-to-run alignment error estimate.
type RTAlignment struct {
	Intercept float64
	Slope     float64
	Sigma     float64
	Anchors   int
}

// Predict maps a donor retention time to the acceptor time scale
func (a RTAlignment) Predict(donorRT float64) float64 {
	return a.Intercept + a.Slope*donorRT
}

type rtAnchor struct {
	donor    float64
	acceptor float64
}

// AlignRT fits a linear mapping from donor to acceptor retention times
// over the identifications shared between the two runs. Anchors whose
// residual falls outside the interquartile fences are removed once and
// the mapping is refit.
func AlignRT(donorIDs, acceptorIDs []*Identification) (RTAlignment, error) {
	donorRT := make(map[string]float64, len(donorIDs))
	for _, id := range donorIDs {
		if _, ok := donorRT[id.ModifiedSequence]; !ok {
			donorRT[id.ModifiedSequence] = id.MS2RetentionTime
		}
	}
	var anchors []rtAnchor
	seen := make(map[string]bool)
	for _, id := range acceptorIDs {
		if seen[id.ModifiedSequence] {
			continue
		}
		seen[id.ModifiedSequence] = true
		if rt, ok := donorRT[id.ModifiedSequence]; ok {
			anchors = append(anchors, rtAnchor{donor: rt, acceptor: id.MS2RetentionTime})
		}
	}
	if len(anchors) < minAlignmentAnchors {
		return RTAlignment{}, ErrTooFewAnchors
	}

	fit, err := fitAnchors(anchors)
	if err != nil {
		return RTAlignment{}, err
	}

	// Remove anchors outside the interquartile fences of the residual
	// distribution, then refit
	kept := removeOutlierAnchors(anchors, fit)
	if len(kept) >= minAlignmentAnchors && len(kept) < len(anchors) {
		refit, err := fitAnchors(kept)
		if err == nil {
			fit = refit
			anchors = kept
		}
	}

	fit.Sigma = residualSigma(anchors, fit)
	fit.Anchors = len(anchors)
	return fit, nil
}

// fitAnchors finds the intercept/slope minimizing the root of summed
// squared residuals
func fitAnchors(anchors []rtAnchor) (RTAlignment, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			sumOfResiduals := float64(0.0)
			for _, a := range anchors {
				diff := x[0] + x[1]*a.donor - a.acceptor
				sumOfResiduals += diff * diff
			}
			return math.Sqrt(sumOfResiduals)
		},
	}
	pIn := []float64{0, 1.0}
	result, err := optimize.Minimize(problem, pIn, nil, nil)
	if err != nil {
		return RTAlignment{}, err
	}
	return RTAlignment{Intercept: result.X[0], Slope: result.X[1]}, nil
}

func residuals(anchors []rtAnchor, fit RTAlignment) []float64 {
	res := make([]float64, len(anchors))
	for i, a := range anchors {
		res[i] = a.acceptor - fit.Predict(a.donor)
	}
	return res
}

func residualSigma(anchors []rtAnchor, fit RTAlignment) float64 {
	return stat.StdDev(residuals(anchors, fit), nil)
}

// removeOutlierAnchors keeps the anchors whose residual lies within
// [q1-1.5*iqr, q3+1.5*iqr]
func removeOutlierAnchors(anchors []rtAnchor, fit RTAlignment) []rtAnchor {
	res := residuals(anchors, fit)
	sorted := append([]float64(nil), res...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.Empirical, sorted, nil)
	q3 := stat.Quantile(0.75, stat.Empirical, sorted, nil)
	iqr := q3 - q1
	lowLim := q1 - 1.5*iqr
	highLim := q3 + 1.5*iqr

	kept := make([]rtAnchor, 0, len(anchors))
	for i, a := range anchors {
		if res[i] >= lowLim && res[i] <= highLim {
			kept = append(kept, a)
		}
	}
	return kept
}
