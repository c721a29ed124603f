package quant

import (
	"hash/fnv"
	"math"
	"math/rand"
	"runtime"
	"sort"
	"sync"

	"github.com/524D/mzquant/internal/index"
)

const (
	// MBR candidate search half-width, in units of alignment sigma
	mbrSearchSigmas = 4.0
	// A decoy retention time must lie at least this many sigma away
	// from the predicted RT so that decoys sample the null distribution
	decoyExclusionSigmas = 5.0
	decoyDrawAttempts    = 10
)

// MbrEngine transfers identifications from a donor run into an
// acceptor run. Donors are processed independently on a bounded worker
// pool; the produced peaks are only handed to the single-writer merge
// and reporting steps afterwards.
type MbrEngine struct {
	Trace   TraceParams
	Threads int
}

// Transfer builds one DonorGroup per donor identification that the
// acceptor run lacks. Targets are traced at the aligned retention time,
// decoys at a deterministically randomized one, through the identical
// code path.
func (e *MbrEngine) Transfer(donor, acceptor *RunResult, acceptorIdx *index.Index) ([]*DonorGroup, *MbrScorer, error) {
	alignment, err := AlignRT(donor.Identifications, acceptor.Identifications)
	if err != nil {
		return nil, nil, err
	}
	scorer := NewMbrScorer(acceptor.File, acceptor.Peaks, donor.PeakBySequence(), alignment)

	// One job per donor sequence missing from the acceptor
	var jobs []*Identification
	seen := make(map[string]bool)
	for _, id := range donor.Identifications {
		if seen[id.ModifiedSequence] || acceptor.HasSequence(id.ModifiedSequence) {
			continue
		}
		if _, ok := donor.PeakFor(id.ModifiedSequence); !ok {
			continue // donor has no quantified reference peak
		}
		seen[id.ModifiedSequence] = true
		jobs = append(jobs, id)
	}

	par := e.Trace
	par.RTWindow = mbrSearchSigmas * scorer.RTSigma()
	tracer := NewTracer(acceptorIdx, par)
	rtMin, rtMax := acceptorIdx.RTRange()

	threads := e.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	jobCh := make(chan *Identification)
	outCh := make(chan *DonorGroup, threads)

	var wg sync.WaitGroup
	var firstErr error
	var errOnce sync.Once
	for w := 0; w < threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for donorID := range jobCh {
				group, err := e.transferOne(donorID, donor, scorer, tracer, alignment, rtMin, rtMax)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				if group != nil {
					outCh <- group
				}
			}
		}()
	}

	go func() {
		for _, id := range jobs {
			jobCh <- id
		}
		close(jobCh)
		wg.Wait()
		close(outCh)
	}()

	var groups []*DonorGroup
	for g := range outCh {
		groups = append(groups, g)
	}
	if firstErr != nil {
		return nil, nil, firstErr
	}

	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Donor.ModifiedSequence < groups[j].Donor.ModifiedSequence
	})
	return groups, scorer, nil
}

// transferOne traces and scores the target and decoy candidates of a
// single donor identification
func (e *MbrEngine) transferOne(donorID *Identification, donor *RunResult,
	scorer *MbrScorer, tracer *Tracer, alignment RTAlignment,
	rtMin, rtMax float64) (*DonorGroup, error) {

	donorPeak, _ := donor.PeakFor(donorID.ModifiedSequence)
	predictedRT := alignment.Predict(donorID.MS2RetentionTime)

	targets, err := tracer.TraceMBR(donorID, scorer.AcceptorFile, predictedRT, false)
	if err != nil {
		return nil, err
	}
	for _, p := range targets {
		if err := p.CalculateMbrScore(scorer, donorPeak); err != nil {
			return nil, err
		}
	}

	decoyRT := drawDecoyRT(donorID.ModifiedSequence, predictedRT, rtMin, rtMax, scorer.RTSigma())
	decoys, err := tracer.TraceMBR(donorID, scorer.AcceptorFile, decoyRT, true)
	if err != nil {
		return nil, err
	}
	for _, p := range decoys {
		if err := p.CalculateMbrScore(scorer, donorPeak); err != nil {
			return nil, err
		}
	}

	if len(targets) == 0 && len(decoys) == 0 {
		return nil, nil
	}
	return NewDonorGroup(donorID, targets, decoys), nil
}

// drawDecoyRT picks a retention time inside the acceptor run but away
// from the predicted one. The generator is seeded from the donor
// sequence so that repeated runs produce identical decoys.
func drawDecoyRT(modSeq string, predictedRT, rtMin, rtMax, sigma float64) float64 {
	h := fnv.New64a()
	h.Write([]byte(modSeq))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	span := rtMax - rtMin
	if span <= 0 {
		return rtMin
	}
	exclusion := decoyExclusionSigmas * sigma
	for i := 0; i < decoyDrawAttempts; i++ {
		rt := rtMin + rng.Float64()*span
		if math.Abs(rt-predictedRT) >= exclusion {
			return rt
		}
	}
	// Mirror the predicted RT into the far half of the run. The
	// prediction may fall outside the acceptor's span, so clamp the
	// mirror into it.
	mid := rtMin + span/2
	var rt float64
	if predictedRT < mid {
		rt = rtMax - (predictedRT - rtMin)
	} else {
		rt = rtMin + (rtMax - predictedRT)
	}
	return math.Min(rtMax, math.Max(rtMin, rt))
}
