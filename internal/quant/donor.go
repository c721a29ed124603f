package quant

// DonorGroup pairs the target acceptor peaks of one donor
// identification with its decoy acceptor peaks. Targets were traced at
// the predicted retention time, decoys at a randomized one through the
// identical trace and score path, so that the two score distributions
// are comparable for downstream probability calibration. The group is
// immutable after construction.
type DonorGroup struct {
	Donor   *Identification
	targets []*ChromatographicPeak
	decoys  []*ChromatographicPeak
}

// NewDonorGroup builds a group from the candidate transfers of one
// donor identification
func NewDonorGroup(donor *Identification, targets, decoys []*ChromatographicPeak) *DonorGroup {
	return &DonorGroup{Donor: donor, targets: targets, decoys: decoys}
}

// Targets returns the candidate real transfers
func (g *DonorGroup) Targets() []*ChromatographicPeak { return g.targets }

// Decoys returns the negative-control transfers
func (g *DonorGroup) Decoys() []*ChromatographicPeak { return g.decoys }

// All returns targets followed by decoys, for uniform feature
// extraction by the calibration step
func (g *DonorGroup) All() []*ChromatographicPeak {
	all := make([]*ChromatographicPeak, 0, len(g.targets)+len(g.decoys))
	all = append(all, g.targets...)
	all = append(all, g.decoys...)
	return all
}

// BestTargetMbrScore returns the maximum MBR score over the targets, or
// 0 when the donor has no viable transfer. The zero sentinel marks "no
// signal", it must not be read as a confidence value.
func (g *DonorGroup) BestTargetMbrScore() float64 {
	best := float64(0)
	for _, p := range g.targets {
		if p.MbrScore > best {
			best = p.MbrScore
		}
	}
	return best
}
