// This file contains code to help debugging, and is
// separated in from the rest in order not to litter
// the main code with debugging stuff

package main

import (
	"fmt"

	"github.com/524D/mzquant/internal/quant"
)

// debugLogDonorGroups prints the score components of every transferred
// peak of one donor/acceptor pair. Output is only produced when the
// environment variable MZQUANT_DEBUG is set to 1.
func debugLogDonorGroups(donorName string, acceptorName string,
	groups []*quant.DonorGroup, par params) {

	if !par.debug {
		return
	}
	fmt.Printf("MBR %s -> %s: %d donor groups\n",
		donorName, acceptorName, len(groups))
	for _, g := range groups {
		fmt.Printf("donor:%s predictedRT:%f bestTarget:%0.2f targets:%d decoys:%d\n",
			g.Donor.ModifiedSequence,
			bestPredictedRT(g),
			g.BestTargetMbrScore(),
			len(g.Targets()), len(g.Decoys()))
		for _, p := range g.All() {
			kind := `target`
			if p.RandomRT {
				kind = `decoy`
			}
			fmt.Printf("  %s rt:%f intens:%0.4f rtScore:%0.4f ppm:%0.4f scans:%0.4f mbr:%0.2f\n",
				kind, p.ApexRT(),
				p.IntensityScore, p.RTScore, p.PpmScore, p.ScanCountScore,
				p.MbrScore)
		}
	}
}

func bestPredictedRT(g *quant.DonorGroup) float64 {
	all := g.All()
	if len(all) == 0 {
		return 0
	}
	return all[0].PredictedRT
}
