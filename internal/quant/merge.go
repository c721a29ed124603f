package quant

import "github.com/524D/mzquant/internal/index"

// MergeDuplicatePeaks reconciles peaks of one run that were discovered
// through different identifications but share their apex indexed peak,
// i.e. represent the same physical feature. The pass is single-writer
// per file; do not run it concurrently with peak construction.
func MergeDuplicatePeaks(peaks []*ChromatographicPeak, integrate bool) []*ChromatographicPeak {
	byApex := make(map[*index.Peak]*ChromatographicPeak, len(peaks))
	merged := make([]*ChromatographicPeak, 0, len(peaks))

	for _, p := range peaks {
		if p.Apex == nil {
			merged = append(merged, p)
			continue
		}
		first, ok := byApex[p.Apex.Peak]
		if !ok {
			byApex[p.Apex.Peak] = p
			merged = append(merged, p)
			continue
		}
		first.MergeWith(p, integrate)
	}
	return merged
}
